package kafka_client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// Message is one keyed record to publish.
type Message struct {
	Key   []byte
	Value []byte
}

// Producer publishes whole batches inside one transaction, so consumers
// reading committed data never see a partial run.
type Producer struct {
	p   *kafka.Producer
	cfg KafkaConfig
}

func NewProducer(ctx context.Context, cfg KafkaConfig) (*Producer, error) {
	slog.Info("[KafkaClient] Initializing Kafka Producer...", slog.String("broker", cfg.Broker))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":                     cfg.Broker,
		"security.protocol":                     "PLAINTEXT",
		"api.version.request":                   "true",
		"enable.idempotence":                    true,
		"acks":                                  "all",
		"max.in.flight.requests.per.connection": 1,
		"transactional.id":                      cfg.TransactionalID,
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DEFAULT_TIMEOUT
	}
	initCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := p.InitTransactions(initCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("[KafkaClient] Failed to init transactions: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return &Producer{p: p, cfg: cfg}, nil
}

func (pr *Producer) Topic() string {
	return pr.cfg.Topic
}

// PublishBatch sends msgs to topic in a single transaction and waits for
// every delivery report before committing.
func (pr *Producer) PublishBatch(ctx context.Context, topic string, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := pr.p.BeginTransaction(); err != nil {
		return fmt.Errorf("[KafkaClient] failed to begin transaction: %w", err)
	}

	deliveries := make(chan kafka.Event, len(msgs))
	for _, m := range msgs {
		msg := &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
			Key:            m.Key,
			Value:          m.Value,
		}

		var err error
		for i := 0; i < MAX_RETRIES; i++ {
			if err = pr.p.Produce(msg, deliveries); err == nil {
				break
			}
			slog.Warn("[KafkaClient] Failed to produce message, retrying...",
				slog.Int("attempt", i+1),
				slog.String("error", err.Error()))
			time.Sleep(RETRY_DELAY)
		}
		if err != nil {
			return pr.abort(ctx, fmt.Errorf("[KafkaClient] produce failed: %w", err))
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, pr.cfg.Timeout)
	defer cancel()
	for range msgs {
		select {
		case <-waitCtx.Done():
			return pr.abort(context.Background(), fmt.Errorf("[KafkaClient] waiting for deliveries: %w", waitCtx.Err()))
		case e := <-deliveries:
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				return pr.abort(ctx, fmt.Errorf("[KafkaClient] delivery failed: %w", m.TopicPartition.Error))
			}
		}
	}

	var commitErr error
	for i := 0; i < MAX_RETRIES; i++ {
		if commitErr = pr.commit(ctx); commitErr == nil {
			break
		}
		slog.Warn("[KafkaClient] Failed to commit transaction, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", commitErr.Error()))
	}
	if commitErr != nil {
		return pr.abort(ctx, fmt.Errorf("[KafkaClient] failed to commit transaction after %d retries: %w", MAX_RETRIES, commitErr))
	}

	slog.Info("[KafkaClient] Published batch transactionally",
		slog.String("topic", topic),
		slog.Int("messages", len(msgs)))
	return nil
}

func (pr *Producer) commit(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pr.cfg.Timeout)
	defer cancel()
	return pr.p.CommitTransaction(ctx)
}

func (pr *Producer) abort(ctx context.Context, cause error) error {
	ctx, cancel := context.WithTimeout(ctx, pr.cfg.Timeout)
	defer cancel()
	if err := pr.p.AbortTransaction(ctx); err != nil {
		return fmt.Errorf("%w (abort failed: %v)", cause, err)
	}
	return cause
}

func (pr *Producer) Close() error {
	slog.Info("[KafkaClient] Flushing Kafka producer before shutdown...")
	if remaining := pr.p.Flush(FLUSH_TIMEOUT_MS); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	pr.p.Close()
	slog.Info("[KafkaClient] Kafka producer shut down")
	return nil
}
