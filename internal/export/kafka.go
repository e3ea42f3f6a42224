package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spacesedan/danmakuflow/internal/clients/kafka_client"
	"github.com/spacesedan/danmakuflow/internal/models"
)

// Publisher sends a batch of keyed messages atomically.
type Publisher interface {
	PublishBatch(ctx context.Context, topic string, msgs []kafka_client.Message) error
}

// KafkaSink publishes one message per sentiment result, keyed by comment id.
type KafkaSink struct {
	publisher Publisher
	topic     string
}

func NewKafkaSink(publisher Publisher, topic string) *KafkaSink {
	return &KafkaSink{publisher: publisher, topic: topic}
}

func (k *KafkaSink) Name() string { return "kafka" }

type sentimentMessage struct {
	RunID string `json:"run_id"`
	models.SentimentResult
	Text string `json:"text"`
}

func (k *KafkaSink) WriteSentiment(ctx context.Context, runID string, comments []models.Comment, results []models.SentimentResult) error {
	if len(comments) != len(results) {
		return fmt.Errorf("%d comments but %d sentiment results", len(comments), len(results))
	}
	msgs := make([]kafka_client.Message, 0, len(results))
	for i, r := range results {
		value, err := json.Marshal(sentimentMessage{RunID: runID, SentimentResult: r, Text: comments[i].Text})
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka_client.Message{Key: []byte(r.CommentID), Value: value})
	}
	return k.publisher.PublishBatch(ctx, k.topic, msgs)
}
