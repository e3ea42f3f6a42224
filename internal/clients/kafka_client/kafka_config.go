package kafka_client

import "time"

type KafkaConfig struct {
	Broker          string
	Topic           string
	TransactionalID string
	// Timeout bounds each transactional broker round trip (init, commit,
	// abort, delivery wait).
	Timeout time.Duration
}

func NewKafkaConfig(broker, topic string, timeout time.Duration) KafkaConfig {
	if topic == "" {
		topic = KAFKA_TOPIC_SENTIMENT_RESULTS
	}
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	return KafkaConfig{
		Broker:          broker,
		Topic:           topic,
		TransactionalID: "danmakuflow-producer-1",
		Timeout:         timeout,
	}
}
