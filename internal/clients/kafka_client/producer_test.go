package kafka_client

import (
	"context"
	"testing"
	"time"
)

func TestNewKafkaConfigDefaults(t *testing.T) {
	cfg := NewKafkaConfig("localhost:29092", "", 0)
	if cfg.Topic != KAFKA_TOPIC_SENTIMENT_RESULTS {
		t.Errorf("topic = %q", cfg.Topic)
	}
	if cfg.Timeout != DEFAULT_TIMEOUT {
		t.Errorf("timeout = %v, want %v", cfg.Timeout, DEFAULT_TIMEOUT)
	}
}

func TestNewProducerUnreachableBrokerTimesOut(t *testing.T) {
	cfg := NewKafkaConfig("127.0.0.1:1", "danmaku-test", 500*time.Millisecond)

	start := time.Now()
	p, err := NewProducer(context.Background(), cfg)
	elapsed := time.Since(start)
	if err == nil {
		p.Close()
		t.Fatal("expected an error from an unreachable broker")
	}
	if elapsed > 10*time.Second {
		t.Errorf("NewProducer took %v, want it bounded by the configured timeout", elapsed)
	}
}
