package kafka_client

import "time"

const (
	KAFKA_TOPIC_SENTIMENT_RESULTS = "danmaku-sentiment" // per comment sentiment results of a run
)

const (
	MAX_RETRIES      = 3
	RETRY_DELAY      = 2 * time.Second
	FLUSH_TIMEOUT_MS = 5000
	DEFAULT_TIMEOUT  = 10 * time.Second
)
