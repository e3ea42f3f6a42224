package clients

import "time"

const (
	MAX_RETRIES     = 5
	INITIAL_BACKOFF = 1 * time.Second
	MAX_BACKOFF     = 32 * time.Second
	USER_AGENT      = "danmakuflow-client/1.0 (+https://github.com/spacesedan/danmakuflow)"
)

const (
	VALKEY_RETRIES       = 3
	VALKEY_RETRY_DELAY   = 250 * time.Millisecond
	VALKEY_PING_TIMEOUT  = 3 * time.Second
	VALKEY_WRITE_TIMEOUT = 5 * time.Second
)
