package clients

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

type ValkeyOptions struct {
	Address  string
	Password string
	TLS      bool
	TTL      time.Duration
}

// ValkeyClient stores sentiment logits keyed by input hash so reruns over the
// same comments skip the model.
type ValkeyClient struct {
	Client valkey.Client
	opts   ValkeyOptions
	mu     sync.Mutex
}

func InitValkey(opts ValkeyOptions) (*ValkeyClient, error) {
	client, err := newValkey(opts)
	if err != nil {
		return nil, err
	}
	slog.Info("[ValkeyClient] Successfully connected to valkey",
		slog.String("address", opts.Address))
	return &ValkeyClient{Client: client, opts: opts}, nil
}

func newValkey(opts ValkeyOptions) (valkey.Client, error) {
	clientOpts := valkey.ClientOption{
		InitAddress:      []string{opts.Address},
		Password:         opts.Password,
		ConnWriteTimeout: VALKEY_WRITE_TIMEOUT,
		SelectDB:         0,
		DisableCache:     true,
	}
	if opts.TLS {
		clientOpts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), VALKEY_PING_TIMEOUT)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}
	return client, nil
}

func (vc *ValkeyClient) recreateClient() {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	client, err := newValkey(vc.opts)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed", slog.String("error", err.Error()))
		return
	}
	vc.Client.Close()
	vc.Client = client
	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
}

func (vc *ValkeyClient) client() valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.Client
}

func (vc *ValkeyClient) Close() error {
	vc.client().Close()
	return nil
}

// GetLogits returns the cached logits for key. A miss is (nil, false, nil).
func (vc *ValkeyClient) GetLogits(ctx context.Context, key string) ([]float64, bool, error) {
	res := vc.DoWithRetry(ctx, func(c valkey.Client) valkey.Completed {
		return c.B().Get().Key(key).Build()
	}, VALKEY_RETRIES)
	raw, err := res.ToString()
	if valkey.IsValkeyNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var logits []float64
	if err := json.Unmarshal([]byte(raw), &logits); err != nil {
		return nil, false, fmt.Errorf("decode cached logits for %s: %w", key, err)
	}
	return logits, true, nil
}

func (vc *ValkeyClient) StoreLogits(ctx context.Context, key string, logits []float64) error {
	data, err := json.Marshal(logits)
	if err != nil {
		return err
	}
	ttl := int64(vc.opts.TTL.Seconds())
	return vc.DoWithRetry(ctx, func(c valkey.Client) valkey.Completed {
		if ttl > 0 {
			return c.B().Set().Key(key).Value(string(data)).ExSeconds(ttl).Build()
		}
		return c.B().Set().Key(key).Value(string(data)).Build()
	}, VALKEY_RETRIES).Error()
}

// DoWithRetry builds a fresh command for every attempt: valkey-go recycles a
// Completed once Do returns, so it must never be sent twice.
func (vc *ValkeyClient) DoWithRetry(ctx context.Context, build func(valkey.Client) valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		c := vc.client()
		result = c.Do(ctx, build(c))
		err := result.Error()
		if err == nil || valkey.IsValkeyNil(err) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
		if isConnectionError(err) {
			vc.recreateClient()
		}

		if i == retries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return result
		case <-time.After(VALKEY_RETRY_DELAY):
		}
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
