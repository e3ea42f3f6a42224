package sentiment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// Cache stores logits by key. The Valkey client implements it.
type Cache interface {
	GetLogits(ctx context.Context, key string) ([]float64, bool, error)
	StoreLogits(ctx context.Context, key string, logits []float64) error
}

// CachedModel consults cache before running model. Cache failures are logged
// and fall through to the model.
type CachedModel struct {
	model  Model
	cache  Cache
	prefix string
}

// NewCachedModel namespaces keys by modelID so switching models never reads
// another model's logits.
func NewCachedModel(model Model, cache Cache, modelID string) *CachedModel {
	return &CachedModel{model: model, cache: cache, prefix: "danmaku:sentiment:" + modelID + ":"}
}

func (m *CachedModel) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return m.prefix + hex.EncodeToString(sum[:])
}

func (m *CachedModel) Logits(ctx context.Context, text string) ([]float64, error) {
	key := m.Key(text)
	if logits, ok := m.lookup(ctx, key); ok {
		return logits, nil
	}

	logits, err := m.model.Logits(ctx, text)
	if err != nil {
		return nil, err
	}
	m.store(ctx, key, logits)
	return logits, nil
}

// lookup and store never fail the comment: any cache error or panic falls
// through to the model.
func (m *CachedModel) lookup(ctx context.Context, key string) (logits []float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("[SentimentCache] Lookup panicked", slog.Any("panic", r))
			logits, ok = nil, false
		}
	}()
	logits, ok, err := m.cache.GetLogits(ctx, key)
	if err != nil {
		slog.Warn("[SentimentCache] Lookup failed", slog.String("error", err.Error()))
		return nil, false
	}
	return logits, ok && len(logits) == 2
}

func (m *CachedModel) store(ctx context.Context, key string, logits []float64) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("[SentimentCache] Store panicked", slog.Any("panic", r))
		}
	}()
	if err := m.cache.StoreLogits(ctx, key, logits); err != nil {
		slog.Warn("[SentimentCache] Store failed", slog.String("error", err.Error()))
	}
}
