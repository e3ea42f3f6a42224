package pipeline

import (
	"context"

	"github.com/spacesedan/danmakuflow/internal/models"
)

// Sink is an output destination. A sink receives a stage's output only if it
// implements that stage's writer interface.
type Sink interface {
	Name() string
}

type TokenWriter interface {
	Sink
	WriteTokens(ctx context.Context, runID string, seqs []models.TokenSequence) error
}

type KeywordWriter interface {
	Sink
	WriteKeywords(ctx context.Context, runID string, keywords []models.KeywordEntry) error
}

type FrequencyWriter interface {
	Sink
	WriteFrequencies(ctx context.Context, runID string, all, top []models.WordCount) error
}

type SentimentWriter interface {
	Sink
	WriteSentiment(ctx context.Context, runID string, comments []models.Comment, results []models.SentimentResult) error
}
