// Package sentiment assigns a binary sentiment label with a confidence to each
// comment using a pretrained two-class model.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/spacesedan/danmakuflow/internal/internalerr"
	"github.com/spacesedan/danmakuflow/internal/models"
	"github.com/spacesedan/danmakuflow/internal/workers"
)

const DefaultMaxTokens = 128

// specialTokens is the room kept for the classifier's [CLS] and [SEP] markers.
const specialTokens = 2

// Model runs one forward pass and returns the two class logits, index 0
// negative and index 1 positive. Implementations must be safe for concurrent
// use.
type Model interface {
	Logits(ctx context.Context, text string) ([]float64, error)
}

// ModelLoader builds the model on first use, so a broken model only fails the
// stage that needs it.
type ModelLoader func(ctx context.Context) (Model, error)

type Options struct {
	MaxTokens int
	Workers   int
}

type Classifier struct {
	model     Model
	maxTokens int
	workers   int
}

func NewClassifier(model Model, opts Options) *Classifier {
	if opts.MaxTokens <= specialTokens {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &Classifier{model: model, maxTokens: opts.MaxTokens, workers: opts.Workers}
}

// Truncate keeps the longest prefix of text that fits a maxTokens input once
// the two special tokens are reserved. Chinese text is tokenized per
// character, so the budget is counted in runes.
func Truncate(text string, maxTokens int) string {
	budget := maxTokens - specialTokens
	if budget < 1 {
		budget = 1
	}
	if utf8.RuneCountInString(text) <= budget {
		return text
	}
	n := 0
	for i := range text {
		if n == budget {
			return text[:i]
		}
		n++
	}
	return text
}

// Softmax is computed relative to the largest logit.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	m := math.Inf(-1)
	for _, l := range logits {
		if l > m {
			m = l
		}
	}
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - m)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Decide turns a pair of logits into a label. Equal probabilities resolve to
// positive.
func Decide(logits []float64) (models.SentimentLabel, float64, error) {
	if len(logits) != 2 {
		return models.LabelUnknown, 0, fmt.Errorf("expected 2 logits, got %d", len(logits))
	}
	probs := Softmax(logits)
	neg, pos := probs[0], probs[1]
	if math.IsNaN(neg) || math.IsNaN(pos) {
		return models.LabelUnknown, 0, errors.New("logits produced NaN probabilities")
	}
	if pos >= neg {
		return models.LabelPositive, pos, nil
	}
	return models.LabelNegative, neg, nil
}

// Classify labels one comment. Empty text is unknown without calling the
// model. Any model failure yields an unknown result and an error wrapping
// ErrClassification.
func (c *Classifier) Classify(ctx context.Context, commentID, text string) (res models.SentimentResult, err error) {
	res = models.UnknownSentiment(commentID)
	if strings.TrimSpace(text) == "" {
		return res, nil
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = models.UnknownSentiment(commentID), internalerr.FromPanic(internalerr.ErrClassification, r)
		}
	}()

	logits, err := c.model.Logits(ctx, Truncate(text, c.maxTokens))
	if err != nil {
		return res, fmt.Errorf("%w: %w", internalerr.ErrClassification, err)
	}

	label, confidence, err := Decide(logits)
	if err != nil {
		return res, fmt.Errorf("%w: %w", internalerr.ErrClassification, err)
	}

	res.Label = label
	res.Confidence = &confidence
	return res, nil
}

// Batch holds one result per comment, in comment order.
type Batch struct {
	Results []models.SentimentResult
	Failed  int
}

// Counts tallies results per label.
func (b Batch) Counts() map[models.SentimentLabel]int {
	counts := map[models.SentimentLabel]int{}
	for _, r := range b.Results {
		counts[r.Label]++
	}
	return counts
}

type classified struct {
	res models.SentimentResult
	err error
}

// ClassifyAll classifies every comment on the worker pool. Per comment failures
// are logged and counted; only cancellation returns an error.
func (c *Classifier) ClassifyAll(ctx context.Context, comments []models.Comment) (Batch, error) {
	outs, err := workers.Map(ctx, c.workers, comments, func(ctx context.Context, _ int, cm models.Comment) classified {
		res, err := c.Classify(ctx, cm.ID, cm.Text)
		return classified{res: res, err: err}
	})
	if err != nil {
		return Batch{}, err
	}

	batch := Batch{Results: make([]models.SentimentResult, len(outs))}
	for i, out := range outs {
		if out.err != nil {
			batch.Failed++
			slog.Warn("[SentimentClassifier] Classification failed",
				slog.String("comment_id", comments[i].ID),
				slog.String("error", out.err.Error()))
		}
		batch.Results[i] = out.res
	}
	return batch, nil
}
