// Package tokenizer turns comments into filtered word sequences using a
// segmentation backend and the run's lexicon.
package tokenizer

import (
	"context"
	"fmt"
	"log/slog"
	"unicode"
	"unicode/utf8"

	"github.com/spacesedan/danmakuflow/internal/internalerr"
	"github.com/spacesedan/danmakuflow/internal/lexicon"
	"github.com/spacesedan/danmakuflow/internal/models"
	"github.com/spacesedan/danmakuflow/internal/segmenter"
	"github.com/spacesedan/danmakuflow/internal/workers"
)

type Tokenizer struct {
	seg     segmenter.Segmenter
	lexicon *lexicon.Lexicon
	workers int
}

func New(seg segmenter.Segmenter, lex *lexicon.Lexicon, workerCount int) *Tokenizer {
	return &Tokenizer{seg: seg, lexicon: lex, workers: workerCount}
}

// Segment cuts text in precise mode with HMM enabled and filters the result.
// A backend error or panic is returned wrapped in ErrSegmentation.
func (t *Tokenizer) Segment(text string) (tokens []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			tokens, err = nil, internalerr.FromPanic(internalerr.ErrSegmentation, r)
		}
	}()

	words, err := t.seg.Cut(text, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrSegmentation, err)
	}
	return t.Filter(words), nil
}

// Filter drops stopwords, all-digit words and words of at most one character,
// in that order.
func (t *Tokenizer) Filter(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if t.lexicon.IsStopword(w) {
			continue
		}
		if isDigits(w) {
			continue
		}
		if utf8.RuneCountInString(w) <= 1 {
			continue
		}
		out = append(out, w)
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Result holds the sequences of every comment that segmented cleanly, in
// comment order, and the ids of those that did not.
type Result struct {
	Sequences  []models.TokenSequence
	SkippedIDs []string
}

func (r Result) Skipped() int {
	return len(r.SkippedIDs)
}

// TotalTokens is the number of tokens across all sequences.
func (r Result) TotalTokens() int {
	n := 0
	for _, s := range r.Sequences {
		n += len(s.Tokens)
	}
	return n
}

type segmented struct {
	tokens []string
	err    error
}

// SegmentAll segments every comment on the worker pool. A failing comment is
// skipped and reported in SkippedIDs; only cancellation returns an error.
func (t *Tokenizer) SegmentAll(ctx context.Context, comments []models.Comment) (Result, error) {
	outs, err := workers.Map(ctx, t.workers, comments, func(_ context.Context, _ int, c models.Comment) segmented {
		tokens, err := t.Segment(c.Text)
		return segmented{tokens: tokens, err: err}
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Sequences: make([]models.TokenSequence, 0, len(comments))}
	for i, out := range outs {
		if out.err != nil {
			slog.Warn("[Tokenizer] Skipping comment after segmentation failure",
				slog.String("comment_id", comments[i].ID),
				slog.String("error", out.err.Error()))
			res.SkippedIDs = append(res.SkippedIDs, comments[i].ID)
			continue
		}
		res.Sequences = append(res.Sequences, models.TokenSequence{
			CommentID: comments[i].ID,
			Tokens:    out.tokens,
		})
	}
	return res, nil
}
