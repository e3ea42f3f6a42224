// Package keywords extracts the top TF-IDF keywords of a tokenized corpus.
//
// The whole corpus is joined into one document before scoring. Term frequency
// is therefore measured across the entire corpus while inverse document
// frequency comes from the segmentation backend's built-in reference table,
// not from the comments themselves. Scores are relative to that reference
// corpus and are only comparable within one run.
package keywords

import (
	"math"
	"sort"
	"strings"

	"github.com/spacesedan/danmakuflow/internal/models"
)

const DefaultTopK = 50

// Scorer computes weighted keywords for a single document.
type Scorer interface {
	ExtractWithWeight(text string, topK int) []models.KeywordEntry
}

type Extractor struct {
	scorer Scorer
}

func New(scorer Scorer) *Extractor {
	return &Extractor{scorer: scorer}
}

// ExtractTopK returns at most k keywords with non-negative scores in
// non-increasing score order. Entries the backend reports with equal scores
// keep the backend's order. Empty or whitespace-only text yields no keywords.
func (e *Extractor) ExtractTopK(text string, k int) []models.KeywordEntry {
	if k <= 0 {
		k = DefaultTopK
	}
	if strings.TrimSpace(text) == "" {
		return []models.KeywordEntry{}
	}

	raw := e.scorer.ExtractWithWeight(text, k)
	out := make([]models.KeywordEntry, 0, len(raw))
	for _, kw := range raw {
		if kw.Word == "" || math.IsNaN(kw.Score) || kw.Score < 0 {
			continue
		}
		out = append(out, kw)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// JoinCorpus joins every sequence's tokens with single spaces into one document.
func JoinCorpus(seqs []models.TokenSequence) string {
	var b strings.Builder
	for _, s := range seqs {
		if len(s.Tokens) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.Joined())
	}
	return b.String()
}
