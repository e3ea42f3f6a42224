// Package segmenter adapts a Chinese word segmentation library to the small
// capability set the analysis stages need: precise-mode cutting, user
// dictionary registration and TF-IDF keyword scoring against the library's
// built-in IDF table.
package segmenter

import "github.com/spacesedan/danmakuflow/internal/models"

// Segmenter is safe for concurrent Cut and ExtractWithWeight calls once all
// AddWord calls have returned.
type Segmenter interface {
	Cut(text string, hmm bool) ([]string, error)
	AddWord(word string, freq int, tag string)
	ExtractWithWeight(text string, topK int) []models.KeywordEntry
}
