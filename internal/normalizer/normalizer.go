// Package normalizer cleans raw comment rows before analysis: it coerces
// cells to text, applies a Unicode normal form, drops short lines and removes
// exact duplicates while keeping first-seen order.
package normalizer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/spacesedan/danmakuflow/internal/models"
)

const DefaultMinLength = 4

type Options struct {
	MinLength int
	// NormalForm is one of "none", "nfc" or "nfkc". Empty means nfc.
	NormalForm string
}

type Normalizer struct {
	minLength int
	form      *norm.Form
}

func New(opts Options) *Normalizer {
	n := &Normalizer{minLength: opts.MinLength}
	switch strings.ToLower(opts.NormalForm) {
	case "none":
	case "nfkc":
		f := norm.NFKC
		n.form = &f
	default:
		f := norm.NFC
		n.form = &f
	}
	return n
}

// Normalize returns the surviving comments in first-seen order. Records whose
// text cannot be coerced are treated as empty and dropped.
func (n *Normalizer) Normalize(records []models.RawRecord) []models.Comment {
	seen := make(map[string]struct{}, len(records))
	comments := make([]models.Comment, 0, len(records))

	for _, rec := range records {
		text := n.apply(Coerce(rec.Text))
		if utf8.RuneCountInString(text) < n.minLength {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}

		id := rec.ID
		if id == "" {
			id = ulid.Make().String()
		}
		comments = append(comments, models.Comment{
			ID:     id,
			Text:   text,
			Fields: rec.Fields,
		})
	}

	return comments
}

func (n *Normalizer) apply(s string) string {
	if n.form == nil || s == "" {
		return s
	}
	return n.form.String(s)
}

// Coerce renders a cell value as text. Missing values (nil, NaN) and values
// whose String method panics become the empty string.
func Coerce(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = ""
		}
	}()

	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		if !utf8.Valid(t) {
			return strings.ToValidUTF8(string(t), "\ufffd")
		}
		return string(t)
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		if math.IsNaN(float64(t)) {
			return ""
		}
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
