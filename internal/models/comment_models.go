package models

import "strings"

// RawRecord is one row handed over by a source reader. Text is left untyped
// so that non-string cells can be coerced by the normalizer.
type RawRecord struct {
	ID     string
	Text   any
	Fields map[string]string
}

// Comment is a deduplicated, length-checked danmaku line. It is never mutated
// after the normalizer produces it.
type Comment struct {
	ID     string            `json:"id"`
	Text   string            `json:"text"`
	Fields map[string]string `json:"fields,omitempty"`
}

// TokenSequence is the filtered word list derived from one comment.
type TokenSequence struct {
	CommentID string   `json:"comment_id"`
	Tokens    []string `json:"tokens"`
}

// Joined returns the space separated form written to the tokenized corpus table.
func (s TokenSequence) Joined() string {
	return strings.Join(s.Tokens, " ")
}
