package normalizer

import (
	"math"
	"testing"
	"unicode/utf8"

	"github.com/spacesedan/danmakuflow/internal/models"
)

func records(texts ...any) []models.RawRecord {
	out := make([]models.RawRecord, len(texts))
	for i, t := range texts {
		out[i] = models.RawRecord{Text: t}
	}
	return out
}

func texts(comments []models.Comment) []string {
	out := make([]string, len(comments))
	for i, c := range comments {
		out[i] = c.Text
	}
	return out
}

func TestNormalizeDropsShortAndDuplicates(t *testing.T) {
	n := New(Options{MinLength: 4})
	got := texts(n.Normalize(records("nice show!!", "nice show!!", "ok", "terrible terrible terrible")))

	want := []string{"nice show!!", "terrible terrible terrible"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNormalizeCountsRunes(t *testing.T) {
	n := New(Options{MinLength: 4})
	// three CJK characters are nine bytes but only three runes
	got := texts(n.Normalize(records("哈哈哈", "哈哈哈哈", "前方高能")))
	if len(got) != 2 || got[0] != "哈哈哈哈" || got[1] != "前方高能" {
		t.Errorf("unexpected result %v", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New(Options{MinLength: 4})
	first := n.Normalize(records("弹幕护体", "弹幕护体", "awsl", "xswl!!", "名场面来了"))

	again := make([]models.RawRecord, len(first))
	for i, c := range first {
		again[i] = models.RawRecord{ID: c.ID, Text: c.Text}
	}
	second := n.Normalize(again)

	if len(first) != len(second) {
		t.Fatalf("second pass changed size: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text || first[i].ID != second[i].ID {
			t.Errorf("comment %d changed: %+v -> %+v", i, first[i], second[i])
		}
	}
}

func TestNormalizeInvariants(t *testing.T) {
	n := New(Options{MinLength: 4})
	got := n.Normalize(records("abcd", nil, 12345.0, math.NaN(), []byte("abcd"), 3, "abcde", "ａｂｃｄ"))

	seen := map[string]bool{}
	for _, c := range got {
		if utf8.RuneCountInString(c.Text) < 4 {
			t.Errorf("short text survived: %q", c.Text)
		}
		if seen[c.Text] {
			t.Errorf("duplicate text survived: %q", c.Text)
		}
		seen[c.Text] = true
		if c.ID == "" {
			t.Errorf("comment %q has no id", c.Text)
		}
	}
	if !seen["12345"] {
		t.Errorf("numeric cell should be coerced to text, got %v", texts(got))
	}
	if !seen["ａｂｃｄ"] {
		t.Errorf("NFC must keep full-width text distinct, got %v", texts(got))
	}
}

func TestNormalizeNFKCFoldsWidth(t *testing.T) {
	n := New(Options{MinLength: 4, NormalForm: "nfkc"})
	got := texts(n.Normalize(records("abcd", "ａｂｃｄ")))
	if len(got) != 1 || got[0] != "abcd" {
		t.Errorf("NFKC should fold full-width duplicates, got %v", got)
	}
}

func TestNormalizeKeepsIDsAndFields(t *testing.T) {
	n := New(Options{MinLength: 4})
	in := []models.RawRecord{{ID: "row-7", Text: "前方高能预警", Fields: map[string]string{"时间": "00:12"}}}
	got := n.Normalize(in)
	if len(got) != 1 || got[0].ID != "row-7" || got[0].Fields["时间"] != "00:12" {
		t.Errorf("unexpected comment %+v", got)
	}
}

type panicStringer struct{}

func (panicStringer) String() string { panic("bad cell") }

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{42, "42"},
		{1.5, "1.5"},
		{math.NaN(), ""},
		{panicStringer{}, ""},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := Coerce(tt.in); got != tt.want {
			t.Errorf("Coerce(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
