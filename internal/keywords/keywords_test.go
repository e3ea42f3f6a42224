package keywords

import (
	"math"
	"testing"

	"github.com/spacesedan/danmakuflow/internal/models"
)

type stubScorer struct {
	entries []models.KeywordEntry
	calls   int
}

func (s *stubScorer) ExtractWithWeight(string, int) []models.KeywordEntry {
	s.calls++
	return s.entries
}

func TestExtractTopKEmptyInput(t *testing.T) {
	scorer := &stubScorer{entries: []models.KeywordEntry{{Word: "x", Score: 1}}}
	e := New(scorer)
	for _, text := range []string{"", "   ", "\n\t"} {
		got := e.ExtractTopK(text, 10)
		if got == nil || len(got) != 0 {
			t.Errorf("ExtractTopK(%q) = %v, want empty slice", text, got)
		}
	}
	if scorer.calls != 0 {
		t.Errorf("backend called %d times for empty input", scorer.calls)
	}
}

func TestExtractTopKPostConditions(t *testing.T) {
	scorer := &stubScorer{entries: []models.KeywordEntry{
		{Word: "好听", Score: 0.4},
		{Word: "泪目", Score: 0.9},
		{Word: "bad", Score: -0.1},
		{Word: "nan", Score: math.NaN()},
		{Word: "名场面", Score: 0.4},
		{Word: "前方", Score: 0.2},
	}}
	got := New(scorer).ExtractTopK("泪目 好听 名场面 前方", 3)

	want := []string{"泪目", "好听", "名场面"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i, kw := range got {
		if kw.Word != want[i] {
			t.Errorf("entry %d = %s, want %s", i, kw.Word, want[i])
		}
		if kw.Score < 0 {
			t.Errorf("negative score %v", kw)
		}
		if i > 0 && kw.Score > got[i-1].Score {
			t.Errorf("scores not non-increasing at %d", i)
		}
	}
}

func TestJoinCorpus(t *testing.T) {
	in := []models.TokenSequence{
		{CommentID: "1", Tokens: []string{"前方", "高能"}},
		{CommentID: "2"},
		{CommentID: "3", Tokens: []string{"泪目"}},
	}
	if got := JoinCorpus(in); got != "前方 高能 泪目" {
		t.Errorf("JoinCorpus = %q", got)
	}
}
