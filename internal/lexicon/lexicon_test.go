package lexicon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spacesedan/danmakuflow/internal/internalerr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type recordingRegistrar struct {
	entries []Entry
}

func (r *recordingRegistrar) AddWord(word string, freq int, tag string) {
	r.entries = append(r.entries, Entry{Word: word, Freq: freq, Tag: tag})
}

func TestLoadMergesStopwordFiles(t *testing.T) {
	dir := t.TempDir()
	dict := writeFile(t, dir, "keep_words.txt", "\ufeff名场面 10 n\n破防\n\n高能 nz\n")
	hit := writeFile(t, dir, "stopwords_hit.txt", "的\r\n了\r\n")
	mine := writeFile(t, dir, "mystopwords.txt", "哈哈\n的\n")

	lex, err := Load(dict, []string{hit, mine})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, w := range []string{"的", "了", "哈哈"} {
		if !lex.IsStopword(w) {
			t.Errorf("%q should be a stopword", w)
		}
	}
	for _, w := range ControlStopwords {
		if !lex.IsStopword(w) {
			t.Errorf("control stopword %q missing", w)
		}
	}
	if lex.IsStopword("名场面") {
		t.Error("dictionary word must not be a stopword")
	}

	reg := &recordingRegistrar{}
	lex.Register(reg)
	want := []Entry{{"名场面", 10, "n"}, {"破防", 0, ""}, {"高能", 0, "nz"}}
	if len(reg.entries) != len(want) {
		t.Fatalf("registered %+v", reg.entries)
	}
	for i := range want {
		if reg.entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, reg.entries[i], want[i])
		}
	}
}

func TestLoadMissingFileIsConfigurationError(t *testing.T) {
	dir := t.TempDir()
	hit := writeFile(t, dir, "stopwords_hit.txt", "的\n")

	tests := []struct {
		name      string
		dict      string
		stopwords []string
	}{
		{"missing dictionary", filepath.Join(dir, "nope.txt"), []string{hit}},
		{"missing stopwords", "", []string{hit, filepath.Join(dir, "nope.txt")}},
		{"no stopword files", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.dict, tt.stopwords)
			if !errors.Is(err, internalerr.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestLoadWithoutUserDict(t *testing.T) {
	hit := writeFile(t, t.TempDir(), "stop.txt", "the\n")
	lex, err := Load("", []string{hit})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if lex.Stats().DictEntries != 0 {
		t.Error("expected no dictionary entries")
	}
	if !lex.IsStopword("the") {
		t.Error("expected 'the' to be a stopword")
	}
}
