package segmenter

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yanyiwu/gojieba"

	"github.com/spacesedan/danmakuflow/internal/internalerr"
	"github.com/spacesedan/danmakuflow/internal/models"
)

// Dictionary files expected in a custom jieba dictionary directory, in the
// order gojieba.NewJieba takes them.
var jiebaDictFiles = []string{
	"jieba.dict.utf8",
	"hmm_model.utf8",
	"user.dict.utf8",
	"idf.utf8",
	"stop_words.utf8",
}

type Jieba struct {
	x *gojieba.Jieba
	// stop mirrors the extractor's stop list so candidate totals match the
	// words gojieba counts.
	stop map[string]struct{}
}

// NewJieba loads the jieba dictionaries. An empty dictDir uses the
// dictionaries bundled with gojieba.
func NewJieba(dictDir string) (*Jieba, error) {
	if dictDir == "" {
		stop, err := loadStopWords(gojieba.STOP_WORDS_PATH)
		if err != nil {
			return nil, err
		}
		slog.Info("[Segmenter] Loading bundled jieba dictionaries")
		return &Jieba{x: gojieba.NewJieba(), stop: stop}, nil
	}

	paths := make([]string, 0, len(jiebaDictFiles))
	for _, name := range jiebaDictFiles {
		p := filepath.Join(dictDir, name)
		if _, err := os.Stat(p); err != nil {
			return nil, internalerr.Configuration("jieba dictionary "+p, err)
		}
		paths = append(paths, p)
	}

	stop, err := loadStopWords(paths[len(paths)-1])
	if err != nil {
		return nil, err
	}
	slog.Info("[Segmenter] Loading jieba dictionaries", slog.String("dir", dictDir))
	return &Jieba{x: gojieba.NewJieba(paths...), stop: stop}, nil
}

func loadStopWords(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, internalerr.Configuration("jieba stop words "+path, err)
	}
	stop := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		stop[line] = struct{}{}
	}
	return stop, nil
}

func (j *Jieba) Cut(text string, hmm bool) ([]string, error) {
	return j.x.Cut(text, hmm), nil
}

func (j *Jieba) AddWord(word string, freq int, tag string) {
	if freq <= 0 && tag == "" {
		j.x.AddWord(word)
		return
	}
	j.x.AddWordEx(word, freq, tag)
}

// ExtractWithWeight scores text as one document: the word's share of all
// candidate words in text times the IDF from jieba's idf.utf8 table.
// gojieba returns count x IDF, so its weights are divided by the candidate
// total here.
func (j *Jieba) ExtractWithWeight(text string, topK int) []models.KeywordEntry {
	weights := j.x.ExtractWithWeight(text, topK)
	if len(weights) == 0 {
		return []models.KeywordEntry{}
	}
	total := candidateCount(j.x.Cut(text, true), j.stop)
	if total == 0 {
		total = 1
	}
	out := make([]models.KeywordEntry, 0, len(weights))
	for _, w := range weights {
		out = append(out, models.KeywordEntry{Word: w.Word, Score: w.Weight / float64(total)})
	}
	return out
}

// candidateCount counts the words the extractor scores: at least two runes
// and not on the stop list.
func candidateCount(words []string, stop map[string]struct{}) int {
	n := 0
	for _, w := range words {
		if utf8.RuneCountInString(w) < 2 {
			continue
		}
		if _, ok := stop[w]; ok {
			continue
		}
		n++
	}
	return n
}

func (j *Jieba) Close() error {
	j.x.Free()
	return nil
}
