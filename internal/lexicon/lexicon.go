// Package lexicon holds the stopword set and the user dictionary that steer
// segmentation and filtering. A Lexicon is built once per run and is read-only
// afterwards, so it can be shared by any number of goroutines.
package lexicon

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spacesedan/danmakuflow/internal/internalerr"
)

// ControlStopwords are always filtered: whitespace artifacts and the
// replacement character left behind by unencodable glyphs.
var ControlStopwords = []string{" ", "", "\n", "\t", "\u00a0", "\u3000", "\ufffd"}

// Entry is one user dictionary line: a word with optional frequency and tag.
type Entry struct {
	Word string
	Freq int
	Tag  string
}

// Registrar receives user dictionary words. The segmentation backend
// implements it.
type Registrar interface {
	AddWord(word string, freq int, tag string)
}

type Lexicon struct {
	entries   []Entry
	stopwords map[string]struct{}
}

// New builds a lexicon from in-memory entries and stopwords. The control
// stopwords are always added.
func New(entries []Entry, stopwords []string) *Lexicon {
	l := &Lexicon{
		entries:   append([]Entry(nil), entries...),
		stopwords: make(map[string]struct{}, len(stopwords)+len(ControlStopwords)),
	}
	for _, w := range stopwords {
		l.stopwords[w] = struct{}{}
	}
	for _, w := range ControlStopwords {
		l.stopwords[w] = struct{}{}
	}
	return l
}

// Load reads the user dictionary and merges every stopword file. An empty
// userDictPath means no user dictionary; any named file that cannot be read,
// or an empty stopword path list, is a configuration error.
func Load(userDictPath string, stopwordPaths []string) (*Lexicon, error) {
	if len(stopwordPaths) == 0 {
		return nil, internalerr.Configuration("stopwords", fmt.Errorf("no stopword files configured"))
	}

	var entries []Entry
	if userDictPath != "" {
		lines, err := readLines(userDictPath)
		if err != nil {
			return nil, internalerr.Configuration("user dictionary "+userDictPath, err)
		}
		entries = ParseDict(lines)
	}

	var stopwords []string
	for _, path := range stopwordPaths {
		lines, err := readLines(path)
		if err != nil {
			return nil, internalerr.Configuration("stopwords "+path, err)
		}
		stopwords = append(stopwords, lines...)
	}

	return New(entries, stopwords), nil
}

// ParseDict parses "word [freq] [tag]" lines. Blank lines are skipped.
func ParseDict(lines []string) []Entry {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		e := Entry{Word: fields[0]}
		rest := fields[1:]
		if len(rest) > 0 {
			if freq, err := strconv.Atoi(rest[0]); err == nil {
				e.Freq = freq
				rest = rest[1:]
			}
		}
		if len(rest) > 0 {
			e.Tag = rest[0]
		}
		entries = append(entries, e)
	}
	return entries
}

// readLines splits a file on line breaks without trimming, so a stopword
// consisting of a space survives. A leading BOM and trailing CR are removed.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, 1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if len(lines) == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (l *Lexicon) IsStopword(word string) bool {
	_, ok := l.stopwords[word]
	return ok
}

// Register pushes every user dictionary entry into the segmentation backend.
// Call it once, before any segmentation starts.
func (l *Lexicon) Register(r Registrar) {
	for _, e := range l.entries {
		r.AddWord(e.Word, e.Freq, e.Tag)
	}
}

func (l *Lexicon) Stats() Stats {
	return Stats{
		DictEntries: len(l.entries),
		Stopwords:   len(l.stopwords),
	}
}

type Stats struct {
	DictEntries int
	Stopwords   int
}
