// Package export writes run outputs to files: CSV tables, the tokenized
// corpus workbook, the summary report and the stage metrics textfile.
package export

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	TokenizedCSV     = "tokenized.csv"
	KeywordsCSV      = "keywords_tfidf.csv"
	WordCountsCSV    = "word_counts.csv"
	WordCountsTopCSV = "word_counts_top20.csv"
	SentimentCSV     = "sentiment.csv"
	TokenizedXLSX    = "tokenized.xlsx"
	ReportMarkdown   = "report.md"
	ReportHTML       = "report.html"
	MetricsTextfile  = "metrics.prom"
)

// utf8BOM lets spreadsheet tools detect UTF-8 in the CSV files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// fileSet records the files a writer produced.
type fileSet struct {
	dir   string
	mu    sync.Mutex
	files []string
}

func (f *fileSet) path(name string) (string, error) {
	if err := os.MkdirAll(f.dir, os.ModePerm); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, name), nil
}

func (f *fileSet) record(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.files {
		if p == path {
			return
		}
	}
	f.files = append(f.files, path)
}

// Files lists the written paths in sorted order.
func (f *fileSet) Files() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.files...)
	sort.Strings(out)
	return out
}
