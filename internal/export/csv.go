package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/spacesedan/danmakuflow/internal/models"
)

// CSVSink writes every output table as a BOM-prefixed UTF-8 CSV file.
type CSVSink struct {
	fileSet
	textColumn string
}

// NewCSVSink writes into dir. textColumn names the comment text column of the
// sentiment table, matching the source file's header.
func NewCSVSink(dir, textColumn string) *CSVSink {
	if textColumn == "" {
		textColumn = "text"
	}
	return &CSVSink{fileSet: fileSet{dir: dir}, textColumn: textColumn}
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) writeFile(name string, header []string, rows [][]string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	s.record(path)
	slog.Info("[CSVSink] Wrote file", slog.String("path", path), slog.Int("rows", len(rows)))
	return nil
}

func (s *CSVSink) WriteTokens(_ context.Context, _ string, seqs []models.TokenSequence) error {
	rows := make([][]string, len(seqs))
	for i, seq := range seqs {
		rows[i] = []string{seq.CommentID, seq.Joined()}
	}
	return s.writeFile(TokenizedCSV, []string{"id", TokenizedColumn}, rows)
}

func (s *CSVSink) WriteKeywords(_ context.Context, _ string, keywords []models.KeywordEntry) error {
	rows := make([][]string, len(keywords))
	for i, kw := range keywords {
		rows[i] = []string{kw.Word, strconv.FormatFloat(kw.Score, 'f', -1, 64)}
	}
	return s.writeFile(KeywordsCSV, []string{"word", "tfidf"}, rows)
}

func (s *CSVSink) WriteFrequencies(_ context.Context, _ string, all, top []models.WordCount) error {
	if err := s.writeFile(WordCountsCSV, []string{"word", "count"}, wordCountRows(all)); err != nil {
		return err
	}
	return s.writeFile(WordCountsTopCSV, []string{"word", "count"}, wordCountRows(top))
}

func wordCountRows(counts []models.WordCount) [][]string {
	rows := make([][]string, len(counts))
	for i, wc := range counts {
		rows[i] = []string{wc.Word, strconv.Itoa(wc.Count)}
	}
	return rows
}

// WriteSentiment echoes each comment's id, text and remaining source fields,
// then appends label and confidence. Unknown results have an empty
// confidence cell.
func (s *CSVSink) WriteSentiment(_ context.Context, _ string, comments []models.Comment, results []models.SentimentResult) error {
	if len(comments) != len(results) {
		return fmt.Errorf("%d comments but %d sentiment results", len(comments), len(results))
	}

	fields := fieldNames(comments, s.textColumn)
	header := append([]string{"id", s.textColumn}, fields...)
	header = append(header, "label", "confidence")

	rows := make([][]string, len(comments))
	for i, c := range comments {
		row := make([]string, 0, len(header))
		row = append(row, c.ID, c.Text)
		for _, f := range fields {
			row = append(row, c.Fields[f])
		}
		conf := ""
		if results[i].Confidence != nil {
			conf = strconv.FormatFloat(*results[i].Confidence, 'f', 6, 64)
		}
		rows[i] = append(row, string(results[i].Label), conf)
	}
	return s.writeFile(SentimentCSV, header, rows)
}

func fieldNames(comments []models.Comment, exclude ...string) []string {
	skip := map[string]bool{"id": true, "label": true, "confidence": true}
	for _, e := range exclude {
		skip[e] = true
	}
	seen := map[string]bool{}
	var names []string
	for _, c := range comments {
		for k := range c.Fields {
			if !seen[k] && !skip[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}
