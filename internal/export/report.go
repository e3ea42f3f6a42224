package export

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/russross/blackfriday/v2"

	"github.com/spacesedan/danmakuflow/internal/models"
)

// ReportData is everything the summary report shows. Sections whose stage
// failed are rendered as unavailable.
type ReportData struct {
	Summary    models.RunSummary
	Comments   int
	Keywords   []models.KeywordEntry
	TopWords   []models.WordCount
	Sentiment  map[models.SentimentLabel]int
	Files      []string
	KeywordsOK bool
	WordsOK    bool
	LabelsOK   bool
}

// Markdown renders the report as GitHub flavoured markdown tables.
func (d ReportData) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Danmaku analysis %s\n\n", d.Summary.RunID)
	fmt.Fprintf(&b, "Comments analysed: %d\n\n", d.Comments)

	b.WriteString("## Stages\n\n| stage | status | items | skipped | duration | error |\n|---|---|---|---|---|---|\n")
	for _, st := range d.Summary.Stages {
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %s | %s |\n",
			st.Stage, st.Status, st.Items, st.Skipped, st.Duration.Round(time.Millisecond), escapeCell(st.Error))
	}

	b.WriteString("\n## Sentiment\n\n")
	if d.LabelsOK {
		total := 0
		for _, n := range d.Sentiment {
			total += n
		}
		b.WriteString("| label | comments | share |\n|---|---|---|\n")
		for _, label := range []models.SentimentLabel{models.LabelPositive, models.LabelNegative, models.LabelUnknown} {
			share := 0.0
			if total > 0 {
				share = float64(d.Sentiment[label]) / float64(total) * 100
			}
			fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", label, d.Sentiment[label], share)
		}
	} else {
		b.WriteString("_unavailable_\n")
	}

	b.WriteString("\n## Top words\n\n")
	if d.WordsOK {
		b.WriteString("| rank | word | count |\n|---|---|---|\n")
		for i, wc := range d.TopWords {
			fmt.Fprintf(&b, "| %d | %s | %d |\n", i+1, escapeCell(wc.Word), wc.Count)
		}
	} else {
		b.WriteString("_unavailable_\n")
	}

	b.WriteString("\n## Keywords (TF-IDF)\n\n")
	if d.KeywordsOK {
		b.WriteString("| rank | word | score |\n|---|---|---|\n")
		for i, kw := range d.Keywords {
			fmt.Fprintf(&b, "| %d | %s | %.4f |\n", i+1, escapeCell(kw.Word), kw.Score)
		}
	} else {
		b.WriteString("_unavailable_\n")
	}

	if len(d.Files) > 0 {
		b.WriteString("\n## Files\n\n")
		for _, f := range d.Files {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// HTML renders the markdown report with table support.
func (d ReportData) HTML() []byte {
	body := blackfriday.Run([]byte(d.Markdown()), blackfriday.WithExtensions(blackfriday.CommonExtensions))

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Danmaku analysis</title></head><body>\n")
	b.Write(body)
	b.WriteString("</body></html>\n")
	return []byte(b.String())
}

// WriteReport writes report.md and report.html into dir and returns their paths.
func WriteReport(dir string, d ReportData) ([]string, error) {
	fs := fileSet{dir: dir}
	mdPath, err := fs.path(ReportMarkdown)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(mdPath, []byte(d.Markdown()), 0o644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	htmlPath, _ := fs.path(ReportHTML)
	if err := os.WriteFile(htmlPath, d.HTML(), 0o644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	slog.Info("[Report] Wrote summary report", slog.String("path", htmlPath))
	return []string{mdPath, htmlPath}, nil
}
