package main

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spacesedan/danmakuflow/internal/db"
	"github.com/spacesedan/danmakuflow/internal/export"
	"github.com/spacesedan/danmakuflow/internal/models"
	"github.com/spacesedan/danmakuflow/internal/pipeline"
)

func TestReadBackReportFromSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "danmaku.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	counts := []models.WordCount{{Word: "好听", Count: 5}, {Word: "泪目", Count: 3}, {Word: "名场面", Count: 1}}
	if err := store.WriteFrequencies(ctx, "run-1", counts, counts[:2]); err != nil {
		t.Fatal(err)
	}
	conf := 0.9
	comments := []models.Comment{{ID: "a", Text: "太好听了"}, {ID: "b", Text: "泪目"}, {ID: "c", Text: "..."}}
	results := []models.SentimentResult{
		{CommentID: "a", Label: models.LabelPositive, Confidence: &conf},
		{CommentID: "b", Label: models.LabelNegative, Confidence: &conf},
		models.UnknownSentiment("c"),
	}
	if err := store.WriteSentiment(ctx, "run-1", comments, results); err != nil {
		t.Fatal(err)
	}

	report := export.ReportData{
		TopWords:  []models.WordCount{{Word: "stale", Count: 1}, {Word: "stale2", Count: 1}},
		Sentiment: map[models.SentimentLabel]int{},
		LabelsOK:  true,
		WordsOK:   true,
	}
	readBackReport(ctx, []pipeline.Sink{export.NewCSVSink(t.TempDir(), "content"), store}, "run-1", &report)

	if !reflect.DeepEqual(report.TopWords, counts[:2]) {
		t.Errorf("TopWords = %v, want %v", report.TopWords, counts[:2])
	}
	want := map[models.SentimentLabel]int{models.LabelPositive: 1, models.LabelNegative: 1, models.LabelUnknown: 1}
	if !reflect.DeepEqual(report.Sentiment, want) {
		t.Errorf("Sentiment = %v, want %v", report.Sentiment, want)
	}
}

func TestReadBackReportSkipsFailedSections(t *testing.T) {
	ctx := context.Background()
	store, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "danmaku.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	orig := map[models.SentimentLabel]int{models.LabelPositive: 7}
	report := export.ReportData{Sentiment: orig, LabelsOK: true}
	readBackReport(ctx, []pipeline.Sink{store}, "missing-run", &report)
	if !reflect.DeepEqual(report.Sentiment, orig) {
		t.Errorf("an empty store must not replace counts, got %v", report.Sentiment)
	}
}
