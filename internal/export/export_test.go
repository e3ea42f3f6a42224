package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spacesedan/danmakuflow/internal/clients/kafka_client"
	"github.com/spacesedan/danmakuflow/internal/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, utf8BOM) {
		t.Fatalf("%s has no UTF-8 BOM", path)
	}
	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestCSVSinkSentiment(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir, "内容")

	conf := 0.875
	comments := []models.Comment{
		{ID: "1", Text: "这首歌太好听了", Fields: map[string]string{"时间": "00:12", "用户": "u1"}},
		{ID: "2", Text: "什么鬼啊这是", Fields: map[string]string{"时间": "01:30"}},
	}
	results := []models.SentimentResult{
		{CommentID: "1", Label: models.LabelPositive, Confidence: &conf},
		models.UnknownSentiment("2"),
	}
	if err := sink.WriteSentiment(context.Background(), "run", comments, results); err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, filepath.Join(dir, SentimentCSV))
	want := [][]string{
		{"id", "内容", "时间", "用户", "label", "confidence"},
		{"1", "这首歌太好听了", "00:12", "u1", "positive", "0.875000"},
		{"2", "什么鬼啊这是", "01:30", "", "unknown", ""},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestCSVSinkTables(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir, "")
	ctx := context.Background()

	all := []models.WordCount{{Word: "好听", Count: 3}, {Word: "泪目", Count: 1}}
	if err := sink.WriteFrequencies(ctx, "run", all, all[:1]); err != nil {
		t.Fatal(err)
	}
	if err := sink.WriteKeywords(ctx, "run", []models.KeywordEntry{{Word: "好听", Score: 1.25}}); err != nil {
		t.Fatal(err)
	}
	if err := sink.WriteTokens(ctx, "run", []models.TokenSequence{{CommentID: "1", Tokens: []string{"前方", "高能"}}}); err != nil {
		t.Fatal(err)
	}

	if rows := readCSV(t, filepath.Join(dir, WordCountsTopCSV)); len(rows) != 2 || rows[1][0] != "好听" {
		t.Errorf("top rows = %v", rows)
	}
	if rows := readCSV(t, filepath.Join(dir, KeywordsCSV)); rows[1][1] != "1.25" {
		t.Errorf("keyword rows = %v", rows)
	}
	if rows := readCSV(t, filepath.Join(dir, TokenizedCSV)); rows[1][1] != "前方 高能" {
		t.Errorf("token rows = %v", rows)
	}
	if got := len(sink.Files()); got != 4 {
		t.Errorf("Files() lists %d files, want 4", got)
	}
}

func TestXLSXSinkTokens(t *testing.T) {
	dir := t.TempDir()
	sink := NewXLSXSink(dir)
	seqs := []models.TokenSequence{{CommentID: "a", Tokens: []string{"名场面"}}, {CommentID: "b", Tokens: []string{"awsl", "太甜了"}}}
	if err := sink.WriteTokens(context.Background(), "run", seqs); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(filepath.Join(dir, TokenizedXLSX))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(TokenizedSheet)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"id", TokenizedColumn}, {"a", "名场面"}, {"b", "awsl 太甜了"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v", rows)
	}
}

func TestReport(t *testing.T) {
	d := ReportData{
		Summary: models.RunSummary{RunID: "01HX", Stages: []models.StageReport{
			{Stage: "normalize", Status: models.StageOK, Items: 3, Duration: 2 * time.Millisecond},
			{Stage: "sentiment", Status: models.StageFailed, Error: "configuration error: model"},
		}},
		Comments: 3,
		TopWords: []models.WordCount{{Word: "好听", Count: 2}},
		WordsOK:  true,
	}
	md := d.Markdown()
	for _, want := range []string{"| normalize | ok | 3 |", "| 1 | 好听 | 2 |", "## Sentiment\n\n_unavailable_"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if html := string(d.HTML()); !strings.Contains(html, "<table>") {
		t.Errorf("html has no table:\n%s", html)
	}

	paths, err := WriteReport(t.TempDir(), d)
	if err != nil || len(paths) != 2 {
		t.Fatalf("WriteReport = %v, %v", paths, err)
	}
}

func TestStageMetricsTextfile(t *testing.T) {
	m := NewStageMetrics()
	m.Observe(models.RunSummary{Stages: []models.StageReport{
		{Stage: "tokenize", Status: models.StageOK, Items: 10, Skipped: 2},
	}})
	m.ObserveLabels(map[models.SentimentLabel]int{models.LabelPositive: 7})

	path, err := m.WriteTextfile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`danmaku_stage_items{stage="tokenize"} 10`,
		`danmaku_stage_skipped{stage="tokenize"} 2`,
		`danmaku_stage_status{stage="tokenize",status="ok"} 1`,
		`danmaku_sentiment_comments{label="positive"} 7`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

type recordingPublisher struct {
	topic string
	msgs  []kafka_client.Message
}

func (p *recordingPublisher) PublishBatch(_ context.Context, topic string, msgs []kafka_client.Message) error {
	p.topic, p.msgs = topic, msgs
	return nil
}

func TestKafkaSink(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewKafkaSink(pub, "danmaku-sentiment")
	err := sink.WriteSentiment(context.Background(), "run-9",
		[]models.Comment{{ID: "c1", Text: "哈哈哈哈"}},
		[]models.SentimentResult{models.UnknownSentiment("c1")})
	if err != nil {
		t.Fatal(err)
	}
	if pub.topic != "danmaku-sentiment" || len(pub.msgs) != 1 || string(pub.msgs[0].Key) != "c1" {
		t.Fatalf("published %+v to %s", pub.msgs, pub.topic)
	}
	var got map[string]any
	if err := json.Unmarshal(pub.msgs[0].Value, &got); err != nil {
		t.Fatal(err)
	}
	if got["run_id"] != "run-9" || got["label"] != "unknown" || got["text"] != "哈哈哈哈" {
		t.Errorf("message = %v", got)
	}
	if _, ok := got["confidence"]; ok {
		t.Error("unknown result should omit confidence")
	}
}
