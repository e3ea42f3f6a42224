package export

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacesedan/danmakuflow/internal/models"
)

// StageMetrics holds one run's gauges in a private registry so they can be
// dumped to a node_exporter textfile.
type StageMetrics struct {
	registry *prometheus.Registry
	items    *prometheus.GaugeVec
	skipped  *prometheus.GaugeVec
	duration *prometheus.GaugeVec
	status   *prometheus.GaugeVec
	labels   *prometheus.GaugeVec
}

func NewStageMetrics() *StageMetrics {
	m := &StageMetrics{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "danmaku_stage_items",
			Help: "Items produced by a pipeline stage.",
		}, []string{"stage"}),
		skipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "danmaku_stage_skipped",
			Help: "Inputs a pipeline stage had to leave out.",
		}, []string{"stage"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "danmaku_stage_duration_seconds",
			Help: "Wall time of a pipeline stage.",
		}, []string{"stage"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "danmaku_stage_status",
			Help: "1 for the status a pipeline stage finished with.",
		}, []string{"stage", "status"}),
		labels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "danmaku_sentiment_comments",
			Help: "Comments per sentiment label.",
		}, []string{"label"}),
	}
	m.registry.MustRegister(m.items, m.skipped, m.duration, m.status, m.labels)
	return m
}

func (m *StageMetrics) Observe(summary models.RunSummary) {
	for _, st := range summary.Stages {
		m.items.WithLabelValues(st.Stage).Set(float64(st.Items))
		m.skipped.WithLabelValues(st.Stage).Set(float64(st.Skipped))
		m.duration.WithLabelValues(st.Stage).Set(st.Duration.Seconds())
		for _, s := range []models.StageStatus{models.StageOK, models.StageFailed, models.StageSkipped} {
			v := 0.0
			if st.Status == s {
				v = 1
			}
			m.status.WithLabelValues(st.Stage, string(s)).Set(v)
		}
	}
}

func (m *StageMetrics) ObserveLabels(counts map[models.SentimentLabel]int) {
	for label, n := range counts {
		m.labels.WithLabelValues(string(label)).Set(float64(n))
	}
}

// WriteTextfile writes the gauges in the Prometheus text format into dir.
func (m *StageMetrics) WriteTextfile(dir string) (string, error) {
	fs := fileSet{dir: dir}
	path, err := fs.path(MetricsTextfile)
	if err != nil {
		return "", err
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return "", fmt.Errorf("write metrics: %w", err)
	}
	return path, nil
}
