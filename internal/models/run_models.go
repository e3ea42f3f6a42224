package models

import "time"

type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// StageReport records how one pipeline stage finished. Items counts what the
// stage produced, Skipped counts inputs it had to leave out.
type StageReport struct {
	Stage      string            `json:"stage"`
	Status     StageStatus       `json:"status"`
	Error      string            `json:"error,omitempty"`
	Items      int               `json:"items"`
	Skipped    int               `json:"skipped"`
	Duration   time.Duration     `json:"duration"`
	SinkErrors map[string]string `json:"sink_errors,omitempty"`
}

type RunSummary struct {
	RunID  string        `json:"run_id"`
	Stages []StageReport `json:"stages"`
}

func (s RunSummary) Stage(name string) (StageReport, bool) {
	for _, st := range s.Stages {
		if st.Stage == name {
			return st, true
		}
	}
	return StageReport{}, false
}

func (s RunSummary) Failed() []string {
	var failed []string
	for _, st := range s.Stages {
		if st.Status == StageFailed {
			failed = append(failed, st.Stage)
		}
	}
	return failed
}
