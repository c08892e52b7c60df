package model

import "time"

type ScoringRunStatus string

const (
	ScoringRunStatusRunning   ScoringRunStatus = "running"
	ScoringRunStatusCompleted ScoringRunStatus = "completed"
	ScoringRunStatusFailed    ScoringRunStatus = "failed"
)

// ScoringRun is one execution of the scoring pipeline. Only its status and counts
// change after creation, and only the run that created it writes them.
type ScoringRun struct {
	RunAt      time.Time        `json:"run_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Error      *string          `json:"error,omitempty"`
	Status     ScoringRunStatus `json:"status"`
	ID         int64            `json:"id"`
	Attempted  int32            `json:"attempted"`
	Succeeded  int32            `json:"succeeded"`
	Failed     int32            `json:"failed"`
}

func (r ScoringRun) IsFinished() bool {
	return r.Status == ScoringRunStatusCompleted || r.Status == ScoringRunStatusFailed
}
