package domain

import "time"

// RunStatus represents the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// PipelineRun records one collect-and-unify cycle.
type PipelineRun struct {
	ID          string // uuid
	Status      RunStatus
	RecordCount int
	GroupCount  int
	RowCount    int
	Error       string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// RunEvent is the payload published on the signal bus when a run finishes.
type RunEvent struct {
	RunID       string    `json:"run_id"`
	Status      RunStatus `json:"status"`
	RecordCount int       `json:"record_count"`
	GroupCount  int       `json:"group_count"`
	RowCount    int       `json:"row_count"`
	FinishedAt  time.Time `json:"finished_at"`
}
