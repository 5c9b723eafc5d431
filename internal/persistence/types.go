package persistence

import "time"

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord is one row of translation run history.
type RunRecord struct {
	ID         string
	SourcePath string
	OutputPath string
	SourceLang string
	TargetLang string
	Status     RunStatus
	Error      string

	TotalLines     int
	TotalBatches   int
	ResumedBatches int
	Duration       time.Duration

	CreatedAt time.Time
	UpdatedAt time.Time
}
