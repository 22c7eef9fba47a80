package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a generation run.
type RunStatus string

const (
	RunStatusStarted   RunStatus = "started"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether the status ends a run's lifecycle.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusCancelled || s == RunStatusFailed
}

// GenerationRun tracks one asynchronous request to populate rows of a
// dataset. At most one run may be active (non-terminal) per dataset.
type GenerationRun struct {
	ID            uuid.UUID   `json:"id"`
	DatasetID     int64       `json:"dataset_id"`
	ModelID       int64       `json:"model_id"`
	TargetRows    int64       `json:"target_rows"`
	GeneratedRows int64       `json:"generated_rows"`
	LastRow       *DatasetRow `json:"last_row,omitempty"`
	Status        RunStatus   `json:"status"`
	Message       string      `json:"message,omitempty"`
	StartedAt     time.Time   `json:"started_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
