package services

import (
	"github.com/google/uuid"

	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

// ProgressEvent is emitted once per generated row of an active run.
type ProgressEvent struct {
	RunID     uuid.UUID
	DatasetID int64
	Row       *models.DatasetRow
	Generated int64
	Target    int64
}

// StatusEvent is the terminal notification of a run. Exactly one is expected
// per run; duplicates are applied idempotently.
type StatusEvent struct {
	RunID   uuid.UUID
	Status  models.RunStatus
	Message string
}
