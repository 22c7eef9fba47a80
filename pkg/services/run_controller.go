package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
	"github.com/dataforge-io/dataforge-engine/pkg/grid"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
	"github.com/dataforge-io/dataforge-engine/pkg/repositories"
	"github.com/dataforge-io/dataforge-engine/pkg/rules"
)

// maxRetiredRuns bounds how many retired runs stay queryable. When the bound
// is exceeded the oldest retired run is evicted and later lookups for it
// return ErrRunNotFound.
const maxRetiredRuns = 100

// RunController owns the lifecycle of generation runs. All progress and
// status notifications flow through two typed channels consumed by a single
// dispatcher goroutine, so no two notifications are applied concurrently.
// At most one run may be active per dataset.
type RunController struct {
	generator RowGenerator
	columns   repositories.ColumnRepository
	registry  *grid.Registry
	logger    *zap.Logger

	maxRowsPerRun int64

	mu              sync.RWMutex
	runs            map[uuid.UUID]*models.GenerationRun
	activeByDataset map[int64]uuid.UUID
	cancels         map[uuid.UUID]context.CancelFunc
	retired         []uuid.UUID

	progressCh chan ProgressEvent
	statusCh   chan StatusEvent
	done       chan struct{}
	dispatcher sync.WaitGroup

	onProgress func(ProgressEvent)
	onStatus   func(StatusEvent)
}

// NewRunController creates a controller. Call Start to launch the dispatcher
// and Stop to drain it on shutdown.
func NewRunController(generator RowGenerator, columns repositories.ColumnRepository, registry *grid.Registry, maxRowsPerRun int64, logger *zap.Logger) *RunController {
	if maxRowsPerRun <= 0 {
		maxRowsPerRun = 10000
	}
	return &RunController{
		generator:       generator,
		columns:         columns,
		registry:        registry,
		logger:          logger.Named("runs"),
		maxRowsPerRun:   maxRowsPerRun,
		runs:            make(map[uuid.UUID]*models.GenerationRun),
		activeByDataset: make(map[int64]uuid.UUID),
		cancels:         make(map[uuid.UUID]context.CancelFunc),
		progressCh:      make(chan ProgressEvent, 64),
		statusCh:        make(chan StatusEvent, 16),
		done:            make(chan struct{}),
	}
}

// OnProgress registers an observer invoked after each applied progress
// event. Must be set before Start.
func (c *RunController) OnProgress(fn func(ProgressEvent)) {
	c.onProgress = fn
}

// OnStatus registers an observer invoked once per run retirement. Must be
// set before Start.
func (c *RunController) OnStatus(fn func(StatusEvent)) {
	c.onStatus = fn
}

// Start launches the dispatcher goroutine.
func (c *RunController) Start() {
	c.dispatcher.Add(1)
	go c.dispatch()
}

// Stop terminates the dispatcher. In-flight runs keep generating until their
// contexts are cancelled; events sent after Stop are dropped.
func (c *RunController) Stop() {
	close(c.done)
	c.dispatcher.Wait()
}

// StartRun requests a new generation run for a dataset. Prerequisites are
// checked synchronously so a failed start leaves no run behind: the dataset
// must have columns, the rule graph must be orderable, the model id and row
// count must be positive, and no other run may be active for the dataset.
func (c *RunController) StartRun(ctx context.Context, datasetID, modelID, rowCount int64) (uuid.UUID, error) {
	if modelID <= 0 {
		return uuid.Nil, fmt.Errorf("model id must be positive: %w", apperrors.ErrInvalidInput)
	}
	if rowCount <= 0 {
		return uuid.Nil, fmt.Errorf("row count must be positive: %w", apperrors.ErrInvalidInput)
	}
	if rowCount > c.maxRowsPerRun {
		return uuid.Nil, fmt.Errorf("row count %d exceeds per-run limit %d: %w", rowCount, c.maxRowsPerRun, apperrors.ErrInvalidInput)
	}

	columns, err := c.columns.GetByDataset(ctx, datasetID)
	if err != nil {
		return uuid.Nil, err
	}
	if len(columns) == 0 {
		return uuid.Nil, apperrors.ErrNoColumnsDefined
	}
	// Cross-column cycles fail the run before it exists.
	if _, err := rules.EvaluationOrder(columns); err != nil {
		return uuid.Nil, err
	}

	c.mu.Lock()
	if _, busy := c.activeByDataset[datasetID]; busy {
		c.mu.Unlock()
		return uuid.Nil, apperrors.ErrRunActive
	}

	now := time.Now()
	run := &models.GenerationRun{
		ID:         uuid.New(),
		DatasetID:  datasetID,
		ModelID:    modelID,
		TargetRows: rowCount,
		Status:     models.RunStatusStarted,
		StartedAt:  now,
		UpdatedAt:  now,
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.runs[run.ID] = run
	c.activeByDataset[datasetID] = run.ID
	c.cancels[run.ID] = cancel
	c.mu.Unlock()

	c.logger.Info("generation run started",
		zap.String("run_id", run.ID.String()),
		zap.Int64("dataset_id", datasetID),
		zap.Int64("target_rows", rowCount))

	go c.execute(runCtx, run, columns)

	return run.ID, nil
}

// Cancel requests cancellation of an active run. The run is optimistically
// marked cancelled; a later terminal notification for the same run is a
// no-op and cannot resurrect it.
func (c *RunController) Cancel(runID uuid.UUID) error {
	c.mu.RLock()
	run, ok := c.runs[runID]
	cancel := c.cancels[runID]
	terminal := ok && run.Status.IsTerminal()
	c.mu.RUnlock()

	if !ok || terminal {
		return apperrors.ErrRunNotFound
	}

	if cancel != nil {
		cancel()
	}
	c.send(StatusEvent{RunID: runID, Status: models.RunStatusCancelled, Message: "cancelled by user"})
	return nil
}

// GetRun returns a copy of the run's current state.
func (c *RunController) GetRun(runID uuid.UUID) (models.GenerationRun, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	run, ok := c.runs[runID]
	if !ok {
		return models.GenerationRun{}, apperrors.ErrRunNotFound
	}
	return *run, nil
}

// ActiveRun returns the active run for a dataset, if any.
func (c *RunController) ActiveRun(datasetID int64) (models.GenerationRun, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	runID, ok := c.activeByDataset[datasetID]
	if !ok {
		return models.GenerationRun{}, false
	}
	run, ok := c.runs[runID]
	if !ok {
		return models.GenerationRun{}, false
	}
	return *run, true
}

// execute drives the generator for one run and emits its terminal status.
func (c *RunController) execute(ctx context.Context, run *models.GenerationRun, columns []models.Column) {
	emit := func(row *models.DatasetRow, generated int64) {
		select {
		case c.progressCh <- ProgressEvent{
			RunID:     run.ID,
			DatasetID: run.DatasetID,
			Row:       row,
			Generated: generated,
			Target:    run.TargetRows,
		}:
		case <-c.done:
		}
	}

	err := c.generator.Generate(ctx, run, columns, emit)

	switch {
	case err == nil:
		c.send(StatusEvent{RunID: run.ID, Status: models.RunStatusCompleted})
	case errors.Is(err, context.Canceled):
		c.send(StatusEvent{RunID: run.ID, Status: models.RunStatusCancelled, Message: "generation cancelled"})
	default:
		message := err.Error()
		if message == "" {
			message = "generation failed"
		}
		c.send(StatusEvent{RunID: run.ID, Status: models.RunStatusFailed, Message: message})
	}
}

func (c *RunController) send(e StatusEvent) {
	select {
	case c.statusCh <- e:
	case <-c.done:
	}
}

func (c *RunController) dispatch() {
	defer c.dispatcher.Done()
	for {
		select {
		case e := <-c.progressCh:
			c.applyProgress(e)
		case e := <-c.statusCh:
			c.applyStatus(e)
		case <-c.done:
			return
		}
	}
}

// applyProgress updates counters monotonically: duplicate or out-of-order
// events for a lower counter are ignored. Progress for a run already marked
// cancelled still updates counters but never reverts the terminal status;
// progress for an unknown run is dropped.
func (c *RunController) applyProgress(e ProgressEvent) {
	c.mu.Lock()
	run, ok := c.runs[e.RunID]
	if !ok {
		c.mu.Unlock()
		c.logger.Debug("progress for unknown run", zap.String("run_id", e.RunID.String()))
		return
	}
	if e.Generated <= run.GeneratedRows {
		c.mu.Unlock()
		return
	}

	run.GeneratedRows = e.Generated
	run.LastRow = e.Row
	run.UpdatedAt = time.Now()
	if run.Status == models.RunStatusStarted {
		run.Status = models.RunStatusRunning
	}
	c.mu.Unlock()

	if e.Row != nil {
		c.registry.Get(e.DatasetID).IngestGeneratedRow(e.DatasetID, *e.Row)
	}
	if c.onProgress != nil {
		c.onProgress(e)
	}
}

// applyStatus retires a run exactly once. Terminal statuses received for an
// already retired or unknown run are no-ops.
func (c *RunController) applyStatus(e StatusEvent) {
	c.mu.Lock()
	run, ok := c.runs[e.RunID]
	if !ok || run.Status.IsTerminal() {
		c.mu.Unlock()
		return
	}

	run.Status = e.Status
	run.Message = e.Message
	run.UpdatedAt = time.Now()

	if c.activeByDataset[run.DatasetID] == e.RunID {
		delete(c.activeByDataset, run.DatasetID)
	}
	if cancel, exists := c.cancels[e.RunID]; exists {
		cancel()
		delete(c.cancels, e.RunID)
	}

	c.retired = append(c.retired, e.RunID)
	if len(c.retired) > maxRetiredRuns {
		oldest := c.retired[0]
		c.retired = c.retired[1:]
		delete(c.runs, oldest)
	}
	c.mu.Unlock()

	c.logger.Info("generation run retired",
		zap.String("run_id", e.RunID.String()),
		zap.String("status", string(e.Status)),
		zap.String("message", e.Message))

	if c.onStatus != nil {
		c.onStatus(e)
	}
}
