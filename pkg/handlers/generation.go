package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

// RunManager is the run lifecycle surface consumed over HTTP.
type RunManager interface {
	StartRun(ctx context.Context, datasetID, modelID, rowCount int64) (uuid.UUID, error)
	Cancel(runID uuid.UUID) error
	GetRun(runID uuid.UUID) (models.GenerationRun, error)
	ActiveRun(datasetID int64) (models.GenerationRun, bool)
}

// StartGenerationRequest for POST /api/datasets/{did}/generate
type StartGenerationRequest struct {
	ModelID  int64 `json:"model_id"`
	RowCount int64 `json:"row_count"`
}

// StartGenerationResponse carries the identifier of the accepted run.
type StartGenerationResponse struct {
	RunID string `json:"run_id"`
}

// GenerationHandler handles generation run HTTP requests.
type GenerationHandler struct {
	runs   RunManager
	logger *zap.Logger
}

// NewGenerationHandler creates a new generation handler.
func NewGenerationHandler(runs RunManager, logger *zap.Logger) *GenerationHandler {
	return &GenerationHandler{
		runs:   runs,
		logger: logger,
	}
}

// RegisterRoutes registers the generation handler's routes on the given mux.
func (h *GenerationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/datasets/{did}/generate", h.Start)
	mux.HandleFunc("GET /api/datasets/{did}/generation/active", h.Active)
	mux.HandleFunc("GET /api/generation/runs/{runid}", h.Get)
	mux.HandleFunc("POST /api/generation/runs/{runid}/cancel", h.Cancel)
}

// Start handles POST /api/datasets/{did}/generate
func (h *GenerationHandler) Start(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	var req StartGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	runID, err := h.runs.StartRun(r.Context(), datasetID, req.ModelID, req.RowCount)
	if err != nil {
		h.logger.Error("Failed to start generation run",
			zap.Int64("dataset_id", datasetID),
			zap.Int64("row_count", req.RowCount),
			zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	response := StartGenerationResponse{RunID: runID.String()}
	if err := WriteJSON(w, http.StatusAccepted, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Active handles GET /api/datasets/{did}/generation/active
func (h *GenerationHandler) Active(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	run, active := h.runs.ActiveRun(datasetID)
	if !active {
		if err := ErrorResponse(w, http.StatusNotFound, "no_active_run", "No active generation run for dataset"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: run}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/generation/runs/{runid}
func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID, ok := ParseRunID(w, r, h.logger)
	if !ok {
		return
	}

	run, err := h.runs.GetRun(runID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: run}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Cancel handles POST /api/generation/runs/{runid}/cancel
func (h *GenerationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	runID, ok := ParseRunID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.runs.Cancel(runID); err != nil {
		h.logger.Error("Failed to cancel generation run",
			zap.String("run_id", runID.String()),
			zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "cancellation requested"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
