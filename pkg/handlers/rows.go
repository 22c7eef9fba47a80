package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/services"
)

// UpdateRowRequest for PUT /api/datasets/{did}/rows/{rid}. Cells maps column
// IDs to their new values.
type UpdateRowRequest struct {
	Cells map[int64]string `json:"cells"`
}

// RowsHandler handles row HTTP requests.
type RowsHandler struct {
	rowService      services.RowService
	defaultPageSize int
	logger          *zap.Logger
}

// NewRowsHandler creates a new row handler.
func NewRowsHandler(rowService services.RowService, defaultPageSize int, logger *zap.Logger) *RowsHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = 50
	}
	return &RowsHandler{
		rowService:      rowService,
		defaultPageSize: defaultPageSize,
		logger:          logger,
	}
}

// RegisterRoutes registers the row handler's routes on the given mux.
func (h *RowsHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/datasets/{did}/rows"

	mux.HandleFunc("GET "+base, h.FetchPage)
	mux.HandleFunc("PUT "+base+"/{rid}", h.Update)
	mux.HandleFunc("DELETE "+base+"/{rid}", h.Delete)
}

// FetchPage handles GET /api/datasets/{did}/rows?page=1&page_size=50
func (h *RowsHandler) FetchPage(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", h.defaultPageSize)

	fetched, err := h.rowService.FetchPage(r.Context(), datasetID, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to fetch rows",
			zap.Int64("dataset_id", datasetID),
			zap.Int("page", page),
			zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: fetched}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/datasets/{did}/rows/{rid}
func (h *RowsHandler) Update(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}
	rowID, ok := ParseRowID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateRowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if len(req.Cells) == 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "No cell edits provided"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	row, err := h.rowService.UpdateRow(r.Context(), datasetID, rowID, req.Cells)
	if err != nil {
		h.logger.Error("Failed to update row",
			zap.Int64("dataset_id", datasetID),
			zap.Int64("row_id", rowID),
			zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: row}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/datasets/{did}/rows/{rid}
func (h *RowsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}
	rowID, ok := ParseRowID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.rowService.DeleteRow(r.Context(), datasetID, rowID); err != nil {
		h.logger.Error("Failed to delete row",
			zap.Int64("dataset_id", datasetID),
			zap.Int64("row_id", rowID),
			zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "row deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// queryInt reads an integer query parameter, falling back to def when absent
// or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}
