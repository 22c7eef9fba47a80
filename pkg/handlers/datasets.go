package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/models"
	"github.com/dataforge-io/dataforge-engine/pkg/services"
)

// CreateDatasetRequest for POST /api/datasets
type CreateDatasetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateDatasetRequest for PUT /api/datasets/{did}
type UpdateDatasetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// DatasetListResponse for GET /api/datasets
type DatasetListResponse struct {
	Datasets []*models.Dataset `json:"datasets"`
	Total    int               `json:"total"`
}

// DatasetsHandler handles dataset HTTP requests.
type DatasetsHandler struct {
	datasetService services.DatasetService
	exportService  services.ExportService
	logger         *zap.Logger
}

// NewDatasetsHandler creates a new dataset handler.
func NewDatasetsHandler(datasetService services.DatasetService, exportService services.ExportService, logger *zap.Logger) *DatasetsHandler {
	return &DatasetsHandler{
		datasetService: datasetService,
		exportService:  exportService,
		logger:         logger,
	}
}

// RegisterRoutes registers the dataset handler's routes on the given mux.
func (h *DatasetsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/datasets", h.Create)
	mux.HandleFunc("GET /api/datasets", h.List)
	mux.HandleFunc("GET /api/datasets/{did}", h.Get)
	mux.HandleFunc("PUT /api/datasets/{did}", h.Update)
	mux.HandleFunc("DELETE /api/datasets/{did}", h.Delete)
	mux.HandleFunc("GET /api/datasets/{did}/export", h.Export)
}

// Create handles POST /api/datasets
func (h *DatasetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	dataset, err := h.datasetService.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		h.logger.Error("Failed to create dataset", zap.String("name", req.Name), zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: dataset}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/datasets
func (h *DatasetsHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.datasetService.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list datasets", zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	response := DatasetListResponse{
		Datasets: datasets,
		Total:    len(datasets),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/datasets/{did}
func (h *DatasetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	dataset, err := h.datasetService.Get(r.Context(), datasetID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: dataset}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/datasets/{did}
func (h *DatasetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	dataset, err := h.datasetService.Update(r.Context(), datasetID, req.Name, req.Description)
	if err != nil {
		h.logger.Error("Failed to update dataset", zap.Int64("dataset_id", datasetID), zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: dataset}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/datasets/{did}
func (h *DatasetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.datasetService.Delete(r.Context(), datasetID); err != nil {
		h.logger.Error("Failed to delete dataset", zap.Int64("dataset_id", datasetID), zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "dataset deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Export handles GET /api/datasets/{did}/export?format=csv|yaml
func (h *DatasetsHandler) Export(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = services.ExportFormatCSV
	}

	data, contentType, err := h.exportService.Export(r.Context(), datasetID, format)
	if err != nil {
		h.logger.Error("Failed to export dataset",
			zap.Int64("dataset_id", datasetID),
			zap.String("format", format),
			zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=dataset-%d.%s", datasetID, format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write export body", zap.Error(err))
	}
}
