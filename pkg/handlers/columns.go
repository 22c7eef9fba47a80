package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/models"
	"github.com/dataforge-io/dataforge-engine/pkg/rules"
	"github.com/dataforge-io/dataforge-engine/pkg/services"
)

// CreateColumnRequest for POST /api/datasets/{did}/columns
type CreateColumnRequest struct {
	Name        string `json:"name"`
	Type        string `json:"column_type"`
	TypeDetails string `json:"column_type_details,omitempty"`
	Rules       string `json:"rules,omitempty"`
}

// ReorderColumnsRequest for POST /api/datasets/{did}/columns/reorder
type ReorderColumnsRequest struct {
	FromIndex int `json:"from_index"`
	ToIndex   int `json:"to_index"`
}

// ValidateRulesRequest for POST /api/datasets/{did}/columns/validate-rules
type ValidateRulesRequest struct {
	Name  string `json:"name"`
	Rules string `json:"rules"`
}

// ValidateRulesResponse reports the reference problems of a candidate rule.
type ValidateRulesResponse struct {
	Valid        bool     `json:"valid"`
	CircularRefs []string `json:"circular_references,omitempty"`
	InvalidRefs  []string `json:"invalid_references,omitempty"`
	ValidRefs    []string `json:"valid_references,omitempty"`
}

// ColumnListResponse for endpoints returning the full column list.
type ColumnListResponse struct {
	Columns []models.Column `json:"columns"`
	Total   int             `json:"total"`
}

// ColumnsHandler handles column HTTP requests.
type ColumnsHandler struct {
	columnService services.ColumnService
	logger        *zap.Logger
}

// NewColumnsHandler creates a new column handler.
func NewColumnsHandler(columnService services.ColumnService, logger *zap.Logger) *ColumnsHandler {
	return &ColumnsHandler{
		columnService: columnService,
		logger:        logger,
	}
}

// RegisterRoutes registers the column handler's routes on the given mux.
func (h *ColumnsHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/datasets/{did}/columns"

	mux.HandleFunc("POST "+base, h.Create)
	mux.HandleFunc("GET "+base, h.List)
	mux.HandleFunc("PUT "+base+"/{cid}", h.Update)
	mux.HandleFunc("DELETE "+base+"/{cid}", h.Delete)
	mux.HandleFunc("POST "+base+"/reorder", h.Reorder)
	mux.HandleFunc("POST "+base+"/validate-rules", h.ValidateRules)
}

// Create handles POST /api/datasets/{did}/columns
func (h *ColumnsHandler) Create(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	columns, err := h.columnService.Create(r.Context(), services.ColumnCreateRequest{
		DatasetID:   datasetID,
		Name:        req.Name,
		Type:        req.Type,
		TypeDetails: req.TypeDetails,
		Rules:       req.Rules,
	})
	if err != nil {
		h.logger.Error("Failed to create column",
			zap.Int64("dataset_id", datasetID),
			zap.String("name", req.Name),
			zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	response := ColumnListResponse{Columns: columns, Total: len(columns)}
	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/datasets/{did}/columns
func (h *ColumnsHandler) List(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	columns, err := h.columnService.List(r.Context(), datasetID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	response := ColumnListResponse{Columns: columns, Total: len(columns)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/datasets/{did}/columns/{cid}
func (h *ColumnsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseDatasetID(w, r, h.logger); !ok {
		return
	}
	columnID, ok := ParseColumnID(w, r, h.logger)
	if !ok {
		return
	}

	var fields models.UpdatableColumnFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	column, err := h.columnService.Update(r.Context(), columnID, fields)
	if err != nil {
		h.logger.Error("Failed to update column", zap.Int64("column_id", columnID), zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: column}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/datasets/{did}/columns/{cid}
func (h *ColumnsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := ParseDatasetID(w, r, h.logger); !ok {
		return
	}
	columnID, ok := ParseColumnID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.columnService.Delete(r.Context(), columnID); err != nil {
		h.logger.Error("Failed to delete column", zap.Int64("column_id", columnID), zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "column deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Reorder handles POST /api/datasets/{did}/columns/reorder
func (h *ColumnsHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	var req ReorderColumnsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	columns, err := h.columnService.Reorder(r.Context(), datasetID, req.FromIndex, req.ToIndex)
	if err != nil {
		h.logger.Error("Failed to reorder columns",
			zap.Int64("dataset_id", datasetID),
			zap.Int("from_index", req.FromIndex),
			zap.Int("to_index", req.ToIndex),
			zap.Error(err))
		WriteServiceError(w, h.logger, err)
		return
	}

	response := ColumnListResponse{Columns: columns, Total: len(columns)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ValidateRules handles POST /api/datasets/{did}/columns/validate-rules
func (h *ColumnsHandler) ValidateRules(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := ParseDatasetID(w, r, h.logger)
	if !ok {
		return
	}

	var req ValidateRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.columnService.ValidateRules(r.Context(), datasetID, req.Name, req.Rules)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	response := ValidateRulesResponse{
		Valid:        result.OK(),
		CircularRefs: tokenNameList(result.Circular),
		InvalidRefs:  tokenNameList(result.Invalid),
		ValidRefs:    tokenNameList(result.Valid),
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func tokenNameList(tokens []rules.Token) []string {
	if len(tokens) == 0 {
		return nil
	}
	names := make([]string, len(tokens))
	for i, t := range tokens {
		names[i] = t.Name
	}
	return names
}
