package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
)

// ApiResponse is the common envelope for JSON responses.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteServiceError maps a service-layer error onto an HTTP error response.
func WriteServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	statusCode, errorCode := http.StatusInternalServerError, "internal_error"

	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		statusCode, errorCode = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, apperrors.ErrCircularRules):
		statusCode, errorCode = http.StatusBadRequest, "circular_rules"
	case errors.Is(err, apperrors.ErrNoColumnsDefined):
		statusCode, errorCode = http.StatusBadRequest, "no_columns_defined"
	case errors.Is(err, apperrors.ErrPageOutOfRange):
		statusCode, errorCode = http.StatusBadRequest, "page_out_of_range"
	case errors.Is(err, apperrors.ErrRunNotFound):
		statusCode, errorCode = http.StatusNotFound, "run_not_found"
	case errors.Is(err, apperrors.ErrNotFound):
		statusCode, errorCode = http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrRunActive):
		statusCode, errorCode = http.StatusConflict, "run_active"
	case errors.Is(err, apperrors.ErrConflict):
		statusCode, errorCode = http.StatusConflict, "conflict"
	}

	if writeErr := ErrorResponse(w, statusCode, errorCode, err.Error()); writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}
