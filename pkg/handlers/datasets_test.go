package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

func newDatasetsMux(datasets *mockDatasetService, export *mockExportService) *http.ServeMux {
	mux := http.NewServeMux()
	NewDatasetsHandler(datasets, export, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestDatasetsHandler_Create(t *testing.T) {
	svc := &mockDatasetService{dataset: &models.Dataset{ID: 1, Name: "people"}}
	mux := newDatasetsMux(svc, &mockExportService{})

	body := bytes.NewBufferString(`{"name": "people", "description": "test"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp ApiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
}

func TestDatasetsHandler_Create_InvalidBody(t *testing.T) {
	mux := newDatasetsMux(&mockDatasetService{}, &mockExportService{})

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasetsHandler_Create_ValidationError(t *testing.T) {
	svc := &mockDatasetService{createErr: apperrors.ErrInvalidInput}
	mux := newDatasetsMux(svc, &mockExportService{})

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", bytes.NewBufferString(`{"name": ""}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasetsHandler_Get_NotFound(t *testing.T) {
	svc := &mockDatasetService{getErr: apperrors.ErrNotFound}
	mux := newDatasetsMux(svc, &mockExportService{})

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/7", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDatasetsHandler_Get_InvalidID(t *testing.T) {
	mux := newDatasetsMux(&mockDatasetService{}, &mockExportService{})

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/abc", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasetsHandler_List(t *testing.T) {
	svc := &mockDatasetService{datasets: []*models.Dataset{{ID: 1}, {ID: 2}}}
	mux := newDatasetsMux(svc, &mockExportService{})

	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool                `json:"success"`
		Data    DatasetListResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Data.Total)
}

func TestDatasetsHandler_Delete(t *testing.T) {
	mux := newDatasetsMux(&mockDatasetService{}, &mockExportService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/datasets/1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDatasetsHandler_Export(t *testing.T) {
	export := &mockExportService{data: []byte("name\nAda\n"), contentType: "text/csv"}
	mux := newDatasetsMux(&mockDatasetService{}, export)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/3/export?format=csv", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "dataset-3.csv")
	assert.Equal(t, "name\nAda\n", rec.Body.String())
	assert.Equal(t, int64(3), export.gotDatasetID)
	assert.Equal(t, "csv", export.gotFormat)
}

func TestDatasetsHandler_Export_DefaultsToCSV(t *testing.T) {
	export := &mockExportService{data: []byte(""), contentType: "text/csv"}
	mux := newDatasetsMux(&mockDatasetService{}, export)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/3/export", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", export.gotFormat)
}

func TestDatasetsHandler_Export_UnknownFormat(t *testing.T) {
	export := &mockExportService{err: apperrors.ErrInvalidInput}
	mux := newDatasetsMux(&mockDatasetService{}, export)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/3/export?format=xml", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
