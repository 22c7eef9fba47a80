package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/dataforge-io/dataforge-engine/pkg/models"
	"github.com/dataforge-io/dataforge-engine/pkg/rules"
	"github.com/dataforge-io/dataforge-engine/pkg/services"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockDatasetService implements services.DatasetService for handler tests.
type mockDatasetService struct {
	dataset   *models.Dataset
	datasets  []*models.Dataset
	createErr error
	getErr    error
	listErr   error
	updateErr error
	deleteErr error
}

var _ services.DatasetService = (*mockDatasetService)(nil)

func (m *mockDatasetService) Create(ctx context.Context, name, description string) (*models.Dataset, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.dataset, nil
}

func (m *mockDatasetService) Get(ctx context.Context, id int64) (*models.Dataset, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.dataset, nil
}

func (m *mockDatasetService) List(ctx context.Context) ([]*models.Dataset, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.datasets, nil
}

func (m *mockDatasetService) Update(ctx context.Context, id int64, name, description string) (*models.Dataset, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return m.dataset, nil
}

func (m *mockDatasetService) Delete(ctx context.Context, id int64) error {
	return m.deleteErr
}

// mockExportService implements services.ExportService for handler tests.
type mockExportService struct {
	data        []byte
	contentType string
	err         error

	gotDatasetID int64
	gotFormat    string
}

var _ services.ExportService = (*mockExportService)(nil)

func (m *mockExportService) Export(ctx context.Context, datasetID int64, format string) ([]byte, string, error) {
	m.gotDatasetID = datasetID
	m.gotFormat = format
	if m.err != nil {
		return nil, "", m.err
	}
	return m.data, m.contentType, nil
}

// mockColumnService implements services.ColumnService for handler tests.
type mockColumnService struct {
	columns    []models.Column
	column     *models.Column
	validation rules.ValidationResult

	createErr   error
	listErr     error
	updateErr   error
	deleteErr   error
	reorderErr  error
	validateErr error

	gotCreate    services.ColumnCreateRequest
	gotFromIndex int
	gotToIndex   int
	gotRuleName  string
	gotRuleText  string
}

var _ services.ColumnService = (*mockColumnService)(nil)

func (m *mockColumnService) Create(ctx context.Context, req services.ColumnCreateRequest) ([]models.Column, error) {
	m.gotCreate = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.columns, nil
}

func (m *mockColumnService) List(ctx context.Context, datasetID int64) ([]models.Column, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.columns, nil
}

func (m *mockColumnService) Update(ctx context.Context, columnID int64, fields models.UpdatableColumnFields) (*models.Column, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return m.column, nil
}

func (m *mockColumnService) Delete(ctx context.Context, columnID int64) error {
	return m.deleteErr
}

func (m *mockColumnService) Reorder(ctx context.Context, datasetID int64, fromIndex, toIndex int) ([]models.Column, error) {
	m.gotFromIndex = fromIndex
	m.gotToIndex = toIndex
	if m.reorderErr != nil {
		return nil, m.reorderErr
	}
	return m.columns, nil
}

func (m *mockColumnService) ValidateRules(ctx context.Context, datasetID int64, candidateName, ruleText string) (rules.ValidationResult, error) {
	m.gotRuleName = candidateName
	m.gotRuleText = ruleText
	if m.validateErr != nil {
		return rules.ValidationResult{}, m.validateErr
	}
	return m.validation, nil
}

// mockRowService implements services.RowService for handler tests.
type mockRowService struct {
	page models.RowPage
	row  *models.DatasetRow

	fetchErr  error
	updateErr error
	deleteErr error

	gotPage     int
	gotPageSize int
	gotEdits    map[int64]string
}

var _ services.RowService = (*mockRowService)(nil)

func (m *mockRowService) FetchPage(ctx context.Context, datasetID int64, page, pageSize int) (models.RowPage, error) {
	m.gotPage = page
	m.gotPageSize = pageSize
	if m.fetchErr != nil {
		return models.RowPage{}, m.fetchErr
	}
	return m.page, nil
}

func (m *mockRowService) UpdateRow(ctx context.Context, datasetID, rowID int64, cellEdits map[int64]string) (*models.DatasetRow, error) {
	m.gotEdits = cellEdits
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return m.row, nil
}

func (m *mockRowService) DeleteRow(ctx context.Context, datasetID, rowID int64) error {
	return m.deleteErr
}

// mockRunManager implements RunManager for handler tests.
type mockRunManager struct {
	runID  uuid.UUID
	run    models.GenerationRun
	active bool

	startErr  error
	cancelErr error
	getErr    error

	gotDatasetID int64
	gotModelID   int64
	gotRowCount  int64
	gotCancelID  uuid.UUID
}

var _ RunManager = (*mockRunManager)(nil)

func (m *mockRunManager) StartRun(ctx context.Context, datasetID, modelID, rowCount int64) (uuid.UUID, error) {
	m.gotDatasetID = datasetID
	m.gotModelID = modelID
	m.gotRowCount = rowCount
	if m.startErr != nil {
		return uuid.Nil, m.startErr
	}
	return m.runID, nil
}

func (m *mockRunManager) Cancel(runID uuid.UUID) error {
	m.gotCancelID = runID
	return m.cancelErr
}

func (m *mockRunManager) GetRun(runID uuid.UUID) (models.GenerationRun, error) {
	if m.getErr != nil {
		return models.GenerationRun{}, m.getErr
	}
	return m.run, nil
}

func (m *mockRunManager) ActiveRun(datasetID int64) (models.GenerationRun, bool) {
	return m.run, m.active
}
