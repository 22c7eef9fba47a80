package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
	"github.com/dataforge-io/dataforge-engine/pkg/repositories"
)

// memColumnRepo is an in-memory ColumnRepository for unit tests.
type memColumnRepo struct {
	mu      sync.Mutex
	columns []models.Column
	nextID  int64

	// positionsErr makes UpdatePositions fail, simulating a boundary error.
	positionsErr error
}

func newMemColumnRepo(columns ...models.Column) *memColumnRepo {
	repo := &memColumnRepo{nextID: 1}
	for _, c := range columns {
		if c.ID >= repo.nextID {
			repo.nextID = c.ID + 1
		}
		repo.columns = append(repo.columns, c)
	}
	return repo
}

var _ repositories.ColumnRepository = (*memColumnRepo)(nil)

func (m *memColumnRepo) Create(_ context.Context, column *models.Column) ([]models.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.columns {
		if c.DatasetID == column.DatasetID && c.Name == column.Name {
			return nil, apperrors.ErrConflict
		}
	}
	column.ID = m.nextID
	m.nextID++
	m.columns = append(m.columns, *column)
	return m.byDatasetLocked(column.DatasetID), nil
}

func (m *memColumnRepo) GetByID(_ context.Context, id int64) (*models.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.columns {
		if c.ID == id {
			col := c
			return &col, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memColumnRepo) GetByDataset(_ context.Context, datasetID int64) ([]models.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byDatasetLocked(datasetID), nil
}

func (m *memColumnRepo) byDatasetLocked(datasetID int64) []models.Column {
	var out []models.Column
	for _, c := range m.columns {
		if c.DatasetID == datasetID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *memColumnRepo) Update(_ context.Context, id int64, fields models.UpdatableColumnFields) (*models.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.columns {
		if m.columns[i].ID != id {
			continue
		}
		if fields.Name != nil {
			m.columns[i].Name = *fields.Name
		}
		if fields.Type != nil {
			m.columns[i].Type = *fields.Type
		}
		if fields.TypeDetails != nil {
			m.columns[i].TypeDetails = *fields.TypeDetails
		}
		if fields.Rules != nil {
			m.columns[i].Rules = *fields.Rules
		}
		if fields.Position != nil {
			m.columns[i].Position = *fields.Position
		}
		col := m.columns[i]
		return &col, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *memColumnRepo) UpdatePositions(_ context.Context, datasetID int64, updates []models.PositionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.positionsErr != nil {
		return m.positionsErr
	}
	for _, u := range updates {
		for i := range m.columns {
			if m.columns[i].ID == u.ColumnID && m.columns[i].DatasetID == datasetID {
				m.columns[i].Position = u.Position
			}
		}
	}
	return nil
}

func (m *memColumnRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.columns {
		if c.ID == id {
			datasetID, position := c.DatasetID, c.Position
			m.columns = append(m.columns[:i], m.columns[i+1:]...)
			for j := range m.columns {
				if m.columns[j].DatasetID == datasetID && m.columns[j].Position > position {
					m.columns[j].Position--
				}
			}
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// memRowRepo is an in-memory RowRepository for unit tests.
type memRowRepo struct {
	mu     sync.Mutex
	rows   []models.DatasetRow
	nextID int64

	insertErr error
}

func newMemRowRepo() *memRowRepo {
	return &memRowRepo{nextID: 1}
}

var _ repositories.RowRepository = (*memRowRepo)(nil)

func (m *memRowRepo) Insert(_ context.Context, row *models.DatasetRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	row.ID = m.nextID
	m.nextID++
	m.rows = append(m.rows, *row)
	return nil
}

func (m *memRowRepo) FetchPage(_ context.Context, datasetID int64, page, pageSize int) (models.RowPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []models.DatasetRow
	for _, r := range m.rows {
		if r.DatasetID == datasetID {
			all = append(all, r)
		}
	}

	total := int64(len(all))
	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	if total > 0 && int64(page) > totalPages {
		return models.RowPage{}, apperrors.ErrPageOutOfRange
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}

	return models.RowPage{
		Rows:        all[start:end],
		Page:        page,
		PageSize:    pageSize,
		TotalRows:   total,
		TotalPages:  totalPages,
		HasNext:     int64(page) < totalPages,
		HasPrevious: page > 1,
	}, nil
}

func (m *memRowRepo) UpdateCells(_ context.Context, datasetID, rowID int64, edits map[int64]string) (*models.DatasetRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID != rowID || m.rows[i].DatasetID != datasetID {
			continue
		}
		for id, v := range edits {
			found := false
			for j := range m.rows[i].Cells {
				if m.rows[i].Cells[j].ColumnID == id {
					m.rows[i].Cells[j].Value = v
					found = true
				}
			}
			if !found {
				m.rows[i].Cells = append(m.rows[i].Cells, models.RowCell{ColumnID: id, Value: v})
			}
		}
		row := m.rows[i]
		return &row, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *memRowRepo) Delete(_ context.Context, datasetID, rowID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == rowID && r.DatasetID == datasetID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *memRowRepo) Count(_ context.Context, datasetID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, r := range m.rows {
		if r.DatasetID == datasetID {
			count++
		}
	}
	return count, nil
}

// memDatasetRepo is an in-memory DatasetRepository for unit tests.
type memDatasetRepo struct {
	mu       sync.Mutex
	datasets []models.Dataset
	nextID   int64
}

func newMemDatasetRepo() *memDatasetRepo {
	return &memDatasetRepo{nextID: 1}
}

var _ repositories.DatasetRepository = (*memDatasetRepo)(nil)

func (m *memDatasetRepo) Create(_ context.Context, dataset *models.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dataset.ID = m.nextID
	m.nextID++
	m.datasets = append(m.datasets, *dataset)
	return nil
}

func (m *memDatasetRepo) GetByID(_ context.Context, id int64) (*models.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.datasets {
		if d.ID == id {
			out := d
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memDatasetRepo) List(_ context.Context) ([]*models.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Dataset, len(m.datasets))
	for i := range m.datasets {
		d := m.datasets[i]
		out[i] = &d
	}
	return out, nil
}

func (m *memDatasetRepo) Update(_ context.Context, dataset *models.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.datasets {
		if m.datasets[i].ID == dataset.ID {
			m.datasets[i] = *dataset
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *memDatasetRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.datasets {
		if d.ID == id {
			m.datasets = append(m.datasets[:i], m.datasets[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// stubGenerator is a RowGenerator whose behavior is scripted per test.
type stubGenerator struct {
	// generate is invoked for each run; nil blocks until ctx is cancelled.
	generate func(ctx context.Context, run *models.GenerationRun, columns []models.Column, emit func(*models.DatasetRow, int64)) error
}

var _ RowGenerator = (*stubGenerator)(nil)

func (s *stubGenerator) Generate(ctx context.Context, run *models.GenerationRun, columns []models.Column, emit func(*models.DatasetRow, int64)) error {
	if s.generate != nil {
		return s.generate(ctx, run, columns, emit)
	}
	<-ctx.Done()
	return ctx.Err()
}

var errBoundary = errors.New("boundary failure")
