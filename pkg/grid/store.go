package grid

import (
	"sort"
	"sync"

	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

// DefaultPageCapacity bounds the number of rows kept resident in the current
// page when none is configured.
const DefaultPageCapacity = 100

// Store holds the in-memory view of one dataset: the column set ordered by
// position and the currently loaded page of rows. Structural edits and
// streamed generation output are applied here; persistence happens elsewhere.
type Store struct {
	mu sync.RWMutex

	datasetID int64
	columns   []models.Column

	rows      []models.DatasetRow
	page      int
	pageSize  int
	totalRows int64

	pageCapacity int
}

// NewStore creates a store bound to one dataset. pageCapacity caps how many
// streamed rows the current page will buffer; values <= 0 fall back to
// DefaultPageCapacity.
func NewStore(datasetID int64, pageCapacity int) *Store {
	if pageCapacity <= 0 {
		pageCapacity = DefaultPageCapacity
	}
	return &Store{
		datasetID:    datasetID,
		page:         1,
		pageCapacity: pageCapacity,
	}
}

// DatasetID returns the dataset this store views.
func (s *Store) DatasetID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datasetID
}

// SetColumns replaces the column set with the given list, sorted by position.
func (s *Store) SetColumns(columns []models.Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = sortedByPosition(columns)
}

// Columns returns a copy of the column set in position order.
func (s *Store) Columns() []models.Column {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// ReplaceColumn swaps the column matching by ID and re-sorts by position.
// Unknown IDs are ignored.
func (s *Store) ReplaceColumn(column models.Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.columns {
		if c.ID == column.ID {
			s.columns[i] = column
			s.columns = sortedByPosition(s.columns)
			return
		}
	}
}

// RemoveColumn removes the column by ID without renumbering the survivors.
// Callers re-pack positions separately.
func (s *Store) RemoveColumn(columnID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.columns {
		if c.ID == columnID {
			s.columns = append(s.columns[:i], s.columns[i+1:]...)
			return
		}
	}
}

// ApplyRepositions applies a batch of (id, position) updates atomically and
// re-sorts. IDs not present in the set are ignored.
func (s *Store) ApplyRepositions(updates []models.PositionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[int64]int, len(updates))
	for _, u := range updates {
		byID[u.ColumnID] = u.Position
	}
	for i := range s.columns {
		if pos, ok := byID[s.columns[i].ID]; ok {
			s.columns[i].Position = pos
		}
	}
	s.columns = sortedByPosition(s.columns)
}

// SnapshotColumns captures the current column set for a later rollback.
func (s *Store) SnapshotColumns() []models.Column {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]models.Column, len(s.columns))
	copy(snapshot, s.columns)
	return snapshot
}

// RestoreColumns rolls the column set back to a previously taken snapshot.
func (s *Store) RestoreColumns(snapshot []models.Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = sortedByPosition(snapshot)
}

// SetPage replaces the current row page with a fetched one.
func (s *Store) SetPage(page models.RowPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make([]models.DatasetRow, len(page.Rows))
	copy(s.rows, page.Rows)
	s.page = page.Page
	s.pageSize = page.PageSize
	s.totalRows = page.TotalRows
}

// Rows returns a copy of the currently loaded page rows.
func (s *Store) Rows() []models.DatasetRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DatasetRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// Page returns the current page number and page size.
func (s *Store) Page() (page, pageSize int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page, s.pageSize
}

// TotalRows returns the total row count reported by the last fetch, adjusted
// by local ingestion and deletes.
func (s *Store) TotalRows() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalRows
}

// UpdateRow replaces a row by identity on the currently loaded page. Rows
// outside the page are unaffected; unknown IDs are ignored.
func (s *Store) UpdateRow(row models.DatasetRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows {
		if r.ID == row.ID {
			s.rows[i] = row
			return
		}
	}
}

// DeleteRow removes a row by identity from the currently loaded page.
func (s *Store) DeleteRow(rowID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows {
		if r.ID == rowID {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			if s.totalRows > 0 {
				s.totalRows--
			}
			return
		}
	}
}

// IngestGeneratedRow appends a streamed generation row to the current page
// when it belongs to this dataset and the page still has capacity. Reports
// whether the row was buffered; rows past capacity are dropped locally and
// become visible on the next fetch.
func (s *Store) IngestGeneratedRow(datasetID int64, row models.DatasetRow) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if datasetID != s.datasetID {
		return false
	}
	s.totalRows++
	if len(s.rows) >= s.pageCapacity {
		return false
	}
	s.rows = append(s.rows, row)
	return true
}

func sortedByPosition(columns []models.Column) []models.Column {
	out := make([]models.Column, len(columns))
	copy(out, columns)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}
