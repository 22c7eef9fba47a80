package models

import "time"

// RowCell is one (column, value) pair of a dataset row. Values are stored as
// strings regardless of the declared column type; type-aware parsing is
// deferred to read time.
type RowCell struct {
	ColumnID int64  `json:"column_id"`
	Value    string `json:"value"`
}

// DatasetRow is one persisted row of a dataset.
type DatasetRow struct {
	ID        int64     `json:"id"`
	DatasetID int64     `json:"dataset_id"`
	Cells     []RowCell `json:"cells"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CellValue returns the value stored for columnID and whether it exists.
func (r *DatasetRow) CellValue(columnID int64) (string, bool) {
	for _, c := range r.Cells {
		if c.ColumnID == columnID {
			return c.Value, true
		}
	}
	return "", false
}

// RowPage is one page of dataset rows together with pagination metadata.
type RowPage struct {
	Rows        []DatasetRow `json:"rows"`
	Page        int          `json:"page"`
	PageSize    int          `json:"page_size"`
	TotalRows   int64        `json:"total_rows"`
	TotalPages  int64        `json:"total_pages"`
	HasNext     bool         `json:"has_next"`
	HasPrevious bool         `json:"has_previous"`
}
