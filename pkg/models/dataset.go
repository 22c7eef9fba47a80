package models

import "time"

// Dataset holds the metadata for one synthetic dataset. Rows and columns
// belong to exactly one dataset and are cascade-deleted with it.
type Dataset struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	RowCount    int64     `json:"row_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
