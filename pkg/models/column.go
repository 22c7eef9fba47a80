package models

import "time"

// Column types supported by the generator. JSON columns additionally carry a
// type-detail schema describing the expected object shape.
const (
	ColumnTypeText  = "TEXT"
	ColumnTypeInt   = "INT"
	ColumnTypeFloat = "FLOAT"
	ColumnTypeBool  = "BOOL"
	ColumnTypeJSON  = "JSON"
)

// ValidColumnType reports whether t is one of the supported column types.
func ValidColumnType(t string) bool {
	switch t {
	case ColumnTypeText, ColumnTypeInt, ColumnTypeFloat, ColumnTypeBool, ColumnTypeJSON:
		return true
	}
	return false
}

// Column is one generated column of a dataset. Name is unique within a
// dataset and lower-cased on creation. Positions form a dense zero-based
// permutation per dataset; evaluation and display order is position order.
type Column struct {
	ID          int64     `json:"id"`
	DatasetID   int64     `json:"dataset_id"`
	Name        string    `json:"name"`
	Type        string    `json:"column_type"`
	TypeDetails string    `json:"column_type_details,omitempty"`
	Rules       string    `json:"rules"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdatableColumnFields carries the optional fields of a column update.
// Nil fields are left unchanged.
type UpdatableColumnFields struct {
	Name        *string `json:"name,omitempty"`
	Type        *string `json:"column_type,omitempty"`
	TypeDetails *string `json:"column_type_details,omitempty"`
	Rules       *string `json:"rules,omitempty"`
	Position    *int    `json:"position,omitempty"`
}

// PositionUpdate assigns a new position to one column in a bulk reorder.
type PositionUpdate struct {
	ColumnID int64 `json:"column_id"`
	Position int   `json:"position"`
}
