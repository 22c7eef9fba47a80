package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
	"github.com/dataforge-io/dataforge-engine/pkg/database"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

// RowRepository provides data access for dataset rows. Rows are fetched in
// pages; the page envelope carries totals and has-next/has-previous flags.
type RowRepository interface {
	Insert(ctx context.Context, row *models.DatasetRow) error
	FetchPage(ctx context.Context, datasetID int64, page, pageSize int) (models.RowPage, error)
	UpdateCells(ctx context.Context, datasetID, rowID int64, edits map[int64]string) (*models.DatasetRow, error)
	Delete(ctx context.Context, datasetID, rowID int64) error
	Count(ctx context.Context, datasetID int64) (int64, error)
}

type rowRepository struct {
	db *database.DB
}

// NewRowRepository creates a new RowRepository.
func NewRowRepository(db *database.DB) RowRepository {
	return &rowRepository{db: db}
}

var _ RowRepository = (*rowRepository)(nil)

func (r *rowRepository) Insert(ctx context.Context, row *models.DatasetRow) error {
	cells, err := json.Marshal(row.Cells)
	if err != nil {
		return fmt.Errorf("failed to marshal cells: %w", err)
	}

	now := time.Now()

	query := `
		INSERT INTO dataset_rows (dataset_id, cells, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRow(ctx, query, row.DatasetID, cells, now, now).
		Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}

	return nil
}

func (r *rowRepository) FetchPage(ctx context.Context, datasetID int64, page, pageSize int) (models.RowPage, error) {
	if page < 1 {
		return models.RowPage{}, fmt.Errorf("page must be >= 1, got %d: %w", page, apperrors.ErrInvalidInput)
	}
	if pageSize < 1 {
		return models.RowPage{}, fmt.Errorf("page size must be >= 1, got %d: %w", pageSize, apperrors.ErrInvalidInput)
	}

	totalRows, err := r.Count(ctx, datasetID)
	if err != nil {
		return models.RowPage{}, err
	}

	totalPages := (totalRows + int64(pageSize) - 1) / int64(pageSize)
	if totalRows > 0 && int64(page) > totalPages {
		return models.RowPage{}, fmt.Errorf("page %d of %d: %w", page, totalPages, apperrors.ErrPageOutOfRange)
	}

	query := `
		SELECT id, dataset_id, cells, created_at, updated_at
		FROM dataset_rows
		WHERE dataset_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, datasetID, pageSize, (page-1)*pageSize)
	if err != nil {
		return models.RowPage{}, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	pageRows := make([]models.DatasetRow, 0, pageSize)
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return models.RowPage{}, err
		}
		pageRows = append(pageRows, *row)
	}

	if err := rows.Err(); err != nil {
		return models.RowPage{}, fmt.Errorf("error iterating rows: %w", err)
	}

	return models.RowPage{
		Rows:        pageRows,
		Page:        page,
		PageSize:    pageSize,
		TotalRows:   totalRows,
		TotalPages:  totalPages,
		HasNext:     int64(page) < totalPages,
		HasPrevious: page > 1,
	}, nil
}

// UpdateCells applies per-column value edits to one row. Existing cells are
// replaced in place; edits for columns the row has no cell for yet are
// appended. Read-modify-write under a row lock.
func (r *rowRepository) UpdateCells(ctx context.Context, datasetID, rowID int64, edits map[int64]string) (*models.DatasetRow, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var cellsJSON []byte
	err = tx.QueryRow(ctx, `
		SELECT cells FROM dataset_rows
		WHERE id = $1 AND dataset_id = $2
		FOR UPDATE`, rowID, datasetID).Scan(&cellsJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			err = apperrors.ErrNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock row: %w", err)
	}

	var cells []models.RowCell
	if err = json.Unmarshal(cellsJSON, &cells); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cells: %w", err)
	}

	remaining := make(map[int64]string, len(edits))
	for id, v := range edits {
		remaining[id] = v
	}
	for i := range cells {
		if v, ok := remaining[cells[i].ColumnID]; ok {
			cells[i].Value = v
			delete(remaining, cells[i].ColumnID)
		}
	}
	for id, v := range remaining {
		cells = append(cells, models.RowCell{ColumnID: id, Value: v})
	}

	updated, err := json.Marshal(cells)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cells: %w", err)
	}

	row := &models.DatasetRow{ID: rowID, DatasetID: datasetID, Cells: cells}
	err = tx.QueryRow(ctx, `
		UPDATE dataset_rows
		SET cells = $3, updated_at = now()
		WHERE id = $1 AND dataset_id = $2
		RETURNING created_at, updated_at`, rowID, datasetID, updated).
		Scan(&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update row: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit row update: %w", err)
	}
	return row, nil
}

func (r *rowRepository) Delete(ctx context.Context, datasetID, rowID int64) error {
	result, err := r.db.Exec(ctx,
		`DELETE FROM dataset_rows WHERE id = $1 AND dataset_id = $2`, rowID, datasetID)
	if err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *rowRepository) Count(ctx context.Context, datasetID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM dataset_rows WHERE dataset_id = $1`, datasetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

func scanRow(row pgx.Row) (*models.DatasetRow, error) {
	var r models.DatasetRow
	var cellsJSON []byte

	err := row.Scan(&r.ID, &r.DatasetID, &cellsJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	if err := json.Unmarshal(cellsJSON, &r.Cells); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cells: %w", err)
	}

	return &r, nil
}
