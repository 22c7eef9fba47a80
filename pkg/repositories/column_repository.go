package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
	"github.com/dataforge-io/dataforge-engine/pkg/database"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

// ColumnRepository provides data access for dataset columns. Create returns
// the full updated column list so callers always see a consistent position
// order; UpdatePositions and Delete are transactional.
type ColumnRepository interface {
	Create(ctx context.Context, column *models.Column) ([]models.Column, error)
	GetByID(ctx context.Context, id int64) (*models.Column, error)
	GetByDataset(ctx context.Context, datasetID int64) ([]models.Column, error)
	Update(ctx context.Context, id int64, fields models.UpdatableColumnFields) (*models.Column, error)
	UpdatePositions(ctx context.Context, datasetID int64, updates []models.PositionUpdate) error
	Delete(ctx context.Context, id int64) error
}

type columnRepository struct {
	db *database.DB
}

// NewColumnRepository creates a new ColumnRepository.
func NewColumnRepository(db *database.DB) ColumnRepository {
	return &columnRepository{db: db}
}

var _ ColumnRepository = (*columnRepository)(nil)

const columnFields = `id, dataset_id, name, column_type, column_type_details, rules, position, created_at, updated_at`

func (r *columnRepository) Create(ctx context.Context, column *models.Column) ([]models.Column, error) {
	now := time.Now()

	query := `
		INSERT INTO dataset_columns (dataset_id, name, column_type, column_type_details, rules, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		column.DatasetID,
		column.Name,
		column.Type,
		column.TypeDetails,
		column.Rules,
		column.Position,
		now,
		now,
	).Scan(&column.ID, &column.CreatedAt, &column.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("column %q already exists: %w", column.Name, apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create column: %w", err)
	}

	return r.GetByDataset(ctx, column.DatasetID)
}

func (r *columnRepository) GetByID(ctx context.Context, id int64) (*models.Column, error) {
	query := `SELECT ` + columnFields + ` FROM dataset_columns WHERE id = $1`

	col, err := scanColumn(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return col, nil
}

func (r *columnRepository) GetByDataset(ctx context.Context, datasetID int64) ([]models.Column, error) {
	query := `SELECT ` + columnFields + ` FROM dataset_columns WHERE dataset_id = $1 ORDER BY position`

	rows, err := r.db.Query(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		col, err := scanColumn(rows)
		if err != nil {
			return nil, err
		}
		columns = append(columns, *col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return columns, nil
}

func (r *columnRepository) Update(ctx context.Context, id int64, fields models.UpdatableColumnFields) (*models.Column, error) {
	setClauses := []string{"updated_at = now()"}
	args := []any{id}

	addSet := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Name != nil {
		addSet("name", *fields.Name)
	}
	if fields.Type != nil {
		addSet("column_type", *fields.Type)
	}
	if fields.TypeDetails != nil {
		addSet("column_type_details", *fields.TypeDetails)
	}
	if fields.Rules != nil {
		addSet("rules", *fields.Rules)
	}
	if fields.Position != nil {
		addSet("position", *fields.Position)
	}

	query := fmt.Sprintf(`
		UPDATE dataset_columns
		SET %s
		WHERE id = $1
		RETURNING %s`, strings.Join(setClauses, ", "), columnFields)

	col, err := scanColumn(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("column name already taken: %w", apperrors.ErrConflict)
		}
		return nil, err
	}
	return col, nil
}

// UpdatePositions applies a bulk reorder in one transaction. Any individual
// failure rolls back the whole batch.
func (r *columnRepository) UpdatePositions(ctx context.Context, datasetID int64, updates []models.PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	query := `
		UPDATE dataset_columns
		SET position = $3, updated_at = now()
		WHERE id = $1 AND dataset_id = $2`

	for _, u := range updates {
		var result pgconn.CommandTag
		result, err = tx.Exec(ctx, query, u.ColumnID, datasetID, u.Position)
		if err != nil {
			return fmt.Errorf("failed to reposition column %d: %w", u.ColumnID, err)
		}
		if result.RowsAffected() == 0 {
			err = fmt.Errorf("column %d: %w", u.ColumnID, apperrors.ErrNotFound)
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}

// Delete removes a column, shifts every trailing column one position left
// and strips the column's cells from all rows, in one transaction.
func (r *columnRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var datasetID int64
	var position int
	err = tx.QueryRow(ctx,
		`DELETE FROM dataset_columns WHERE id = $1 RETURNING dataset_id, position`, id).
		Scan(&datasetID, &position)
	if err != nil {
		if err == pgx.ErrNoRows {
			err = apperrors.ErrNotFound
			return err
		}
		return fmt.Errorf("failed to delete column: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE dataset_columns
		SET position = position - 1, updated_at = now()
		WHERE dataset_id = $1 AND position > $2`, datasetID, position)
	if err != nil {
		return fmt.Errorf("failed to repack column positions: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE dataset_rows
		SET cells = COALESCE(
			(SELECT jsonb_agg(cell)
			 FROM jsonb_array_elements(cells) AS cell
			 WHERE (cell->>'column_id')::bigint <> $2),
			'[]'::jsonb),
		    updated_at = now()
		WHERE dataset_id = $1`, datasetID, id)
	if err != nil {
		return fmt.Errorf("failed to remove column cells: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit column delete: %w", err)
	}
	return nil
}

func scanColumn(row pgx.Row) (*models.Column, error) {
	var c models.Column
	err := row.Scan(
		&c.ID,
		&c.DatasetID,
		&c.Name,
		&c.Type,
		&c.TypeDetails,
		&c.Rules,
		&c.Position,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan column: %w", err)
	}
	return &c, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
