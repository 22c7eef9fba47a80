package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
	"github.com/dataforge-io/dataforge-engine/pkg/database"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

// DatasetRepository provides data access for dataset metadata.
type DatasetRepository interface {
	Create(ctx context.Context, dataset *models.Dataset) error
	GetByID(ctx context.Context, id int64) (*models.Dataset, error)
	List(ctx context.Context) ([]*models.Dataset, error)
	Update(ctx context.Context, dataset *models.Dataset) error
	Delete(ctx context.Context, id int64) error
}

type datasetRepository struct {
	db *database.DB
}

// NewDatasetRepository creates a new DatasetRepository.
func NewDatasetRepository(db *database.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

var _ DatasetRepository = (*datasetRepository)(nil)

func (r *datasetRepository) Create(ctx context.Context, dataset *models.Dataset) error {
	now := time.Now()

	query := `
		INSERT INTO datasets (name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		dataset.Name,
		dataset.Description,
		now,
		now,
	).Scan(&dataset.ID, &dataset.CreatedAt, &dataset.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}

	return nil
}

func (r *datasetRepository) GetByID(ctx context.Context, id int64) (*models.Dataset, error) {
	query := `
		SELECT d.id, d.name, d.description, d.created_at, d.updated_at,
		       (SELECT COUNT(*) FROM dataset_rows r WHERE r.dataset_id = d.id)
		FROM datasets d
		WHERE d.id = $1`

	var d models.Dataset
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt, &d.RowCount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	return &d, nil
}

func (r *datasetRepository) List(ctx context.Context) ([]*models.Dataset, error) {
	query := `
		SELECT d.id, d.name, d.description, d.created_at, d.updated_at,
		       (SELECT COUNT(*) FROM dataset_rows r WHERE r.dataset_id = d.id)
		FROM datasets d
		ORDER BY d.created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var datasets []*models.Dataset
	for rows.Next() {
		var d models.Dataset
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt, &d.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datasets: %w", err)
	}

	return datasets, nil
}

func (r *datasetRepository) Update(ctx context.Context, dataset *models.Dataset) error {
	query := `
		UPDATE datasets
		SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, dataset.ID, dataset.Name, dataset.Description).
		Scan(&dataset.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update dataset: %w", err)
	}

	return nil
}

func (r *datasetRepository) Delete(ctx context.Context, id int64) error {
	// Columns and rows go with the dataset via ON DELETE CASCADE.
	result, err := r.db.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
