package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/grid"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
	"github.com/dataforge-io/dataforge-engine/pkg/repositories"
)

// RowService provides paged row access and row mutations. Every operation
// keeps the dataset's in-memory grid view in sync with what was persisted.
type RowService interface {
	FetchPage(ctx context.Context, datasetID int64, page, pageSize int) (models.RowPage, error)
	UpdateRow(ctx context.Context, datasetID, rowID int64, cellEdits map[int64]string) (*models.DatasetRow, error)
	DeleteRow(ctx context.Context, datasetID, rowID int64) error
}

type rowService struct {
	repo     repositories.RowRepository
	registry *grid.Registry
	logger   *zap.Logger
}

// NewRowService creates a new RowService.
func NewRowService(repo repositories.RowRepository, registry *grid.Registry, logger *zap.Logger) RowService {
	return &rowService{
		repo:     repo,
		registry: registry,
		logger:   logger.Named("row-service"),
	}
}

var _ RowService = (*rowService)(nil)

func (s *rowService) FetchPage(ctx context.Context, datasetID int64, page, pageSize int) (models.RowPage, error) {
	paginator := grid.NewPaginator(s.registry.Get(datasetID), grid.RowFetcherFunc(s.repo.FetchPage), s.logger)
	return paginator.LoadPage(ctx, page, pageSize)
}

func (s *rowService) UpdateRow(ctx context.Context, datasetID, rowID int64, cellEdits map[int64]string) (*models.DatasetRow, error) {
	updated, err := s.repo.UpdateCells(ctx, datasetID, rowID, cellEdits)
	if err != nil {
		s.logger.Error("Failed to update row",
			zap.Int64("dataset_id", datasetID),
			zap.Int64("row_id", rowID),
			zap.Error(err))
		return nil, err
	}

	s.registry.Get(datasetID).UpdateRow(*updated)
	return updated, nil
}

func (s *rowService) DeleteRow(ctx context.Context, datasetID, rowID int64) error {
	if err := s.repo.Delete(ctx, datasetID, rowID); err != nil {
		return err
	}

	s.registry.Get(datasetID).DeleteRow(rowID)
	return nil
}
