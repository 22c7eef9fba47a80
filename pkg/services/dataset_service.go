package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
	"github.com/dataforge-io/dataforge-engine/pkg/grid"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
	"github.com/dataforge-io/dataforge-engine/pkg/repositories"
)

// DatasetService provides dataset CRUD operations.
type DatasetService interface {
	Create(ctx context.Context, name, description string) (*models.Dataset, error)
	Get(ctx context.Context, id int64) (*models.Dataset, error)
	List(ctx context.Context) ([]*models.Dataset, error)
	Update(ctx context.Context, id int64, name, description string) (*models.Dataset, error)
	Delete(ctx context.Context, id int64) error
}

type datasetService struct {
	repo     repositories.DatasetRepository
	registry *grid.Registry
	logger   *zap.Logger
}

// NewDatasetService creates a new DatasetService.
func NewDatasetService(repo repositories.DatasetRepository, registry *grid.Registry, logger *zap.Logger) DatasetService {
	return &datasetService{
		repo:     repo,
		registry: registry,
		logger:   logger.Named("dataset-service"),
	}
}

var _ DatasetService = (*datasetService)(nil)

func (s *datasetService) Create(ctx context.Context, name, description string) (*models.Dataset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("dataset name is required: %w", apperrors.ErrInvalidInput)
	}

	dataset := &models.Dataset{Name: name, Description: description}
	if err := s.repo.Create(ctx, dataset); err != nil {
		s.logger.Error("Failed to create dataset", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	s.logger.Info("dataset created", zap.Int64("dataset_id", dataset.ID), zap.String("name", name))
	return dataset, nil
}

func (s *datasetService) Get(ctx context.Context, id int64) (*models.Dataset, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *datasetService) List(ctx context.Context) ([]*models.Dataset, error) {
	return s.repo.List(ctx)
}

func (s *datasetService) Update(ctx context.Context, id int64, name, description string) (*models.Dataset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("dataset name is required: %w", apperrors.ErrInvalidInput)
	}

	dataset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	dataset.Name = name
	dataset.Description = description
	if err := s.repo.Update(ctx, dataset); err != nil {
		s.logger.Error("Failed to update dataset", zap.Int64("dataset_id", id), zap.Error(err))
		return nil, err
	}
	return dataset, nil
}

func (s *datasetService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.registry.Drop(id)
	s.logger.Info("dataset deleted", zap.Int64("dataset_id", id))
	return nil
}
