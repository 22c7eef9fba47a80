package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
	"github.com/dataforge-io/dataforge-engine/pkg/grid"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
	"github.com/dataforge-io/dataforge-engine/pkg/repositories"
	"github.com/dataforge-io/dataforge-engine/pkg/rules"
)

// ColumnCreateRequest carries the fields of a column create.
type ColumnCreateRequest struct {
	DatasetID   int64
	Name        string
	Type        string
	TypeDetails string
	Rules       string
}

// ColumnService provides column operations: creation and edits are validated
// against the rule language before anything is persisted, delete re-packs
// the survivors' positions, and reorder applies optimistically with a
// snapshot rollback on persistence failure.
type ColumnService interface {
	Create(ctx context.Context, req ColumnCreateRequest) ([]models.Column, error)
	List(ctx context.Context, datasetID int64) ([]models.Column, error)
	Update(ctx context.Context, columnID int64, fields models.UpdatableColumnFields) (*models.Column, error)
	Delete(ctx context.Context, columnID int64) error
	Reorder(ctx context.Context, datasetID int64, fromIndex, toIndex int) ([]models.Column, error)
	ValidateRules(ctx context.Context, datasetID int64, candidateName, ruleText string) (rules.ValidationResult, error)
}

type columnService struct {
	repo     repositories.ColumnRepository
	registry *grid.Registry
	logger   *zap.Logger
}

// NewColumnService creates a new ColumnService.
func NewColumnService(repo repositories.ColumnRepository, registry *grid.Registry, logger *zap.Logger) ColumnService {
	return &columnService{
		repo:     repo,
		registry: registry,
		logger:   logger.Named("column-service"),
	}
}

var _ ColumnService = (*columnService)(nil)

// Column names must stay referenceable by the @name rule syntax.
var columnNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// normalizeColumnName lowercases and trims a requested column name and
// joins interior whitespace with underscores.
func normalizeColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "_")
}

func (s *columnService) Create(ctx context.Context, req ColumnCreateRequest) ([]models.Column, error) {
	name := normalizeColumnName(req.Name)
	if name == "" || !columnNamePattern.MatchString(name) {
		return nil, fmt.Errorf("column name %q is not valid: %w", req.Name, apperrors.ErrInvalidInput)
	}
	if !models.ValidColumnType(req.Type) {
		return nil, fmt.Errorf("unknown column type %q: %w", req.Type, apperrors.ErrInvalidInput)
	}
	if req.Type == models.ColumnTypeJSON {
		if err := rules.ValidateTypeDetails(req.TypeDetails); err != nil {
			return nil, fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidInput)
		}
	}

	existing, err := s.repo.GetByDataset(ctx, req.DatasetID)
	if err != nil {
		return nil, err
	}

	if result := rules.ValidateReferences(name, req.Rules, columnNames(existing)); !result.OK() {
		return nil, referenceError(result)
	}

	column := &models.Column{
		DatasetID:   req.DatasetID,
		Name:        name,
		Type:        req.Type,
		TypeDetails: req.TypeDetails,
		Rules:       req.Rules,
		Position:    len(existing),
	}

	columns, err := s.repo.Create(ctx, column)
	if err != nil {
		s.logger.Error("Failed to create column",
			zap.Int64("dataset_id", req.DatasetID),
			zap.String("name", name),
			zap.Error(err))
		return nil, err
	}

	s.registry.Get(req.DatasetID).SetColumns(columns)
	s.logger.Info("column created",
		zap.Int64("dataset_id", req.DatasetID),
		zap.Int64("column_id", column.ID),
		zap.String("name", name))
	return columns, nil
}

func (s *columnService) List(ctx context.Context, datasetID int64) ([]models.Column, error) {
	columns, err := s.repo.GetByDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	s.registry.Get(datasetID).SetColumns(columns)
	return columns, nil
}

func (s *columnService) Update(ctx context.Context, columnID int64, fields models.UpdatableColumnFields) (*models.Column, error) {
	current, err := s.repo.GetByID(ctx, columnID)
	if err != nil {
		return nil, err
	}

	name := current.Name
	if fields.Name != nil {
		name = normalizeColumnName(*fields.Name)
		if name == "" || !columnNamePattern.MatchString(name) {
			return nil, fmt.Errorf("column name %q is not valid: %w", *fields.Name, apperrors.ErrInvalidInput)
		}
		fields.Name = &name
	}

	columnType := current.Type
	if fields.Type != nil {
		if !models.ValidColumnType(*fields.Type) {
			return nil, fmt.Errorf("unknown column type %q: %w", *fields.Type, apperrors.ErrInvalidInput)
		}
		columnType = *fields.Type
	}
	if columnType == models.ColumnTypeJSON {
		details := current.TypeDetails
		if fields.TypeDetails != nil {
			details = *fields.TypeDetails
		}
		if err := rules.ValidateTypeDetails(details); err != nil {
			return nil, fmt.Errorf("%s: %w", err.Error(), apperrors.ErrInvalidInput)
		}
	}

	if fields.Rules != nil {
		siblings, err := s.repo.GetByDataset(ctx, current.DatasetID)
		if err != nil {
			return nil, err
		}
		// The candidate is validated under its post-update name, covering a
		// rename that makes an existing rule self-referential.
		if result := rules.ValidateReferences(name, *fields.Rules, columnNamesExcept(siblings, columnID)); !result.OK() {
			return nil, referenceError(result)
		}
	}

	updated, err := s.repo.Update(ctx, columnID, fields)
	if err != nil {
		s.logger.Error("Failed to update column", zap.Int64("column_id", columnID), zap.Error(err))
		return nil, err
	}

	s.registry.Get(updated.DatasetID).ReplaceColumn(*updated)
	return updated, nil
}

func (s *columnService) Delete(ctx context.Context, columnID int64) error {
	current, err := s.repo.GetByID(ctx, columnID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, columnID); err != nil {
		s.logger.Error("Failed to delete column", zap.Int64("column_id", columnID), zap.Error(err))
		return err
	}

	// Positions were re-packed server side; reload the authoritative list.
	columns, err := s.repo.GetByDataset(ctx, current.DatasetID)
	if err != nil {
		return err
	}
	s.registry.Get(current.DatasetID).SetColumns(columns)

	s.logger.Info("column deleted",
		zap.Int64("dataset_id", current.DatasetID),
		zap.Int64("column_id", columnID))
	return nil
}

// Reorder moves the column at fromIndex to toIndex. The new positions are
// applied to the in-memory view first and rolled back to the pre-move
// snapshot if persisting any column of the batch fails.
func (s *columnService) Reorder(ctx context.Context, datasetID int64, fromIndex, toIndex int) ([]models.Column, error) {
	store := s.registry.Get(datasetID)

	columns, err := s.repo.GetByDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	store.SetColumns(columns)

	plan, err := grid.ReorderPlan(columns, fromIndex, toIndex)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return columns, nil
	}

	snapshot := store.SnapshotColumns()
	store.ApplyRepositions(plan)

	if err := s.repo.UpdatePositions(ctx, datasetID, plan); err != nil {
		store.RestoreColumns(snapshot)
		s.logger.Error("Failed to persist column reorder, rolled back",
			zap.Int64("dataset_id", datasetID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to reorder columns: %w", err)
	}

	return store.Columns(), nil
}

func (s *columnService) ValidateRules(ctx context.Context, datasetID int64, candidateName, ruleText string) (rules.ValidationResult, error) {
	existing, err := s.repo.GetByDataset(ctx, datasetID)
	if err != nil {
		return rules.ValidationResult{}, err
	}
	return rules.ValidateReferences(normalizeColumnName(candidateName), ruleText, columnNames(existing)), nil
}

func columnNames(columns []models.Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

func columnNamesExcept(columns []models.Column, excludeID int64) []string {
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		if c.ID != excludeID {
			names = append(names, c.Name)
		}
	}
	return names
}

func referenceError(result rules.ValidationResult) error {
	var problems []string
	if len(result.Circular) > 0 {
		problems = append(problems, fmt.Sprintf("circular references: %s", tokenNames(result.Circular)))
	}
	if len(result.Invalid) > 0 {
		problems = append(problems, fmt.Sprintf("unknown references: %s", tokenNames(result.Invalid)))
	}
	return fmt.Errorf("%s: %w", strings.Join(problems, "; "), apperrors.ErrInvalidInput)
}

func tokenNames(tokens []rules.Token) string {
	names := make([]string, len(tokens))
	for i, t := range tokens {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}
