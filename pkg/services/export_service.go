package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
	"github.com/dataforge-io/dataforge-engine/pkg/repositories"
)

// Export formats.
const (
	ExportFormatCSV  = "csv"
	ExportFormatYAML = "yaml"
)

// exportPageSize is the fetch batch size while streaming a dataset out.
const exportPageSize = 500

// ExportService renders a full dataset into a portable format.
type ExportService interface {
	// Export returns the serialized dataset and a suggested content type.
	Export(ctx context.Context, datasetID int64, format string) ([]byte, string, error)
}

type exportService struct {
	datasets repositories.DatasetRepository
	columns  repositories.ColumnRepository
	rows     repositories.RowRepository
	logger   *zap.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(datasets repositories.DatasetRepository, columns repositories.ColumnRepository, rows repositories.RowRepository, logger *zap.Logger) ExportService {
	return &exportService{
		datasets: datasets,
		columns:  columns,
		rows:     rows,
		logger:   logger.Named("export-service"),
	}
}

var _ ExportService = (*exportService)(nil)

func (s *exportService) Export(ctx context.Context, datasetID int64, format string) ([]byte, string, error) {
	if _, err := s.datasets.GetByID(ctx, datasetID); err != nil {
		return nil, "", err
	}

	columns, err := s.columns.GetByDataset(ctx, datasetID)
	if err != nil {
		return nil, "", err
	}
	if len(columns) == 0 {
		return nil, "", apperrors.ErrNoColumnsDefined
	}

	rows, err := s.fetchAllRows(ctx, datasetID)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case ExportFormatCSV:
		data, err := renderCSV(columns, rows)
		return data, "text/csv", err
	case ExportFormatYAML:
		data, err := renderYAML(columns, rows)
		return data, "application/yaml", err
	}
	return nil, "", fmt.Errorf("unknown export format %q: %w", format, apperrors.ErrInvalidInput)
}

func (s *exportService) fetchAllRows(ctx context.Context, datasetID int64) ([]models.DatasetRow, error) {
	var all []models.DatasetRow
	for page := 1; ; page++ {
		fetched, err := s.rows.FetchPage(ctx, datasetID, page, exportPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, fetched.Rows...)
		if !fetched.HasNext {
			return all, nil
		}
	}
}

func renderCSV(columns []models.Column, rows []models.DatasetRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			value, _ := row.CellValue(c.ID)
			record[i] = value
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func renderYAML(columns []models.Column, rows []models.DatasetRow) ([]byte, error) {
	out := make([]map[string]string, len(rows))
	for i, row := range rows {
		record := make(map[string]string, len(columns))
		for _, c := range columns {
			value, _ := row.CellValue(c.ID)
			record[c.Name] = value
		}
		out[i] = record
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return data, nil
}
