package grid

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

// RowFetcher is the backing source the paginator pulls pages from.
type RowFetcher interface {
	FetchRows(ctx context.Context, datasetID int64, page, pageSize int) (models.RowPage, error)
}

// RowFetcherFunc adapts a plain function to the RowFetcher interface.
type RowFetcherFunc func(ctx context.Context, datasetID int64, page, pageSize int) (models.RowPage, error)

func (f RowFetcherFunc) FetchRows(ctx context.Context, datasetID int64, page, pageSize int) (models.RowPage, error) {
	return f(ctx, datasetID, page, pageSize)
}

// Paginator maps page requests to fetches from the backing source and keeps
// the store's current page in sync with what was fetched.
type Paginator struct {
	store   *Store
	fetcher RowFetcher
	logger  *zap.Logger
}

// NewPaginator creates a paginator over the given store and backing source.
func NewPaginator(store *Store, fetcher RowFetcher, logger *zap.Logger) *Paginator {
	return &Paginator{
		store:   store,
		fetcher: fetcher,
		logger:  logger.Named("paginator"),
	}
}

// LoadPage fetches the requested page and installs it as the store's current
// page, replacing any locally buffered rows.
func (p *Paginator) LoadPage(ctx context.Context, page, pageSize int) (models.RowPage, error) {
	fetched, err := p.fetcher.FetchRows(ctx, p.store.DatasetID(), page, pageSize)
	if err != nil {
		return models.RowPage{}, fmt.Errorf("failed to fetch rows page %d: %w", page, err)
	}

	p.store.SetPage(fetched)
	p.logger.Debug("page loaded",
		zap.Int64("dataset_id", p.store.DatasetID()),
		zap.Int("page", fetched.Page),
		zap.Int("rows", len(fetched.Rows)),
		zap.Int64("total_rows", fetched.TotalRows))
	return fetched, nil
}

// Refresh re-fetches the current page, discarding local optimistic state.
// Used after a generation run fills the page past its buffer capacity.
func (p *Paginator) Refresh(ctx context.Context) (models.RowPage, error) {
	page, pageSize := p.store.Page()
	if pageSize <= 0 {
		pageSize = p.store.pageCapacity
	}
	return p.LoadPage(ctx, page, pageSize)
}
