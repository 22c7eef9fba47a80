package grid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

type fakeFetcher struct {
	page models.RowPage
	err  error

	lastDatasetID int64
	lastPage      int
	lastPageSize  int
	calls         int
}

func (f *fakeFetcher) FetchRows(_ context.Context, datasetID int64, page, pageSize int) (models.RowPage, error) {
	f.calls++
	f.lastDatasetID = datasetID
	f.lastPage = page
	f.lastPageSize = pageSize
	if f.err != nil {
		return models.RowPage{}, f.err
	}
	return f.page, nil
}

func TestPaginator_LoadPage_InstallsFetchedPage(t *testing.T) {
	store := NewStore(7, 100)
	fetcher := &fakeFetcher{page: models.RowPage{
		Rows:      []models.DatasetRow{{ID: 1}, {ID: 2}},
		Page:      2,
		PageSize:  50,
		TotalRows: 120,
		HasNext:   true,
	}}
	paginator := NewPaginator(store, fetcher, zap.NewNop())

	page, err := paginator.LoadPage(context.Background(), 2, 50)
	require.NoError(t, err)

	assert.Equal(t, int64(7), fetcher.lastDatasetID)
	assert.Equal(t, 2, fetcher.lastPage)
	assert.Equal(t, 50, fetcher.lastPageSize)
	assert.True(t, page.HasNext)
	assert.Len(t, store.Rows(), 2)
	assert.Equal(t, int64(120), store.TotalRows())
}

func TestPaginator_LoadPage_ReplacesBufferedRows(t *testing.T) {
	store := NewStore(7, 100)
	store.IngestGeneratedRow(7, models.DatasetRow{ID: 99, DatasetID: 7})

	fetcher := &fakeFetcher{page: models.RowPage{
		Rows: []models.DatasetRow{{ID: 1}}, Page: 1, PageSize: 50, TotalRows: 1,
	}}
	paginator := NewPaginator(store, fetcher, zap.NewNop())

	_, err := paginator.LoadPage(context.Background(), 1, 50)
	require.NoError(t, err)

	rows := store.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)
}

func TestPaginator_LoadPage_FetchError(t *testing.T) {
	store := NewStore(7, 100)
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	paginator := NewPaginator(store, fetcher, zap.NewNop())

	_, err := paginator.LoadPage(context.Background(), 1, 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch rows")
}

func TestPaginator_Refresh_UsesCurrentPage(t *testing.T) {
	store := NewStore(7, 100)
	store.SetPage(models.RowPage{Rows: nil, Page: 3, PageSize: 25, TotalRows: 80})

	fetcher := &fakeFetcher{page: models.RowPage{Page: 3, PageSize: 25, TotalRows: 80}}
	paginator := NewPaginator(store, fetcher, zap.NewNop())

	_, err := paginator.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, fetcher.lastPage)
	assert.Equal(t, 25, fetcher.lastPageSize)
}
