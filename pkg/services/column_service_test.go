package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
	"github.com/dataforge-io/dataforge-engine/pkg/grid"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

func newColumnServiceTest(columns ...models.Column) (ColumnService, *memColumnRepo, *grid.Registry) {
	repo := newMemColumnRepo(columns...)
	registry := grid.NewRegistry(grid.DefaultPageCapacity)
	return NewColumnService(repo, registry, zap.NewNop()), repo, registry
}

func TestColumnService_Create_NormalizesName(t *testing.T) {
	svc, _, _ := newColumnServiceTest()

	columns, err := svc.Create(context.Background(), ColumnCreateRequest{
		DatasetID: 1,
		Name:      "  First Name ",
		Type:      models.ColumnTypeText,
	})
	require.NoError(t, err)
	require.Len(t, columns, 1)
	assert.Equal(t, "first_name", columns[0].Name)
	assert.Equal(t, 0, columns[0].Position)
}

func TestColumnService_Create_AppendsAtEnd(t *testing.T) {
	svc, _, _ := newColumnServiceTest(
		textColumn(1, 1, "first_name", "", 0),
		textColumn(2, 1, "last_name", "", 1),
	)

	columns, err := svc.Create(context.Background(), ColumnCreateRequest{
		DatasetID: 1,
		Name:      "email",
		Type:      models.ColumnTypeText,
	})
	require.NoError(t, err)
	require.Len(t, columns, 3)
	assert.Equal(t, "email", columns[2].Name)
	assert.Equal(t, 2, columns[2].Position)
}

func TestColumnService_Create_RejectsBadNameAndType(t *testing.T) {
	svc, _, _ := newColumnServiceTest()

	_, err := svc.Create(context.Background(), ColumnCreateRequest{DatasetID: 1, Name: "", Type: models.ColumnTypeText})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.Create(context.Background(), ColumnCreateRequest{DatasetID: 1, Name: "no-dashes!", Type: models.ColumnTypeText})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.Create(context.Background(), ColumnCreateRequest{DatasetID: 1, Name: "ok", Type: "BLOB"})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestColumnService_Create_JSONRequiresSchema(t *testing.T) {
	svc, _, _ := newColumnServiceTest()

	_, err := svc.Create(context.Background(), ColumnCreateRequest{
		DatasetID: 1,
		Name:      "payload",
		Type:      models.ColumnTypeJSON,
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.Create(context.Background(), ColumnCreateRequest{
		DatasetID:   1,
		Name:        "payload",
		Type:        models.ColumnTypeJSON,
		TypeDetails: `{"name": "string", "score": "number"}`,
	})
	require.NoError(t, err)
}

func TestColumnService_Create_RejectsSelfAndUnknownReferences(t *testing.T) {
	svc, repo, _ := newColumnServiceTest(textColumn(1, 1, "first_name", "", 0))

	_, err := svc.Create(context.Background(), ColumnCreateRequest{
		DatasetID: 1,
		Name:      "bio",
		Type:      models.ColumnTypeText,
		Rules:     "mention @bio",
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "circular references: bio")

	_, err = svc.Create(context.Background(), ColumnCreateRequest{
		DatasetID: 1,
		Name:      "bio",
		Type:      models.ColumnTypeText,
		Rules:     "mention @nickname",
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "unknown references: nickname")

	// Rejection is all-or-nothing: nothing was persisted.
	columns, err := repo.GetByDataset(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, columns, 1)

	_, err = svc.Create(context.Background(), ColumnCreateRequest{
		DatasetID: 1,
		Name:      "bio",
		Type:      models.ColumnTypeText,
		Rules:     "mention @first_name",
	})
	require.NoError(t, err)
}

func TestColumnService_Update_RenameCatchesSelfReference(t *testing.T) {
	svc, _, _ := newColumnServiceTest(
		textColumn(1, 1, "bio", "", 0),
		textColumn(2, 1, "summary", "", 1),
	)

	name := "summary_long"
	rulesText := "shorten @summary_long"
	_, err := svc.Update(context.Background(), 2, models.UpdatableColumnFields{
		Name:  &name,
		Rules: &rulesText,
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "circular references")
}

func TestColumnService_Update_RulesValidatedAgainstSiblings(t *testing.T) {
	svc, _, _ := newColumnServiceTest(
		textColumn(1, 1, "first_name", "", 0),
		textColumn(2, 1, "bio", "", 1),
	)

	good := "mention @first_name"
	updated, err := svc.Update(context.Background(), 2, models.UpdatableColumnFields{Rules: &good})
	require.NoError(t, err)
	assert.Equal(t, good, updated.Rules)

	bad := "mention @missing"
	_, err = svc.Update(context.Background(), 2, models.UpdatableColumnFields{Rules: &bad})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestColumnService_Update_NotFound(t *testing.T) {
	svc, _, _ := newColumnServiceTest()

	_, err := svc.Update(context.Background(), 99, models.UpdatableColumnFields{})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestColumnService_Delete_RepacksPositions(t *testing.T) {
	svc, repo, registry := newColumnServiceTest(
		textColumn(1, 1, "a", "", 0),
		textColumn(2, 1, "b", "", 1),
		textColumn(3, 1, "c", "", 2),
	)

	require.NoError(t, svc.Delete(context.Background(), 2))

	columns, err := repo.GetByDataset(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "a", columns[0].Name)
	assert.Equal(t, 0, columns[0].Position)
	assert.Equal(t, "c", columns[1].Name)
	assert.Equal(t, 1, columns[1].Position)

	// The in-memory view reloaded the re-packed list.
	cached := registry.Get(1).Columns()
	require.Len(t, cached, 2)
	assert.Equal(t, 1, cached[1].Position)
}

func TestColumnService_Reorder_PersistsNewPositions(t *testing.T) {
	svc, repo, _ := newColumnServiceTest(
		textColumn(1, 1, "a", "", 0),
		textColumn(2, 1, "b", "", 1),
		textColumn(3, 1, "c", "", 2),
		textColumn(4, 1, "d", "", 3),
	)

	columns, err := svc.Reorder(context.Background(), 1, 2, 0)
	require.NoError(t, err)

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, names)

	persisted, err := repo.GetByDataset(context.Background(), 1)
	require.NoError(t, err)
	for i, c := range persisted {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, names[i], c.Name)
	}
}

func TestColumnService_Reorder_RollsBackOnPersistFailure(t *testing.T) {
	svc, repo, registry := newColumnServiceTest(
		textColumn(1, 1, "a", "", 0),
		textColumn(2, 1, "b", "", 1),
		textColumn(3, 1, "c", "", 2),
	)
	repo.positionsErr = errBoundary

	_, err := svc.Reorder(context.Background(), 1, 0, 2)
	require.ErrorIs(t, err, errBoundary)

	// The in-memory view was restored to the pre-move snapshot.
	cached := registry.Get(1).Columns()
	require.Len(t, cached, 3)
	assert.Equal(t, "a", cached[0].Name)
	assert.Equal(t, "b", cached[1].Name)
	assert.Equal(t, "c", cached[2].Name)
}

func TestColumnService_Reorder_SamePositionIsNoop(t *testing.T) {
	svc, _, _ := newColumnServiceTest(
		textColumn(1, 1, "a", "", 0),
		textColumn(2, 1, "b", "", 1),
	)

	columns, err := svc.Reorder(context.Background(), 1, 1, 1)
	require.NoError(t, err)
	assert.Len(t, columns, 2)
}

func TestColumnService_Reorder_OutOfRange(t *testing.T) {
	svc, _, _ := newColumnServiceTest(textColumn(1, 1, "a", "", 0))

	_, err := svc.Reorder(context.Background(), 1, 0, 5)
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestColumnService_ValidateRules_ReportsAllProblems(t *testing.T) {
	svc, _, _ := newColumnServiceTest(textColumn(1, 1, "first_name", "", 0))

	result, err := svc.ValidateRules(context.Background(), 1, "bio", "use @first_name and @bio plus @missing")
	require.NoError(t, err)
	assert.False(t, result.OK())
	require.Len(t, result.Circular, 1)
	assert.Equal(t, "bio", result.Circular[0].Name)
	require.Len(t, result.Invalid, 1)
	assert.Equal(t, "missing", result.Invalid[0].Name)
	require.Len(t, result.Valid, 1)
	assert.Equal(t, "first_name", result.Valid[0].Name)
}
