package grid

import (
	"fmt"

	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

// ReorderPlan computes the bulk position updates for moving the column at
// fromIndex to toIndex within a position-sorted column set. Every column
// strictly between the two indexes shifts by one toward the vacated slot and
// the moved column takes the target index; columns outside the span are not
// touched. The plan is computed against the given slice only, nothing is
// mutated.
func ReorderPlan(columns []models.Column, fromIndex, toIndex int) ([]models.PositionUpdate, error) {
	n := len(columns)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return nil, fmt.Errorf("%w: reorder indexes %d -> %d out of range for %d columns",
			apperrors.ErrInvalidInput, fromIndex, toIndex, n)
	}
	if fromIndex == toIndex {
		return nil, nil
	}

	var updates []models.PositionUpdate
	if toIndex < fromIndex {
		// Moving left: the displaced columns shift right.
		for i := toIndex; i < fromIndex; i++ {
			updates = append(updates, models.PositionUpdate{ColumnID: columns[i].ID, Position: i + 1})
		}
	} else {
		// Moving right: the displaced columns shift left.
		for i := fromIndex + 1; i <= toIndex; i++ {
			updates = append(updates, models.PositionUpdate{ColumnID: columns[i].ID, Position: i - 1})
		}
	}
	updates = append(updates, models.PositionUpdate{ColumnID: columns[fromIndex].ID, Position: toIndex})
	return updates, nil
}
