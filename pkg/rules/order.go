package rules

import (
	"github.com/dataforge-io/dataforge-engine/pkg/apperrors"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

// EvaluationOrder sorts columns so that every column appears after the
// columns its rules reference. Uses Kahn's algorithm over the reference
// edges; self-references are ignored here (the validator already rejects
// them). Returns apperrors.ErrCircularRules when a cross-column cycle
// prevents a complete ordering.
func EvaluationOrder(columns []models.Column) ([]models.Column, error) {
	if len(columns) == 0 {
		return nil, nil
	}

	nameToIndex := make(map[string]int, len(columns))
	for i, col := range columns {
		nameToIndex[col.Name] = i
	}

	dependents := make(map[int][]int)
	inDegree := make([]int, len(columns))

	for i, col := range columns {
		for _, ref := range References(col.Rules) {
			depIndex, ok := nameToIndex[ref.Name]
			if !ok || depIndex == i {
				continue
			}
			dependents[depIndex] = append(dependents[depIndex], i)
			inDegree[i]++
		}
	}

	queue := make([]int, 0, len(columns))
	for i, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, i)
		}
	}

	sorted := make([]models.Column, 0, len(columns))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, columns[current])

		for _, dep := range dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) != len(columns) {
		return nil, apperrors.ErrCircularRules
	}
	return sorted, nil
}
