package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/llm"
	"github.com/dataforge-io/dataforge-engine/pkg/models"
	"github.com/dataforge-io/dataforge-engine/pkg/repositories"
	"github.com/dataforge-io/dataforge-engine/pkg/rules"
)

// RowGenerator produces and persists the rows of one generation run,
// invoking emit after each persisted row. It returns nil when the target row
// count is reached, ctx.Err() when cancelled, and any other error on
// failure.
type RowGenerator interface {
	Generate(ctx context.Context, run *models.GenerationRun, columns []models.Column, emit func(row *models.DatasetRow, generated int64)) error
}

// GeneratorConfig tunes a row generator.
type GeneratorConfig struct {
	Temperature            float64
	MaxTokens              int
	FrequencyResetInterval int
}

type rowGenerator struct {
	values llm.ValueGenerator
	rows   repositories.RowRepository
	cfg    GeneratorConfig
	logger *zap.Logger

	// randInt64N is swappable in tests for deterministic random commands.
	randInt64N func(n int64) int64
}

// NewRowGenerator creates a generator that evaluates columns in dependency
// order, prompting the inference endpoint once per cell.
func NewRowGenerator(values llm.ValueGenerator, rows repositories.RowRepository, cfg GeneratorConfig, logger *zap.Logger) RowGenerator {
	if cfg.FrequencyResetInterval <= 0 {
		cfg.FrequencyResetInterval = 20
	}
	return &rowGenerator{
		values:     values,
		rows:       rows,
		cfg:        cfg,
		logger:     logger.Named("generator"),
		randInt64N: rand.Int64N,
	}
}

var _ RowGenerator = (*rowGenerator)(nil)

func (g *rowGenerator) Generate(ctx context.Context, run *models.GenerationRun, columns []models.Column, emit func(row *models.DatasetRow, generated int64)) error {
	sorted, err := rules.EvaluationOrder(columns)
	if err != nil {
		return err
	}

	tracker := NewWordFrequencyTracker()
	personaMgr := NewPersonaManager()

	for i := int64(0); i < run.TargetRows; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := g.generateRow(ctx, run.DatasetID, sorted, tracker, personaMgr)
		if err != nil {
			return err
		}

		emit(row, i+1)

		if (i+1)%int64(g.cfg.FrequencyResetInterval) == 0 {
			tracker.Reset()
		}
	}

	return nil
}

func (g *rowGenerator) generateRow(ctx context.Context, datasetID int64, columns []models.Column, tracker *WordFrequencyTracker, personaMgr *PersonaManager) (*models.DatasetRow, error) {
	persona := personaMgr.CurrentAndRotate()
	cells := make([]models.RowCell, 0, len(columns))
	valuesByName := make(map[string]string, len(columns))

	for _, column := range columns {
		prompt := g.buildCellPrompt(column, valuesByName, tracker, persona)

		response, err := g.values.GenerateValue(ctx, prompt, cellSystemMessage, g.cfg.Temperature, g.cfg.MaxTokens)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to generate value for column %q: %w", column.Name, err)
		}

		value, err := coerceValue(column, response)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", column.Name, err)
		}

		switch column.Type {
		case models.ColumnTypeText:
			tracker.UpdateWordFrequency(column.Name, value, nil)
			tracker.UpdatePhraseFrequency(column.Name, value)
		case models.ColumnTypeJSON:
			excluded := extractJSONStructureKeys(column.TypeDetails)
			tracker.UpdateWordFrequency(column.Name, value, excluded)
			tracker.UpdatePhraseFrequency(column.Name, value)
		}

		cells = append(cells, models.RowCell{ColumnID: column.ID, Value: value})
		valuesByName[column.Name] = value
	}

	row := &models.DatasetRow{DatasetID: datasetID, Cells: cells}
	if err := g.rows.Insert(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to persist generated row: %w", err)
	}

	g.logger.Debug("row generated",
		zap.Int64("dataset_id", datasetID),
		zap.Int64("row_id", row.ID),
		zap.String("persona", persona))
	return row, nil
}

// buildCellPrompt renders the prompt for one cell: rule tokens are resolved
// (references to already generated values, random commands to locally drawn
// integers) and the diversity avoid lists are appended.
func (g *rowGenerator) buildCellPrompt(column models.Column, valuesByName map[string]string, tracker *WordFrequencyTracker, persona string) string {
	resolvedRule := g.renderRule(column.Rules, valuesByName)

	avoidText := buildAvoidText(
		tracker.TopWordsToAvoid(column.Name),
		tracker.TopPhrasesToAvoid(column.Name),
	)

	format := column.Type
	returnLabel := "Value"
	if column.Type == models.ColumnTypeJSON {
		format = fmt.Sprintf("well formatted %s structure, structure details: %s",
			column.Type, column.TypeDetails)
		returnLabel = "Response (JSON only, no other text)"
	}

	replacer := strings.NewReplacer(
		"{persona}", persona,
		"{column_name}", column.Name,
		"{column_rule}", resolvedRule,
		"{format}", format,
		"{words_to_avoid}", avoidText,
		"{return}", returnLabel,
	)
	return replacer.Replace(cellPromptTemplate)
}

// renderRule substitutes every rule token in place: column references become
// the referenced column's generated value (empty when unknown), random
// commands are evaluated locally and never reach the model as instructions.
func (g *rowGenerator) renderRule(rule string, valuesByName map[string]string) string {
	tokens := rules.Tokenize(rule)
	if len(tokens) == 0 {
		return rule
	}

	var b strings.Builder
	last := 0
	for _, tok := range tokens {
		b.WriteString(rule[last:tok.Start])
		switch tok.Kind {
		case rules.TokenColumnReference:
			b.WriteString(valuesByName[tok.Name])
		case rules.TokenRandomSingle:
			b.WriteString(strconv.FormatInt(g.randomBelow(tok.Bound), 10))
		case rules.TokenRandomRange:
			b.WriteString(strconv.FormatInt(g.randomBetween(tok.Low, tok.High), 10))
		}
		last = tok.End
	}
	b.WriteString(rule[last:])
	return b.String()
}

// randomBelow draws uniformly from [0, n). n <= 0 yields 0.
func (g *rowGenerator) randomBelow(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return g.randInt64N(n)
}

// randomBetween draws uniformly from [low, high] inclusive. An inverted
// range yields low.
func (g *rowGenerator) randomBetween(low, high int64) int64 {
	if high < low {
		return low
	}
	return low + g.randInt64N(high-low+1)
}
