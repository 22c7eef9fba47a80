package llm

import (
	"context"
)

// ValueGenerator defines the interface the generation pipeline depends on.
// Use it for dependency injection to enable mocking in tests.
type ValueGenerator interface {
	// GenerateValue requests one completion for a cell prompt.
	GenerateValue(ctx context.Context, prompt, systemMessage string, temperature float64, maxTokens int) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure Client implements ValueGenerator at compile time.
var _ ValueGenerator = (*Client)(nil)
