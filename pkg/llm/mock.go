package llm

import (
	"context"
)

// MockValueGenerator is a configurable mock for testing generation logic.
// Set the function field to control behavior in tests.
type MockValueGenerator struct {
	// GenerateValueFunc is called when GenerateValue is invoked.
	// If nil, returns an empty string and nil error.
	GenerateValueFunc func(ctx context.Context, prompt, systemMessage string, temperature float64, maxTokens int) (string, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// GenerateValueCalls counts invocations for verification.
	GenerateValueCalls int
	// Prompts records every prompt passed in, in call order.
	Prompts []string
}

// NewMockValueGenerator creates a new mock with sensible defaults.
func NewMockValueGenerator() *MockValueGenerator {
	return &MockValueGenerator{Model: "mock-model"}
}

// GenerateValue implements ValueGenerator.
func (m *MockValueGenerator) GenerateValue(ctx context.Context, prompt, systemMessage string, temperature float64, maxTokens int) (string, error) {
	m.GenerateValueCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateValueFunc != nil {
		return m.GenerateValueFunc(ctx, prompt, systemMessage, temperature, maxTokens)
	}
	return "", nil
}

// GetModel implements ValueGenerator.
func (m *MockValueGenerator) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Ensure the mock satisfies the interface.
var _ ValueGenerator = (*MockValueGenerator)(nil)
