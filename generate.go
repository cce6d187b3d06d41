package kiln

import (
	"context"
	"encoding/json"
)

// Generator is the LLM collaborator: it turns a rendered prompt conversation
// into text. Implementations live under provider/ and are registered on the
// pipeline by name.
type Generator interface {
	// Generate sends the messages and returns the model's text output.
	Generate(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)
}

// Embedder is the embedding collaborator used by semantic deduplication.
type Embedder interface {
	// Embed returns one dense vector per input text, in input order.
	// Returns an error if texts is empty.
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// ResponseSchema constrains a generation to structured JSON output.
type ResponseSchema struct {
	// Name identifies the schema to the provider (required by OpenAI).
	Name string
	// Description is an optional hint shown to the model.
	Description string
	// Schema is the JSON Schema document itself.
	Schema json.RawMessage
}

// GenerateOptions holds per-call generation parameters.
type GenerateOptions struct {
	// MaxTokens caps the completion length. 0 means provider default.
	MaxTokens int
	// Temperature overrides the sampling temperature when non-nil.
	Temperature *float64
	// ResponseSchema requests schema-constrained JSON output when non-nil.
	ResponseSchema *ResponseSchema
}

// GenerateOption is a functional option for Generate calls.
type GenerateOption func(*GenerateOptions)

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = &t
	}
}

// WithResponseSchema requests schema-constrained JSON output.
func WithResponseSchema(s ResponseSchema) GenerateOption {
	return func(o *GenerateOptions) {
		o.ResponseSchema = &s
	}
}

// ApplyGenerateOptions applies functional options with defaults.
func ApplyGenerateOptions(opts ...GenerateOption) *GenerateOptions {
	o := &GenerateOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
