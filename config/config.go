// Package config loads YAML pipeline specs and compiles them into runnable
// pipelines through the same builder API the library exposes. Environment
// variable references of the form ${VAR} are expanded across the whole file
// before parsing, so API keys stay out of spec files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec is the top-level YAML pipeline document.
type Spec struct {
	Name    string `yaml:"name"`
	Workers int    `yaml:"workers"`

	State     *StateSpec              `yaml:"state"`
	Providers map[string]ProviderSpec `yaml:"providers"`
	Templates map[string]string       `yaml:"templates"`
	Datasets  []DatasetSpec           `yaml:"datasets"`
	Source    SourceSpec              `yaml:"source"`
	Steps     []StepSpec              `yaml:"steps"`
}

// StateSpec configures the metadata store directory and dedup scope.
type StateSpec struct {
	Dir string `yaml:"dir"`
	// Scope is "run" (default) or "store".
	Scope string `yaml:"scope"`
}

// ProviderSpec configures one LLM or embedding client. Type selects the
// provider package: "openai", "anthropic", or "google". Any endpoint that
// speaks the OpenAI chat completions API works through type "openai" with a
// BaseURL.
type ProviderSpec struct {
	Type           string `yaml:"type"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	BaseURL        string `yaml:"base_url"`
}

// DatasetSpec configures one named dataset source.
type DatasetSpec struct {
	Name string `yaml:"name"`
	// Type is "jsonl", "json", "csv", "sqlite", "mcp", "mcp-sse",
	// "values", or "mix".
	Type string `yaml:"type"`

	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`

	// SQLite.
	Query string `yaml:"query"`

	// MCP stdio / SSE.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
	URL     string   `yaml:"url"`

	// Inline values.
	Column string `yaml:"column"`
	Values []any  `yaml:"values"`

	// Mix: names of previously declared datasets to interleave.
	Parts []string `yaml:"parts"`
}

// SourceSpec selects where records come from. Exactly one of N, Range, or
// Dataset must be set.
type SourceSpec struct {
	N       int        `yaml:"n"`
	Range   *RangeSpec `yaml:"range"`
	Dataset string     `yaml:"dataset"`
}

// RangeSpec is a half-open integer range with stride.
type RangeSpec struct {
	Start int `yaml:"start"`
	Stop  int `yaml:"stop"`
	Step  int `yaml:"step"`
}

// StepSpec configures one pipeline step. Kind selects the constructor; the
// remaining fields are kind-specific and ignored by other kinds.
type StepSpec struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`

	// Shared column/template fields.
	Column   string   `yaml:"column"`
	Columns  []string `yaml:"columns"`
	Output   string   `yaml:"output"`
	Target   string   `yaml:"target"`
	Field    string   `yaml:"field"`
	Template string   `yaml:"template"`
	Expr     string   `yaml:"expr"`

	// Dataset steps.
	Dataset string `yaml:"dataset"`
	Size    int    `yaml:"size"`

	// AddRandom.
	Low  int `yaml:"low"`
	High int `yaml:"high"`

	// Generation steps.
	Generator      string    `yaml:"generator"`
	Prompt         string    `yaml:"prompt"`
	System         string    `yaml:"system"`
	MaxTokens      int       `yaml:"max_tokens"`
	Temperature    *float64  `yaml:"temperature"`
	JSONPath       string    `yaml:"json_path"`
	Schema         yaml.Node `yaml:"schema"`
	SchemaName     string    `yaml:"schema_name"`
	SchemaTemplate string    `yaml:"schema_template"`
	Input          string    `yaml:"input"`

	// Language check.
	Language  string  `yaml:"language"`
	Precision float64 `yaml:"precision"`

	// Dedup.
	Embedder         string  `yaml:"embedder"`
	Threshold        float64 `yaml:"threshold"`
	SimilarityOutput string  `yaml:"similarity_output"`

	// Conversation rendering.
	DSL            string `yaml:"dsl"`
	Separator      string `yaml:"separator"`
	Tools          string `yaml:"tools"`
	ConversationID string `yaml:"conversation_id"`
	Chosen         string `yaml:"chosen"`
	Rejected       string `yaml:"rejected"`
	Solution       string `yaml:"solution"`
	Validator      string `yaml:"validator"`

	// ValidateJSON.
	Instance string `yaml:"instance"`

	// Writers.
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`

	// Branching.
	Then []StepSpec `yaml:"then"`
	Else []StepSpec `yaml:"else"`
}

// Load reads and parses a YAML pipeline spec. ${VAR} references are expanded
// from the environment before parsing; unknown keys are rejected.
func Load(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}
	return Parse(raw)
}

// Parse parses a YAML pipeline spec from raw bytes. See Load.
func Parse(raw []byte) (*Spec, error) {
	expanded := os.Expand(string(raw), func(key string) string {
		return os.Getenv(key)
	})

	var spec Spec
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parse spec: %w", err)
	}

	if spec.Name == "" {
		return nil, fmt.Errorf("spec: name is required")
	}
	return &spec, nil
}

// schemaJSON converts an inline YAML schema node to its JSON encoding.
func schemaJSON(n yaml.Node) (json.RawMessage, error) {
	if n.IsZero() {
		return nil, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return raw, nil
}
