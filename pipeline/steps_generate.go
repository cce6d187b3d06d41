package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	kiln "github.com/spetersoncode/kiln"
)

// GenOption configures a generation step.
type GenOption func(*genConfig)

type genConfig struct {
	system      string
	maxTokens   int
	temperature *float64

	jsonPath       string
	schemaName     string
	schema         json.RawMessage
	schemaTemplate string
}

// WithSystem sets a system template (name or literal) rendered ahead of
// the prompt.
func WithSystem(template string) GenOption {
	return func(c *genConfig) { c.system = template }
}

// WithGenMaxTokens caps the completion length.
func WithGenMaxTokens(n int) GenOption {
	return func(c *genConfig) { c.maxTokens = n }
}

// WithGenTemperature sets the sampling temperature.
func WithGenTemperature(t float64) GenOption {
	return func(c *genConfig) { c.temperature = &t }
}

// WithJSONPath walks the extracted JSON value with a dot-separated key
// path before binding it.
func WithJSONPath(path string) GenOption {
	return func(c *genConfig) { c.jsonPath = path }
}

// WithSchema passes an inline JSON schema to the provider as a
// structured-output constraint.
func WithSchema(name string, schema json.RawMessage) GenOption {
	return func(c *genConfig) {
		c.schemaName = name
		c.schema = schema
	}
}

// WithSchemaTemplate renders the named template against the record to
// produce the JSON schema per record.
func WithSchemaTemplate(template string) GenOption {
	return func(c *genConfig) { c.schemaTemplate = template }
}

// genStep holds what TextGeneration and JsonGeneration share: template
// rendering and the provider call.
type genStep struct {
	name      string
	generator string
	prompt    string
	output    string
	cfg       genConfig

	rt  *runtime
	gen kiln.Generator
}

func (s *genStep) bind(rt *runtime) error {
	g, err := rt.generator(s.generator)
	if err != nil {
		return err
	}
	s.rt = rt
	s.gen = g
	return nil
}

// generate renders the prompt (and optional system template) and calls the
// provider.
func (s *genStep) generate(ctx context.Context, c *kiln.Context, schema *kiln.ResponseSchema) (string, error) {
	data := c.Data()

	prompt, err := s.rt.templates.Render(s.prompt, data)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	var messages []kiln.Message
	if s.cfg.system != "" {
		system, err := s.rt.templates.Render(s.cfg.system, data)
		if err != nil {
			return "", fmt.Errorf("render system: %w", err)
		}
		messages = append(messages, kiln.Message{Role: kiln.RoleSystem, Content: system})
	}
	messages = append(messages, kiln.Message{Role: kiln.RoleUser, Content: prompt})

	var opts []kiln.GenerateOption
	if s.cfg.maxTokens > 0 {
		opts = append(opts, kiln.WithMaxTokens(s.cfg.maxTokens))
	}
	if s.cfg.temperature != nil {
		opts = append(opts, kiln.WithTemperature(*s.cfg.temperature))
	}
	if schema != nil {
		opts = append(opts, kiln.WithResponseSchema(*schema))
	}

	return s.gen.Generate(ctx, messages, opts...)
}

// textGenerationStep binds the provider's raw completion text.
type textGenerationStep struct {
	genStep
}

// TextGeneration renders the prompt template against the record, calls the
// named generator, and binds the raw completion under output.
func TextGeneration(name, generator, prompt, output string, opts ...GenOption) Step {
	s := &textGenerationStep{genStep{name: name, generator: generator, prompt: prompt, output: output}}
	for _, o := range opts {
		o(&s.cfg)
	}
	return s
}

func (s *textGenerationStep) Name() string { return s.name }

func (s *textGenerationStep) Apply(ctx context.Context, c *kiln.Context) error {
	text, err := s.generate(ctx, c, nil)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	c.Set(s.output, text)
	return nil
}

// jsonGenerationStep binds a JSON value extracted from the completion.
type jsonGenerationStep struct {
	genStep
}

// JsonGeneration renders the prompt, calls the generator with an optional
// structured-output schema, extracts a JSON value from the completion
// (direct parse, then ```json fence, then first balanced object), walks
// the optional json path, and binds the result under output. A completion
// with no recoverable JSON fails the record.
func JsonGeneration(name, generator, prompt, output string, opts ...GenOption) Step {
	s := &jsonGenerationStep{genStep{name: name, generator: generator, prompt: prompt, output: output}}
	for _, o := range opts {
		o(&s.cfg)
	}
	return s
}

func (s *jsonGenerationStep) Name() string { return s.name }

func (s *jsonGenerationStep) Apply(ctx context.Context, c *kiln.Context) error {
	schema, err := s.responseSchema(c)
	if err != nil {
		return err
	}

	text, err := s.generate(ctx, c, schema)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	value, err := ExtractJSON(text)
	if err != nil {
		return fmt.Errorf("extract json: %w", err)
	}
	if s.cfg.jsonPath != "" {
		value, err = walkPath(value, s.cfg.jsonPath)
		if err != nil {
			return err
		}
	}
	c.Set(s.output, value)
	return nil
}

// responseSchema resolves the structured-output schema: inline, rendered
// from a template, or none.
func (s *jsonGenerationStep) responseSchema(c *kiln.Context) (*kiln.ResponseSchema, error) {
	switch {
	case s.cfg.schemaTemplate != "":
		rendered, err := s.rt.templates.Render(s.cfg.schemaTemplate, c.Data())
		if err != nil {
			return nil, fmt.Errorf("render schema: %w", err)
		}
		schema, err := wrapSchema(rendered)
		if err != nil {
			return nil, fmt.Errorf("schema template: %w", err)
		}
		return &kiln.ResponseSchema{Name: "OUTPUT", Schema: schema}, nil
	case s.cfg.schema != nil:
		name := s.cfg.schemaName
		if name == "" {
			name = "OUTPUT"
		}
		return &kiln.ResponseSchema{Name: name, Schema: s.cfg.schema}, nil
	default:
		return nil, nil
	}
}

// wrapSchema normalizes a rendered schema fragment into a strict object
// schema. The fragment supplies "properties" (object or JSON string) and
// "required".
func wrapSchema(rendered string) (json.RawMessage, error) {
	var fragment map[string]any
	if err := json.Unmarshal([]byte(rendered), &fragment); err != nil {
		return nil, err
	}

	properties := fragment["properties"]
	if s, ok := properties.(string); ok {
		var obj any
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return nil, fmt.Errorf("properties: %w", err)
		}
		properties = obj
	}

	return json.Marshal(map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             fragment["required"],
		"additionalProperties": false,
	})
}
