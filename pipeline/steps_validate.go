package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	kiln "github.com/spetersoncode/kiln"
	"github.com/spetersoncode/kiln/conversation"
)

// validateJSONStep validates a rendered instance against a rendered schema.
type validateJSONStep struct {
	name     string
	schema   string
	instance string

	rt *runtime
}

// ValidateJSON renders the schema and instance templates against the
// record and validates the instance. Schema and instance are template
// names or literals; a validation failure fails the record.
func ValidateJSON(name, schema, instance string) Step {
	return &validateJSONStep{name: name, schema: schema, instance: instance}
}

func (s *validateJSONStep) Name() string { return s.name }

func (s *validateJSONStep) bind(rt *runtime) error {
	s.rt = rt
	return nil
}

func (s *validateJSONStep) Apply(_ context.Context, c *kiln.Context) error {
	data := c.Data()

	schemaText, err := s.rt.templates.Render(s.schema, data)
	if err != nil {
		return fmt.Errorf("render schema: %w", err)
	}
	instanceText, err := s.rt.templates.Render(s.instance, data)
	if err != nil {
		return fmt.Errorf("render instance: %w", err)
	}

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaText))
	if err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", schemaDoc); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	sch, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	instance, err := jsonschema.UnmarshalJSON(strings.NewReader(instanceText))
	if err != nil {
		return fmt.Errorf("parse instance: %w", err)
	}
	if err := sch.Validate(instance); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

// toolNameRE is the allowed character set for tool names.
var toolNameRE = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// validateToolsStep checks a column of tool definitions.
type validateToolsStep struct {
	name   string
	column string
}

// ValidateTools checks every tool definition in the column: each must be
// an object whose "name" matches [a-zA-Z0-9_.-]+, with an optional string
// "description" and an optional object "parameters" whose "type" is or
// includes "object". A malformed definition fails the record.
func ValidateTools(name, column string) Step {
	return &validateToolsStep{name: name, column: column}
}

func (s *validateToolsStep) Name() string { return s.name }

func (s *validateToolsStep) Apply(_ context.Context, c *kiln.Context) error {
	defs, err := toolDefs(c, s.column)
	if err != nil {
		return err
	}
	for i, def := range defs {
		if err := validateToolDef(def); err != nil {
			return fmt.Errorf("tool %d: %w", i, err)
		}
	}
	return nil
}

// toolDefs reads the column as a list of tool definitions, decoding a JSON
// string form if needed.
func toolDefs(c *kiln.Context, column string) ([]any, error) {
	v, ok := c.Get(column)
	if !ok {
		return nil, fmt.Errorf("column %q: %w", column, kiln.ErrMissingColumn)
	}
	if s, ok := v.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("column %q: %w", column, err)
		}
		v = decoded
	}
	switch t := v.(type) {
	case []any:
		return t, nil
	case map[string]any:
		return []any{t}, nil
	default:
		return nil, fmt.Errorf("column %q: %T is not a tool list", column, v)
	}
}

func validateToolDef(def any) error {
	obj, ok := def.(map[string]any)
	if !ok {
		return fmt.Errorf("%T is not an object", def)
	}

	name, ok := obj["name"].(string)
	if !ok {
		return fmt.Errorf("missing name")
	}
	if !toolNameRE.MatchString(name) {
		return fmt.Errorf("invalid name %q", name)
	}

	if d, ok := obj["description"]; ok {
		if _, ok := d.(string); !ok {
			return fmt.Errorf("%s: description is %T, not string", name, d)
		}
	}

	params, ok := obj["parameters"]
	if !ok {
		return nil
	}
	pobj, ok := params.(map[string]any)
	if !ok {
		return fmt.Errorf("%s: parameters is %T, not object", name, params)
	}
	if typ, ok := pobj["type"]; ok && !typeIsObject(typ) {
		return fmt.Errorf("%s: parameters type %v is not object", name, typ)
	}
	return nil
}

// typeIsObject accepts "object" and type unions containing it.
func typeIsObject(typ any) bool {
	switch t := typ.(type) {
	case string:
		return t == "object"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "object" {
				return true
			}
		}
	}
	return false
}

// normalizeToolsStep rewrites a column of tool calls into wire shape.
type normalizeToolsStep struct {
	name   string
	column string
}

// NormalizeTools rewrites every tool call in the column into the
// {"function": {"name", "arguments"}} wire shape, with arguments in
// sorted-key form so downstream hashing is deterministic. An undecodable
// entry fails the record.
func NormalizeTools(name, column string) Step {
	return &normalizeToolsStep{name: name, column: column}
}

func (s *normalizeToolsStep) Name() string { return s.name }

func (s *normalizeToolsStep) Apply(_ context.Context, c *kiln.Context) error {
	defs, err := toolDefs(c, s.column)
	if err != nil {
		return err
	}
	calls := make([]kiln.ToolCall, 0, len(defs))
	for i, def := range defs {
		call, err := conversation.NormalizeToolCall(def)
		if err != nil {
			return fmt.Errorf("tool call %d: %w", i, err)
		}
		calls = append(calls, call)
	}
	c.Set(s.column, calls)
	return nil
}
