// Package schema provides a fluent builder for the JSON schemas passed to
// generation steps as structured-output constraints.
//
// Example:
//
//	s, err := schema.Object().
//	    Field("question", schema.String().Desc("The question text").Required()).
//	    Field("difficulty", schema.Integer().Min(1).Max(5).Required()).
//	    Strict().
//	    Build()
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	kiln "github.com/spetersoncode/kiln"
)

// Builder is implemented by all schema builders.
type Builder interface {
	// Build serializes the schema. Invalid constraints surface here.
	Build() (json.RawMessage, error)

	// MustBuild is like Build but panics on error.
	MustBuild() json.RawMessage

	// node returns the internal representation for composition.
	node() *node
}

// node is the internal JSON Schema representation.
type node struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`

	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	Items    *node `json:"items,omitempty"`
	MinItems *int  `json:"minItems,omitempty"`
	MaxItems *int  `json:"maxItems,omitempty"`

	Properties           map[string]*node `json:"properties,omitempty"`
	Required             []string         `json:"required,omitempty"`
	AdditionalProperties *bool            `json:"additionalProperties,omitempty"`
}

var (
	// ErrInvalidRange is returned when a minimum exceeds its maximum.
	ErrInvalidRange = errors.New("schema: minimum exceeds maximum")

	// ErrInvalidPattern is returned when a regex pattern does not compile.
	ErrInvalidPattern = errors.New("schema: invalid regex pattern")

	// ErrNilItems is returned when an array has no items schema.
	ErrNilItems = errors.New("schema: array requires items schema")
)

// ValidationError reports an inconsistent schema definition.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema: field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("schema: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (n *node) validate() error {
	switch n.Type {
	case "string":
		if n.MinLength != nil && n.MaxLength != nil && *n.MinLength > *n.MaxLength {
			return &ValidationError{Message: "minLength exceeds maxLength", Err: ErrInvalidRange}
		}
		if n.Pattern != "" {
			if _, err := regexp.Compile(n.Pattern); err != nil {
				return &ValidationError{
					Message: fmt.Sprintf("invalid pattern %q: %v", n.Pattern, err),
					Err:     ErrInvalidPattern,
				}
			}
		}
	case "integer", "number":
		if n.Minimum != nil && n.Maximum != nil && *n.Minimum > *n.Maximum {
			return &ValidationError{Message: "minimum exceeds maximum", Err: ErrInvalidRange}
		}
	case "array":
		if n.Items == nil {
			return &ValidationError{Message: "array requires items schema", Err: ErrNilItems}
		}
		if n.MinItems != nil && n.MaxItems != nil && *n.MinItems > *n.MaxItems {
			return &ValidationError{Message: "minItems exceeds maxItems", Err: ErrInvalidRange}
		}
		if err := n.Items.validate(); err != nil {
			return &ValidationError{Message: fmt.Sprintf("invalid items schema: %v", err), Err: err}
		}
	case "object":
		for name, prop := range n.Properties {
			if err := prop.validate(); err != nil {
				return &ValidationError{Field: name, Message: err.Error(), Err: err}
			}
		}
	}
	return nil
}

// Response builds a named structured-output constraint for generation
// steps.
func Response(name string, b Builder) (kiln.ResponseSchema, error) {
	raw, err := b.Build()
	if err != nil {
		return kiln.ResponseSchema{}, err
	}
	return kiln.ResponseSchema{Name: name, Schema: raw}, nil
}

// MustResponse is like Response but panics on error.
func MustResponse(name string, b Builder) kiln.ResponseSchema {
	s, err := Response(name, b)
	if err != nil {
		panic(err)
	}
	return s
}

func ptr[T any](v T) *T { return &v }
