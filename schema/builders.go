package schema

import (
	"encoding/json"
	"fmt"
)

// RequiredField wraps a Builder to mark it required in an object.
type RequiredField struct {
	builder Builder
}

// build runs validation and serializes n.
func build(n *node) (json.RawMessage, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

func mustBuild(n *node) json.RawMessage {
	data, err := build(n)
	if err != nil {
		panic(err)
	}
	return data
}

// Object creates an object schema builder.
func Object() *ObjectBuilder {
	return &ObjectBuilder{n: &node{Type: "object", Properties: make(map[string]*node)}}
}

// ObjectBuilder constructs object schemas.
type ObjectBuilder struct {
	n *node
}

// Desc sets the object's description.
func (b *ObjectBuilder) Desc(description string) *ObjectBuilder {
	b.n.Description = description
	return b
}

// Field adds a property. field is a Builder or a *RequiredField.
func (b *ObjectBuilder) Field(name string, field any) *ObjectBuilder {
	switch f := field.(type) {
	case *RequiredField:
		b.n.Properties[name] = f.builder.node()
		b.require(name)
	case Builder:
		b.n.Properties[name] = f.node()
	default:
		panic(fmt.Sprintf("schema: Field %q requires a Builder or *RequiredField, got %T", name, field))
	}
	return b
}

func (b *ObjectBuilder) require(name string) {
	for _, r := range b.n.Required {
		if r == name {
			return
		}
	}
	b.n.Required = append(b.n.Required, name)
}

// Strict forbids extra properties. Providers in strict structured-output
// mode require this.
func (b *ObjectBuilder) Strict() *ObjectBuilder {
	b.n.AdditionalProperties = ptr(false)
	return b
}

// Required marks this object required when nested in another object.
func (b *ObjectBuilder) Required() *RequiredField { return &RequiredField{builder: b} }

func (b *ObjectBuilder) Build() (json.RawMessage, error) { return build(b.n) }
func (b *ObjectBuilder) MustBuild() json.RawMessage      { return mustBuild(b.n) }
func (b *ObjectBuilder) node() *node                     { return b.n }

// String creates a string schema builder.
func String() *StringBuilder {
	return &StringBuilder{n: &node{Type: "string"}}
}

// StringBuilder constructs string schemas.
type StringBuilder struct {
	n *node
}

// Desc sets the field description.
func (b *StringBuilder) Desc(description string) *StringBuilder {
	b.n.Description = description
	return b
}

// Enum restricts the value to the given options.
func (b *StringBuilder) Enum(values ...string) *StringBuilder {
	b.n.Enum = make([]any, len(values))
	for i, v := range values {
		b.n.Enum[i] = v
	}
	return b
}

// MinLength sets the minimum length.
func (b *StringBuilder) MinLength(n int) *StringBuilder {
	b.n.MinLength = ptr(n)
	return b
}

// MaxLength sets the maximum length.
func (b *StringBuilder) MaxLength(n int) *StringBuilder {
	b.n.MaxLength = ptr(n)
	return b
}

// Pattern sets a regex the value must match.
func (b *StringBuilder) Pattern(regex string) *StringBuilder {
	b.n.Pattern = regex
	return b
}

// Required marks this field required when used in an object.
func (b *StringBuilder) Required() *RequiredField { return &RequiredField{builder: b} }

func (b *StringBuilder) Build() (json.RawMessage, error) { return build(b.n) }
func (b *StringBuilder) MustBuild() json.RawMessage      { return mustBuild(b.n) }
func (b *StringBuilder) node() *node                     { return b.n }

// Number creates a number schema builder.
func Number() *NumberBuilder {
	return &NumberBuilder{n: &node{Type: "number"}}
}

// Integer creates an integer schema builder.
func Integer() *NumberBuilder {
	return &NumberBuilder{n: &node{Type: "integer"}}
}

// NumberBuilder constructs number and integer schemas.
type NumberBuilder struct {
	n *node
}

// Desc sets the field description.
func (b *NumberBuilder) Desc(description string) *NumberBuilder {
	b.n.Description = description
	return b
}

// Min sets the inclusive minimum.
func (b *NumberBuilder) Min(v float64) *NumberBuilder {
	b.n.Minimum = ptr(v)
	return b
}

// Max sets the inclusive maximum.
func (b *NumberBuilder) Max(v float64) *NumberBuilder {
	b.n.Maximum = ptr(v)
	return b
}

// Required marks this field required when used in an object.
func (b *NumberBuilder) Required() *RequiredField { return &RequiredField{builder: b} }

func (b *NumberBuilder) Build() (json.RawMessage, error) { return build(b.n) }
func (b *NumberBuilder) MustBuild() json.RawMessage      { return mustBuild(b.n) }
func (b *NumberBuilder) node() *node                     { return b.n }

// Bool creates a boolean schema builder.
func Bool() *BoolBuilder {
	return &BoolBuilder{n: &node{Type: "boolean"}}
}

// BoolBuilder constructs boolean schemas.
type BoolBuilder struct {
	n *node
}

// Desc sets the field description.
func (b *BoolBuilder) Desc(description string) *BoolBuilder {
	b.n.Description = description
	return b
}

// Required marks this field required when used in an object.
func (b *BoolBuilder) Required() *RequiredField { return &RequiredField{builder: b} }

func (b *BoolBuilder) Build() (json.RawMessage, error) { return build(b.n) }
func (b *BoolBuilder) MustBuild() json.RawMessage      { return mustBuild(b.n) }
func (b *BoolBuilder) node() *node                     { return b.n }

// Array creates an array schema builder over the given items schema.
func Array(items Builder) *ArrayBuilder {
	ab := &ArrayBuilder{n: &node{Type: "array"}}
	if items != nil {
		ab.n.Items = items.node()
	}
	return ab
}

// ArrayBuilder constructs array schemas.
type ArrayBuilder struct {
	n *node
}

// Desc sets the field description.
func (b *ArrayBuilder) Desc(description string) *ArrayBuilder {
	b.n.Description = description
	return b
}

// MinItems sets the minimum item count.
func (b *ArrayBuilder) MinItems(n int) *ArrayBuilder {
	b.n.MinItems = ptr(n)
	return b
}

// MaxItems sets the maximum item count.
func (b *ArrayBuilder) MaxItems(n int) *ArrayBuilder {
	b.n.MaxItems = ptr(n)
	return b
}

// Required marks this field required when used in an object.
func (b *ArrayBuilder) Required() *RequiredField { return &RequiredField{builder: b} }

func (b *ArrayBuilder) Build() (json.RawMessage, error) { return build(b.n) }
func (b *ArrayBuilder) MustBuild() json.RawMessage      { return mustBuild(b.n) }
func (b *ArrayBuilder) node() *node                     { return b.n }
