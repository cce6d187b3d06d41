package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectBuild(t *testing.T) {
	raw, err := Object().
		Desc("a question with a difficulty rating").
		Field("question", String().Desc("The question text").Required()).
		Field("difficulty", Integer().Min(1).Max(5).Required()).
		Field("hint", String()).
		Strict().
		Build()
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "object",
		"description": "a question with a difficulty rating",
		"properties": {
			"question": {"type": "string", "description": "The question text"},
			"difficulty": {"type": "integer", "minimum": 1, "maximum": 5},
			"hint": {"type": "string"}
		},
		"required": ["question", "difficulty"],
		"additionalProperties": false
	}`, string(raw))
}

func TestStringConstraints(t *testing.T) {
	t.Run("enum", func(t *testing.T) {
		raw, err := String().Enum("a", "b").Build()
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"string","enum":["a","b"]}`, string(raw))
	})

	t.Run("length bounds", func(t *testing.T) {
		raw, err := String().MinLength(1).MaxLength(10).Build()
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"string","minLength":1,"maxLength":10}`, string(raw))
	})

	t.Run("inverted length bounds", func(t *testing.T) {
		_, err := String().MinLength(10).MaxLength(1).Build()
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := String().Pattern("[unclosed").Build()
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})
}

func TestNumberConstraints(t *testing.T) {
	raw, err := Number().Min(0).Max(1).Build()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"number","minimum":0,"maximum":1}`, string(raw))

	_, err = Integer().Min(5).Max(1).Build()
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestArray(t *testing.T) {
	raw, err := Array(String()).MinItems(1).MaxItems(3).Build()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"array","items":{"type":"string"},"minItems":1,"maxItems":3}`, string(raw))

	t.Run("nil items", func(t *testing.T) {
		_, err := Array(nil).Build()
		assert.ErrorIs(t, err, ErrNilItems)
	})

	t.Run("invalid nested items", func(t *testing.T) {
		_, err := Array(Integer().Min(9).Max(1)).Build()
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}

func TestNestedObjectValidation(t *testing.T) {
	_, err := Object().
		Field("inner", Object().Field("bad", String().MinLength(2).MaxLength(1)).Required()).
		Build()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "inner", verr.Field)
}

func TestMustBuildPanics(t *testing.T) {
	assert.Panics(t, func() {
		String().MinLength(2).MaxLength(1).MustBuild()
	})
	assert.NotPanics(t, func() {
		Bool().MustBuild()
	})
}

func TestResponse(t *testing.T) {
	s, err := Response("Question", Object().Field("q", String().Required()).Strict())
	require.NoError(t, err)
	assert.Equal(t, "Question", s.Name)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {"q": {"type": "string"}},
		"required": ["q"],
		"additionalProperties": false
	}`, string(s.Schema))

	t.Run("invalid schema", func(t *testing.T) {
		_, err := Response("Bad", String().MinLength(2).MaxLength(1))
		assert.Error(t, err)
	})
}
