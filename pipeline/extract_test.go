package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	t.Run("direct parse", func(t *testing.T) {
		v, err := ExtractJSON(`{"a": 1, "b": "x"}`)
		require.NoError(t, err)
		obj := v.(map[string]any)
		assert.Equal(t, json.Number("1"), obj["a"])
		assert.Equal(t, "x", obj["b"])
	})

	t.Run("strips end-of-turn marker", func(t *testing.T) {
		v, err := ExtractJSON(`{"a": 1}<|im_end|>`)
		require.NoError(t, err)
		assert.Contains(t, v.(map[string]any), "a")
	})

	t.Run("fenced block", func(t *testing.T) {
		text := "Here is the result:\n```json\n{\"answer\": \"yes\"}\n```\nDone."
		v, err := ExtractJSON(text)
		require.NoError(t, err)
		assert.Equal(t, "yes", v.(map[string]any)["answer"])
	})

	t.Run("balanced object in prose", func(t *testing.T) {
		text := `The model says {"score": 5, "note": "has } inside"} and more.`
		v, err := ExtractJSON(text)
		require.NoError(t, err)
		obj := v.(map[string]any)
		assert.Equal(t, json.Number("5"), obj["score"])
		assert.Equal(t, "has } inside", obj["note"])
	})

	t.Run("nested objects balance", func(t *testing.T) {
		v, err := ExtractJSON(`prefix {"outer": {"inner": 1}} suffix`)
		require.NoError(t, err)
		outer := v.(map[string]any)["outer"].(map[string]any)
		assert.Equal(t, json.Number("1"), outer["inner"])
	})

	t.Run("escaped quotes inside strings", func(t *testing.T) {
		v, err := ExtractJSON(`{"text": "a \"quoted\" brace }"}`)
		require.NoError(t, err)
		assert.Equal(t, `a "quoted" brace }`, v.(map[string]any)["text"])
	})

	t.Run("top level array parses directly", func(t *testing.T) {
		v, err := ExtractJSON(`[1, 2, 3]`)
		require.NoError(t, err)
		assert.Len(t, v.([]any), 3)
	})

	t.Run("no json anywhere", func(t *testing.T) {
		_, err := ExtractJSON("just plain prose with no braces")
		assert.Error(t, err)
	})

	t.Run("unbalanced object", func(t *testing.T) {
		_, err := ExtractJSON(`{"open": 1`)
		assert.Error(t, err)
	})
}

func TestWalkPath(t *testing.T) {
	v := map[string]any{
		"a": map[string]any{"b": map[string]any{"c": 42}},
	}

	t.Run("descends nested keys", func(t *testing.T) {
		got, err := walkPath(v, "a.b.c")
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("empty path returns value", func(t *testing.T) {
		got, err := walkPath(v, "")
		require.NoError(t, err)
		assert.Equal(t, v, got)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := walkPath(v, "a.missing")
		assert.Error(t, err)
	})

	t.Run("non-object intermediate", func(t *testing.T) {
		_, err := walkPath(v, "a.b.c.d")
		assert.Error(t, err)
	})
}

func TestWrapSchema(t *testing.T) {
	t.Run("object properties", func(t *testing.T) {
		raw, err := wrapSchema(`{"properties": {"q": {"type": "string"}}, "required": ["q"]}`)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"type": "object",
			"properties": {"q": {"type": "string"}},
			"required": ["q"],
			"additionalProperties": false
		}`, string(raw))
	})

	t.Run("string-encoded properties", func(t *testing.T) {
		raw, err := wrapSchema(`{"properties": "{\"n\": {\"type\": \"integer\"}}", "required": ["n"]}`)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"type": "object",
			"properties": {"n": {"type": "integer"}},
			"required": ["n"],
			"additionalProperties": false
		}`, string(raw))
	})

	t.Run("invalid fragment", func(t *testing.T) {
		_, err := wrapSchema(`not json`)
		assert.Error(t, err)
	})

	t.Run("invalid string properties", func(t *testing.T) {
		_, err := wrapSchema(`{"properties": "not json"}`)
		assert.Error(t, err)
	})
}
