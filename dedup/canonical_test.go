package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSON(t *testing.T) {
	t.Run("string passes through raw", func(t *testing.T) {
		got, err := CanonicalJSON("hello world")
		require.NoError(t, err)
		assert.Equal(t, "hello world", got)
	})

	t.Run("map keys sorted recursively", func(t *testing.T) {
		v := map[string]any{
			"b": 2,
			"a": map[string]any{"z": 1, "y": []any{true, nil}},
		}
		got, err := CanonicalJSON(v)
		require.NoError(t, err)
		assert.Equal(t, `{"a":{"y":[true,null],"z":1},"b":2}`, got)
	})

	t.Run("key order does not matter", func(t *testing.T) {
		a, err := CanonicalJSON(map[string]any{"x": 1, "y": 2})
		require.NoError(t, err)
		b, err := CanonicalJSON(map[string]any{"y": 2, "x": 1})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("whole floats render as integers", func(t *testing.T) {
		got, err := CanonicalJSON(map[string]any{"n": float64(3)})
		require.NoError(t, err)
		assert.Equal(t, `{"n":3}`, got)
	})

	t.Run("typed values fall back through json", func(t *testing.T) {
		type payload struct {
			B int `json:"b"`
			A int `json:"a"`
		}
		got, err := CanonicalJSON(payload{B: 2, A: 1})
		require.NoError(t, err)
		assert.Equal(t, `{"a":1,"b":2}`, got)
	})
}

func TestHashValue(t *testing.T) {
	a, err := HashValue(map[string]any{"k": 1, "j": 2})
	require.NoError(t, err)
	b, err := HashValue(map[string]any{"j": 2, "k": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := HashValue(map[string]any{"j": 2, "k": 9})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	assert.Len(t, a, 64)
}

func TestCallHash(t *testing.T) {
	a, err := CallHash(map[string]any{
		"name":      "get_weather",
		"arguments": map[string]any{"city": "Oslo", "unit": "C"},
	})
	require.NoError(t, err)

	b, err := CallHash(map[string]any{
		"name":      "get_weather",
		"arguments": map[string]any{"unit": "C", "city": "Oslo"},
	})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	t.Run("missing name", func(t *testing.T) {
		_, err := CallHash(map[string]any{"arguments": map[string]any{}})
		assert.Error(t, err)
	})

	t.Run("missing arguments", func(t *testing.T) {
		_, err := CallHash(map[string]any{"name": "f"})
		assert.Error(t, err)
	})
}
