package kiln

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	c := NewContext(7)

	assert.Equal(t, 7, c.Index())
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, StatusRunning, c.Status())

	v, ok := c.Get("index")
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestNewContextFromRow(t *testing.T) {
	t.Run("preserves column order", func(t *testing.T) {
		row := map[string]any{"b": 2, "a": 1, "c": 3}
		c := NewContextFromRow(0, row, []string{"c", "a", "b"})

		assert.Equal(t, []string{"c", "a", "b", "index"}, c.Keys())
	})

	t.Run("index overrides a row column", func(t *testing.T) {
		c := NewContextFromRow(5, map[string]any{"index": "stale"}, []string{"index"})

		v, ok := c.Get("index")
		require.True(t, ok)
		assert.Equal(t, 5, v)
	})

	t.Run("unordered columns still bound", func(t *testing.T) {
		c := NewContextFromRow(0, map[string]any{"x": 1, "y": 2}, []string{"x"})

		assert.True(t, c.Has("y"))
	})
}

func TestContextStatus(t *testing.T) {
	c := NewContext(0)

	c.Complete()
	assert.Equal(t, StatusCompleted, c.Status())

	c.Fail()
	assert.True(t, c.Failed())

	// A failed Context never completes.
	c.Complete()
	assert.Equal(t, StatusFailed, c.Status())
}

func TestContextSetOverwrites(t *testing.T) {
	c := NewContext(0)
	c.Set("k", "first")
	c.Set("k", "second")

	v, _ := c.Get("k")
	assert.Equal(t, "second", v)
	assert.Equal(t, []string{"index", "k"}, c.Keys())
}

func TestContextGetString(t *testing.T) {
	c := NewContext(0)
	c.Set("text", "plain")
	c.Set("obj", map[string]any{"a": 1})

	s, ok := c.GetString("text")
	require.True(t, ok)
	assert.Equal(t, "plain", s)

	s, ok = c.GetString("obj")
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, s)

	_, ok = c.GetString("missing")
	assert.False(t, ok)
}

func TestContextDataIsACopy(t *testing.T) {
	c := NewContext(0)
	c.Set("k", "v")

	data := c.Data()
	data["k"] = "mutated"
	data["new"] = true

	v, _ := c.Get("k")
	assert.Equal(t, "v", v)
	assert.False(t, c.Has("new"))
}

func TestContextClone(t *testing.T) {
	c := NewContext(1)
	c.Set("k", "v")
	c.Fail()

	clone := c.Clone()
	clone.Set("k", "other")

	v, _ := c.Get("k")
	assert.Equal(t, "v", v)
	assert.Equal(t, c.ID(), clone.ID())
	assert.True(t, clone.Failed())
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "hello", Stringify("hello"))
	assert.Equal(t, "null", Stringify(nil))
	assert.Equal(t, "42", Stringify(42))
	assert.JSONEq(t, `{"x":1}`, Stringify(map[string]any{"x": 1}))
	assert.Equal(t, `[1,2]`, Stringify([]int{1, 2}))
}
