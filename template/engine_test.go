package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderNamed(t *testing.T) {
	e := New()
	require.NoError(t, e.Add("greeting", "Hello {{.name}}!"))

	out, err := e.Render("greeting", map[string]any{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world!", out)

	assert.True(t, e.Has("greeting"))
	assert.False(t, e.Has("missing"))
}

func TestRenderLiteral(t *testing.T) {
	e := New()

	out, err := e.Render("{{.a}}-{{.b}}", map[string]any{"a": "x", "b": "y"})
	require.NoError(t, err)
	assert.Equal(t, "x-y", out)
}

func TestRenderMissingColumn(t *testing.T) {
	e := New()

	_, err := e.Render("{{.absent}}", map[string]any{"present": 1})
	assert.Error(t, err)
}

func TestAddParseError(t *testing.T) {
	e := New()
	err := e.Add("bad", "{{.unclosed")
	assert.Error(t, err)
}

func TestEvalBool(t *testing.T) {
	e := New()

	t.Run("true", func(t *testing.T) {
		ok, err := e.EvalBool("age >= 18", map[string]any{"age": 21})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("false", func(t *testing.T) {
		ok, err := e.EvalBool(`len(text) > 5`, map[string]any{"text": "hi"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("non-bool result", func(t *testing.T) {
		_, err := e.EvalBool("age + 1", map[string]any{"age": 1})
		assert.Error(t, err)
	})
}

func TestEvalValue(t *testing.T) {
	e := New()

	v, err := e.EvalValue(`upper(word)`, map[string]any{"word": "go"})
	require.NoError(t, err)
	assert.Equal(t, "GO", v)
}

func TestTemplateFuncs(t *testing.T) {
	e := New()

	t.Run("tojson", func(t *testing.T) {
		out, err := e.Render("{{tojson .v}}", map[string]any{"v": map[string]any{"k": 1}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"k":1}`, out)
	})

	t.Run("fromjson", func(t *testing.T) {
		out, err := e.Render(`{{$o := fromjson .raw}}{{index $o "k"}}`, map[string]any{"raw": `{"k":"v"}`})
		require.NoError(t, err)
		assert.Equal(t, "v", out)
	})

	t.Run("upper lower trim", func(t *testing.T) {
		out, err := e.Render("{{upper .s}} {{lower .s}} {{trim .p}}", map[string]any{"s": "Go", "p": "  x  "})
		require.NoError(t, err)
		assert.Equal(t, "GO go x", out)
	})

	t.Run("join", func(t *testing.T) {
		out, err := e.Render(`{{join ", " .items}}`, map[string]any{"items": []any{"a", "b"}})
		require.NoError(t, err)
		assert.Equal(t, "a, b", out)
	})

	t.Run("hash is stable", func(t *testing.T) {
		first, err := e.Render("{{hash .s}}", map[string]any{"s": "same"})
		require.NoError(t, err)
		second, err := e.Render("{{hash .s}}", map[string]any{"s": "same"})
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Len(t, first, 64)
	})

	t.Run("tool_call", func(t *testing.T) {
		out, err := e.Render("{{tool_call .c}}", map[string]any{
			"c": map[string]any{"name": "f"},
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "<tool_call>"))
		assert.True(t, strings.HasSuffix(out, "</tool_call>"))
	})

	t.Run("randint in range", func(t *testing.T) {
		out, err := e.Render("{{randint 5 6}}", nil)
		require.NoError(t, err)
		assert.Equal(t, "5", out)
	})

	t.Run("randint empty range", func(t *testing.T) {
		_, err := e.Render("{{randint 5 5}}", nil)
		assert.Error(t, err)
	})

	t.Run("shuffle keeps elements", func(t *testing.T) {
		out, err := e.Render(`{{join "" (shuffle .items)}}`, map[string]any{"items": []any{"a", "a", "a"}})
		require.NoError(t, err)
		assert.Equal(t, "aaa", out)
	})
}
