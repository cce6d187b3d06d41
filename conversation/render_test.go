package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kiln "github.com/spetersoncode/kiln"
)

func testContext(columns map[string]any) *kiln.Context {
	c := kiln.NewContext(0)
	for k, v := range columns {
		c.Set(k, v)
	}
	return c
}

func TestRenderRoundTrip(t *testing.T) {
	p, err := Parse("@system:a|@user:b|@assistant:c", "")
	require.NoError(t, err)

	c := testContext(map[string]any{"a": "S", "b": "Q", "c": "A"})
	conv, err := RenderSFT(p, c, "")
	require.NoError(t, err)

	out, err := conv.JSON()
	require.NoError(t, err)
	assert.Equal(t, `{"messages":[{"role":"system","content":"S"},{"role":"user","content":"Q"},{"role":"assistant","content":"A"}]}`, out)
}

func TestRenderToolCallTurn(t *testing.T) {
	p, err := Parse("@u:q|@a:tool_calls([call1])", "")
	require.NoError(t, err)

	c := testContext(map[string]any{
		"q":     "weather?",
		"call1": map[string]any{"name": "f", "arguments": map[string]any{"x": 1}},
	})

	messages, err := p.Render(c)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	turn := messages[1]
	assert.Equal(t, kiln.RoleAssistant, turn.Role)
	assert.Empty(t, turn.Content)
	require.Len(t, turn.ToolCalls, 1)
	assert.Equal(t, "f", turn.ToolCalls[0].Function.Name)
	assert.Equal(t, map[string]any{"x": 1}, turn.ToolCalls[0].Function.Arguments)
}

func TestRenderThinkTurn(t *testing.T) {
	p, err := Parse("@a:think(trace)", "")
	require.NoError(t, err)

	messages, err := p.Render(testContext(map[string]any{"trace": "step by step"}))
	require.NoError(t, err)
	assert.Equal(t, "step by step", messages[0].ReasoningContent)
	assert.Empty(t, messages[0].Content)
}

func TestRenderMissingColumn(t *testing.T) {
	p, err := Parse("@u:absent", "")
	require.NoError(t, err)

	_, err = p.Render(testContext(nil))
	assert.ErrorIs(t, err, kiln.ErrMissingColumn)
}

func TestRenderNonStringContent(t *testing.T) {
	p, err := Parse("@u:payload", "")
	require.NoError(t, err)

	messages, err := p.Render(testContext(map[string]any{"payload": map[string]any{"k": 1}}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":1}`, messages[0].Content)
}

func TestNormalizeToolCall(t *testing.T) {
	t.Run("wire form kept", func(t *testing.T) {
		call, err := NormalizeToolCall(map[string]any{
			"function": map[string]any{"name": "f", "arguments": map[string]any{"a": 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, "f", call.Function.Name)
	})

	t.Run("bare name object wrapped", func(t *testing.T) {
		call, err := NormalizeToolCall(map[string]any{"name": "g", "arguments": map[string]any{}})
		require.NoError(t, err)
		assert.Equal(t, "g", call.Function.Name)
	})

	t.Run("json string decoded", func(t *testing.T) {
		call, err := NormalizeToolCall(`{"name":"h","arguments":{"x":2}}`)
		require.NoError(t, err)
		assert.Equal(t, "h", call.Function.Name)
	})

	t.Run("plain string becomes name", func(t *testing.T) {
		call, err := NormalizeToolCall("lookup")
		require.NoError(t, err)
		assert.Equal(t, "lookup", call.Function.Name)
		assert.Nil(t, call.Function.Arguments)
	})

	t.Run("non-string name rejected", func(t *testing.T) {
		_, err := NormalizeToolCall(map[string]any{"name": 5})
		assert.Error(t, err)
	})

	t.Run("non-object function rejected", func(t *testing.T) {
		_, err := NormalizeToolCall(map[string]any{"function": "not an object"})
		assert.Error(t, err)
	})
}

func TestRenderSFTWithTools(t *testing.T) {
	p, err := Parse("@u:q|@a:ans", "")
	require.NoError(t, err)

	tools := []any{map[string]any{"name": "f"}}
	c := testContext(map[string]any{"q": "Q", "ans": "A", "tools": tools})

	conv, err := RenderSFT(p, c, "tools")
	require.NoError(t, err)
	assert.Equal(t, tools, conv.Tools)

	t.Run("missing tools column", func(t *testing.T) {
		_, err := RenderSFT(p, testContext(map[string]any{"q": "Q", "ans": "A"}), "tools")
		assert.ErrorIs(t, err, kiln.ErrMissingColumn)
	})
}

func TestRenderDPO(t *testing.T) {
	p, err := Parse("@s:sys|@u:q", "")
	require.NoError(t, err)

	c := testContext(map[string]any{
		"sys":  "S",
		"q":    "Q",
		"good": map[string]any{"role": "assistant", "content": "yes"},
		"bad":  "no",
	})

	conv, err := RenderDPO(p, c, "good", "bad")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)
	assert.Equal(t, "yes", conv.Chosen)
	assert.Equal(t, "no", conv.Rejected)

	t.Run("missing chosen column", func(t *testing.T) {
		_, err := RenderDPO(p, testContext(map[string]any{"sys": "S", "q": "Q", "bad": "no"}), "good", "bad")
		assert.ErrorIs(t, err, kiln.ErrMissingColumn)
	})
}

func TestRenderGRPO(t *testing.T) {
	p, err := Parse("@u:q", "")
	require.NoError(t, err)

	c := testContext(map[string]any{"q": "Q", "sol": "42"})
	conv, err := RenderGRPO(p, c, "sol", "math-checker")
	require.NoError(t, err)
	assert.Equal(t, "42", conv.Solution)
	assert.Equal(t, "math-checker", conv.ValidatorID)
}

func TestNormalizeMessageContent(t *testing.T) {
	assert.Equal(t, "plain", NormalizeMessageContent("plain"))
	assert.Equal(t, "inner", NormalizeMessageContent(map[string]any{"content": "inner"}))
	assert.Equal(t, "inner", NormalizeMessageContent(`{"role":"assistant","content":"inner"}`))
	assert.Equal(t, "7", NormalizeMessageContent(7))
}
