package conversation

import (
	"encoding/json"
	"fmt"

	kiln "github.com/spetersoncode/kiln"
)

// Render resolves the program's turns against a Context and returns the
// message list. A reference to an unbound column is a render error; the
// caller fails the record, not the run.
func (p *Program) Render(c *kiln.Context) ([]kiln.Message, error) {
	messages := make([]kiln.Message, 0, len(p.turns))
	for _, turn := range p.turns {
		msg, err := renderTurn(turn, c)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func renderTurn(turn Turn, c *kiln.Context) (kiln.Message, error) {
	switch turn.Directive {
	case DirectiveToolCalls:
		calls := make([]kiln.ToolCall, 0, len(turn.Columns))
		for _, col := range turn.Columns {
			v, ok := c.Get(col)
			if !ok {
				return kiln.Message{}, fmt.Errorf("%w: %q", kiln.ErrMissingColumn, col)
			}
			call, err := NormalizeToolCall(v)
			if err != nil {
				return kiln.Message{}, fmt.Errorf("column %q: %w", col, err)
			}
			calls = append(calls, call)
		}
		return kiln.Message{Role: turn.Role, ToolCalls: calls}, nil

	case DirectiveThink:
		v, ok := c.Get(turn.Columns[0])
		if !ok {
			return kiln.Message{}, fmt.Errorf("%w: %q", kiln.ErrMissingColumn, turn.Columns[0])
		}
		return kiln.Message{Role: turn.Role, ReasoningContent: kiln.Stringify(v)}, nil

	default:
		v, ok := c.Get(turn.Columns[0])
		if !ok {
			return kiln.Message{}, fmt.Errorf("%w: %q", kiln.ErrMissingColumn, turn.Columns[0])
		}
		return kiln.Message{Role: turn.Role, Content: kiln.Stringify(v)}, nil
	}
}

// NormalizeToolCall coerces the three accepted column shapes into the wire
// form {"function": {"name", "arguments"}}:
//
//   - an object (or JSON string) with a "function" key is kept as-is;
//   - an object with a "name" key is wrapped as {function: object};
//   - anything else becomes {function: {name: <string form>}}.
//
// Argument objects re-encode with sorted keys, so downstream hashing of the
// rendered conversation is deterministic.
func NormalizeToolCall(v any) (kiln.ToolCall, error) {
	if s, ok := v.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			return normalizeDecoded(parsed)
		}
		return kiln.ToolCall{Function: kiln.Function{Name: s}}, nil
	}
	return normalizeDecoded(v)
}

func normalizeDecoded(v any) (kiln.ToolCall, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return kiln.ToolCall{Function: kiln.Function{Name: kiln.Stringify(v)}}, nil
	}

	if fn, ok := obj["function"]; ok {
		inner, ok := fn.(map[string]any)
		if !ok {
			return kiln.ToolCall{}, fmt.Errorf("tool call %q field is not an object", "function")
		}
		return functionFrom(inner)
	}
	if _, ok := obj["name"]; ok {
		return functionFrom(obj)
	}
	return kiln.ToolCall{Function: kiln.Function{Name: kiln.Stringify(v)}}, nil
}

func functionFrom(obj map[string]any) (kiln.ToolCall, error) {
	name, ok := obj["name"].(string)
	if !ok {
		return kiln.ToolCall{}, fmt.Errorf("tool call name is %T, not a string", obj["name"])
	}
	return kiln.ToolCall{Function: kiln.Function{Name: name, Arguments: obj["arguments"]}}, nil
}

// NormalizeMessageContent reduces a chosen/rejected/solution column to a
// message-content string: an object carrying a "content" key contributes
// that value's string form, anything else its own string form.
func NormalizeMessageContent(v any) string {
	if obj, ok := v.(map[string]any); ok {
		if content, ok := obj["content"]; ok {
			return kiln.Stringify(content)
		}
	}
	if s, ok := v.(string); ok {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			if content, ok := parsed["content"]; ok {
				return kiln.Stringify(content)
			}
		}
	}
	return kiln.Stringify(v)
}
