// Package conversation compiles the @role:column mini-DSL into chat message
// lists. A conversation string is a sequence of turns separated by "|" (or a
// configured separator); each turn names a role and the Context column that
// holds its content:
//
//	@s:system|@u:question|@a:tool_calls([call1])|@t:response|@a:answer
//
// Assistant turns additionally support the tool_calls([col, ...]) and
// think(col) directives. Programs are parsed once at pipeline build time;
// rendering resolves columns against a Context per record.
package conversation

import (
	"fmt"
	"strings"

	kiln "github.com/spetersoncode/kiln"
)

// DefaultSeparator separates turns unless the step configures another.
const DefaultSeparator = "|"

// Directive is the kind of content an assistant turn carries.
type Directive int

const (
	// DirectiveContent binds a column as plain message content.
	DirectiveContent Directive = iota
	// DirectiveToolCalls binds columns as assistant tool calls.
	DirectiveToolCalls
	// DirectiveThink binds a column as assistant reasoning content.
	DirectiveThink
)

// Turn is one parsed conversation turn.
type Turn struct {
	Role      kiln.Role
	Directive Directive
	// Columns holds one column name for content/think turns, one or more
	// for tool_calls turns.
	Columns []string
}

// Program is a compiled conversation: an ordered turn list ready to render
// against any Context. Programs are immutable after Parse.
type Program struct {
	turns []Turn
}

// Turns returns the parsed turns in order.
func (p *Program) Turns() []Turn { return p.turns }

var roles = map[string]kiln.Role{
	"system": kiln.RoleSystem, "s": kiln.RoleSystem,
	"user": kiln.RoleUser, "u": kiln.RoleUser,
	"assistant": kiln.RoleAssistant, "a": kiln.RoleAssistant,
	"tool": kiln.RoleTool, "t": kiln.RoleTool,
}

// Parse compiles a conversation string. Unknown roles, malformed turns, and
// misplaced directives are compile errors; column existence is checked at
// render time. The separator "@" is rejected because it collides with role
// prefixes. When the separator is not "\n", newlines in the string are
// ignored so multi-line declarations stay readable.
func Parse(conversation, separator string) (*Program, error) {
	if separator == "" {
		separator = DefaultSeparator
	}
	if separator == "@" {
		return nil, fmt.Errorf("conversation: separator %q conflicts with role prefixes", separator)
	}

	src := strings.TrimSpace(conversation)
	if separator != "\n" {
		src = strings.ReplaceAll(src, "\n", "")
	}
	if src == "" {
		return nil, fmt.Errorf("conversation: empty conversation string")
	}

	var turns []Turn
	for _, raw := range strings.Split(src, separator) {
		turn, err := parseTurn(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return &Program{turns: turns}, nil
}

func parseTurn(raw string) (Turn, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "@") {
		return Turn{}, fmt.Errorf("conversation: invalid turn %q, expected @role:column", raw)
	}

	roleToken := strings.TrimSpace(strings.TrimPrefix(parts[0], "@"))
	role, ok := roles[roleToken]
	if !ok {
		return Turn{}, fmt.Errorf("conversation: unknown role %q, allowed roles are system, user, assistant, tool", roleToken)
	}

	body := strings.TrimSpace(parts[1])
	switch {
	case strings.HasPrefix(body, "tool_calls(") && strings.HasSuffix(body, ")"):
		if role != kiln.RoleAssistant {
			return Turn{}, fmt.Errorf("conversation: tool_calls directive requires the assistant role, got %q", roleToken)
		}
		cols, err := parseToolCallColumns(body)
		if err != nil {
			return Turn{}, err
		}
		return Turn{Role: role, Directive: DirectiveToolCalls, Columns: cols}, nil

	case strings.HasPrefix(body, "think(") && strings.HasSuffix(body, ")"):
		if role != kiln.RoleAssistant {
			return Turn{}, fmt.Errorf("conversation: think directive requires the assistant role, got %q", roleToken)
		}
		col := strings.TrimSpace(strings.Trim(strings.TrimSuffix(strings.TrimPrefix(body, "think("), ")"), `"`))
		if col == "" {
			return Turn{}, fmt.Errorf("conversation: think directive has no column in %q", raw)
		}
		return Turn{Role: role, Directive: DirectiveThink, Columns: []string{col}}, nil

	case body == "":
		return Turn{}, fmt.Errorf("conversation: turn %q has no column", raw)

	default:
		return Turn{Role: role, Directive: DirectiveContent, Columns: []string{body}}, nil
	}
}

// parseToolCallColumns extracts the column list from tool_calls([c1, c2]).
// The surrounding brackets are optional and quotes around names are ignored.
func parseToolCallColumns(body string) ([]string, error) {
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(body, "tool_calls("), ")"))
	if strings.HasPrefix(inner, "[") && strings.HasSuffix(inner, "]") {
		inner = strings.TrimSpace(inner[1 : len(inner)-1])
	}

	var cols []string
	for _, part := range strings.Split(inner, ",") {
		col := strings.Trim(strings.TrimSpace(part), `"`)
		if col != "" {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("conversation: tool_calls directive lists no columns in %q", body)
	}
	return cols, nil
}
