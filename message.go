package kiln

import "encoding/json"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Function is the callable part of a tool call: a name plus an arguments
// object. Arguments is kept as a decoded value so it can be re-encoded with
// sorted keys for deterministic hashing.
type Function struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments,omitempty"`
}

// ToolCall is a structured tool invocation embedded in an assistant message.
// The wire shape is {"function": {"name": ..., "arguments": ...}}.
type ToolCall struct {
	Function Function `json:"function"`
}

// Message is a single chat message in the conversation wire format shared by
// the conversation renderer, the providers, and the output writers.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	// ToolCalls holds tool invocation requests. Only set on assistant
	// messages; when set, Content is omitted.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ReasoningContent carries a reasoning block emitted by a think()
	// directive. Only set on assistant messages.
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// Conversation is a rendered message list plus the optional fields added by
// the export specializations: DPO sets Chosen/Rejected, GRPO sets Solution
// and ValidatorID. Tools carries the tool catalog when the render step was
// given one.
type Conversation struct {
	Messages []Message `json:"messages"`
	Tools    any       `json:"tools,omitempty"`
	ID       string    `json:"id,omitempty"`

	Chosen   string `json:"chosen,omitempty"`
	Rejected string `json:"rejected,omitempty"`

	Solution    string `json:"solution,omitempty"`
	ValidatorID string `json:"validator_id,omitempty"`
}

// JSON returns the conversation in its canonical wire encoding.
func (c Conversation) JSON() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
