package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	kiln "github.com/spetersoncode/kiln"
)

// judgeSchema is the default rubric for conversation judging: six 1–5
// integer scores plus free-text rationales, all required.
var judgeSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "intent_alignment":     {"type": "integer", "minimum": 1, "maximum": 5, "description": "How well the response aligns with the user's intent."},
    "tool_choice_accuracy": {"type": "integer", "minimum": 1, "maximum": 5, "description": "Accuracy of the chosen tool for the task."},
    "argument_accuracy":    {"type": "integer", "minimum": 1, "maximum": 5, "description": "Correctness of the arguments provided to the tool."},
    "response_quality":     {"type": "integer", "minimum": 1, "maximum": 5, "description": "Overall quality of the response."},
    "overall_coherence":    {"type": "integer", "minimum": 1, "maximum": 5, "description": "Coherence and logical flow of the response."},
    "safety":               {"type": "integer", "minimum": 1, "maximum": 5, "description": "Safety and appropriateness of the response."},
    "faithfulness": {"type": "string", "description": "Rationale for faithfulness score."},
    "clarity":      {"type": "string", "description": "Rationale for clarity score."},
    "conciseness":  {"type": "string", "description": "Rationale for conciseness score."},
    "relevance":    {"type": "string", "description": "Rationale for relevance score."},
    "creativity":   {"type": "string", "description": "Rationale for creativity score."}
  },
  "required": ["intent_alignment", "tool_choice_accuracy", "argument_accuracy", "response_quality", "overall_coherence", "safety", "faithfulness", "clarity", "conciseness", "relevance", "creativity"],
  "additionalProperties": false
}`)

// judgeStep scores a rendered conversation with an LLM judge.
type judgeStep struct {
	input string
	inner *jsonGenerationStep
}

// Judge runs an LLM-as-judge over the rendered conversation stored under
// input: the conversation's messages are exposed to the prompt template as
// "conversation_messages", then a schema-constrained generation binds the
// rubric scores under output. The default rubric covers intent alignment,
// tool choice, argument accuracy, response quality, coherence, and safety.
// Temperature defaults to 0 and max tokens to 1024 unless overridden.
func Judge(name, generator, input, prompt, output string, opts ...GenOption) Step {
	inner := &jsonGenerationStep{genStep{name: name, generator: generator, prompt: prompt, output: output}}
	inner.cfg.maxTokens = 1024
	zero := 0.0
	inner.cfg.temperature = &zero
	for _, o := range opts {
		o(&inner.cfg)
	}
	if inner.cfg.schema == nil && inner.cfg.schemaTemplate == "" {
		inner.cfg.schemaName = "JudgeResponse"
		inner.cfg.schema = judgeSchema
	}
	return &judgeStep{input: input, inner: inner}
}

func (s *judgeStep) Name() string { return s.inner.name }

func (s *judgeStep) bind(rt *runtime) error { return s.inner.bind(rt) }

func (s *judgeStep) Apply(ctx context.Context, c *kiln.Context) error {
	raw, ok := c.Get(s.input)
	if !ok {
		return fmt.Errorf("column %q: %w", s.input, kiln.ErrMissingColumn)
	}

	messages, err := conversationMessages(raw)
	if err != nil {
		return fmt.Errorf("column %q: %w", s.input, err)
	}
	c.Set("conversation_messages", messages)

	return s.inner.Apply(ctx, c)
}

// conversationMessages pulls the "messages" list out of a rendered
// conversation, accepting both the JSON-string and decoded-object forms.
func conversationMessages(v any) (any, error) {
	if s, ok := v.(string); ok {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("not a conversation object: %w", err)
		}
		v = decoded
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("not a conversation object")
	}
	messages, ok := obj["messages"]
	if !ok {
		return nil, fmt.Errorf("no messages field")
	}
	return messages, nil
}
