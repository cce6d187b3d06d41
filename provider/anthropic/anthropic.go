// Package anthropic implements the Generator interface over the Anthropic
// API. Structured output is realized with a forced JSON tool, since the
// Messages API has no native JSON-schema response format.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	kiln "github.com/spetersoncode/kiln"
	"github.com/spetersoncode/kiln/retry"
)

const DefaultModel = "claude-sonnet-4-20250514"

// jsonResponseToolName is the reserved tool that carries structured output.
const jsonResponseToolName = "__kiln_json_response__"

// Client wraps the Anthropic SDK to implement kiln.Generator.
type Client struct {
	client   *anthropic.Client
	model    string
	retryCfg retry.Config
}

// ClientOption configures the Anthropic client.
type ClientOption func(*Client)

// WithAPIKey sets the API key explicitly instead of reading
// ANTHROPIC_API_KEY from the environment.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		client := anthropic.NewClient(option.WithAPIKey(key))
		c.client = &client
	}
}

// WithModel sets the model for generation requests.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg retry.Config) ClientOption {
	return func(c *Client) { c.retryCfg = cfg }
}

// New creates an Anthropic client. Without WithAPIKey the key comes from
// the ANTHROPIC_API_KEY environment variable.
func New(opts ...ClientOption) *Client {
	c := &Client{
		model:    DefaultModel,
		retryCfg: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		client := anthropic.NewClient()
		c.client = &client
	}
	return c
}

// Generate sends the messages and returns the completion text. When a
// response schema is set, the model is forced through a JSON tool and the
// tool's input is returned as the completion.
func (c *Client) Generate(ctx context.Context, messages []kiln.Message, opts ...kiln.GenerateOption) (string, error) {
	options := kiln.ApplyGenerateOptions(opts...)

	maxTokens := int64(4096)
	if options.MaxTokens > 0 {
		maxTokens = int64(options.MaxTokens)
	}

	msgs, system := convertMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if options.Temperature != nil {
		params.Temperature = anthropic.Float(*options.Temperature)
	}

	useJSONTool := options.ResponseSchema != nil
	if useJSONTool {
		tool, choice, err := buildJSONTool(options.ResponseSchema)
		if err != nil {
			return "", err
		}
		params.Tools = []anthropic.ToolUnionParam{tool}
		params.ToolChoice = choice
	}

	resp, err := retry.Do(ctx, c.retryCfg, func() (*anthropic.Message, error) {
		resp, err := c.client.Messages.New(ctx, params)
		return resp, wrapError(err)
	})
	if err != nil {
		return "", err
	}

	content := ""
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content += block.Text
		case "tool_use":
			if useJSONTool && block.Name == jsonResponseToolName {
				content = string(block.Input)
			}
		}
	}
	return content, nil
}

// buildJSONTool turns a response schema into a forced tool whose input is
// the structured output.
func buildJSONTool(s *kiln.ResponseSchema) (anthropic.ToolUnionParam, anthropic.ToolChoiceUnionParam, error) {
	var schema map[string]any
	if err := json.Unmarshal(s.Schema, &schema); err != nil {
		return anthropic.ToolUnionParam{}, anthropic.ToolChoiceUnionParam{}, fmt.Errorf("anthropic: response schema: %w", err)
	}

	description := "Output the response as structured JSON"
	if s.Description != "" {
		description = s.Description
	}

	var required []string
	if reqVal, ok := schema["required"].([]any); ok {
		for _, r := range reqVal {
			if str, ok := r.(string); ok {
				required = append(required, str)
			}
		}
	}

	tool := anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        jsonResponseToolName,
			Description: anthropic.String(description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
				Required:   required,
			},
		},
	}
	choice := anthropic.ToolChoiceUnionParam{
		OfTool: &anthropic.ToolChoiceToolParam{Name: jsonResponseToolName},
	}
	return tool, choice, nil
}

// convertMessages splits system turns out of the message list, since the
// Messages API takes them as a separate parameter.
func convertMessages(messages []kiln.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var msgs []anthropic.MessageParam
	var system []anthropic.TextBlockParam
	for _, msg := range messages {
		switch msg.Role {
		case kiln.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case kiln.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return msgs, system
}

var _ kiln.Generator = (*Client)(nil)
