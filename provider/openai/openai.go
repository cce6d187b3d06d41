// Package openai implements the Generator and Embedder interfaces over the
// OpenAI API, including any OpenAI-compatible server via WithBaseURL.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	kiln "github.com/spetersoncode/kiln"
	"github.com/spetersoncode/kiln/retry"
)

const (
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// Client wraps the OpenAI SDK to implement kiln.Generator and
// kiln.Embedder.
type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	retryCfg       retry.Config
}

// ClientOption configures the OpenAI client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	model          string
	embeddingModel string
	baseURL        string
	retryCfg       retry.Config
}

// WithModel sets the chat model for generation requests.
func WithModel(model string) ClientOption {
	return func(c *clientConfig) { c.model = model }
}

// WithEmbeddingModel sets the model for embedding requests.
func WithEmbeddingModel(model string) ClientOption {
	return func(c *clientConfig) { c.embeddingModel = model }
}

// WithBaseURL points the client at an OpenAI-compatible server (vLLM,
// llama.cpp, a gateway).
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg retry.Config) ClientOption {
	return func(c *clientConfig) { c.retryCfg = cfg }
}

// New creates an OpenAI client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	cfg := clientConfig{
		model:          DefaultModel,
		embeddingModel: DefaultEmbeddingModel,
		retryCfg:       retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	client := openai.NewClient(reqOpts...)

	return &Client{
		client:         &client,
		model:          cfg.model,
		embeddingModel: cfg.embeddingModel,
		retryCfg:       cfg.retryCfg,
	}
}

// Generate sends the messages as a chat completion and returns the
// completion text. Transient failures are retried per the client's policy.
func (c *Client) Generate(ctx context.Context, messages []kiln.Message, opts ...kiln.GenerateOption) (string, error) {
	options := kiln.ApplyGenerateOptions(opts...)

	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: convertMessages(messages),
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(*options.Temperature)
	}
	if options.ResponseSchema != nil {
		format, err := schemaFormat(options.ResponseSchema)
		if err != nil {
			return "", err
		}
		params.ResponseFormat = format
	}

	resp, err := retry.Do(ctx, c.retryCfg, func() (*openai.ChatCompletion, error) {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		return resp, wrapError(err)
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns one embedding vector per input text.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, kiln.ErrEmptyInput
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}

	resp, err := retry.Do(ctx, c.retryCfg, func() (*openai.CreateEmbeddingResponse, error) {
		resp, err := c.client.Embeddings.New(ctx, params)
		return resp, wrapError(err)
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float64, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// schemaFormat converts a response schema into the strict JSON-schema
// response format.
func schemaFormat(s *kiln.ResponseSchema) (openai.ChatCompletionNewParamsResponseFormatUnion, error) {
	var schemaObj map[string]any
	if err := json.Unmarshal(s.Schema, &schemaObj); err != nil {
		return openai.ChatCompletionNewParamsResponseFormatUnion{}, fmt.Errorf("openai: response schema: %w", err)
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
			JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        s.Name,
				Description: openai.String(s.Description),
				Schema:      schemaObj,
				Strict:      openai.Bool(true),
			},
		},
	}, nil
}

func convertMessages(messages []kiln.Message) []openai.ChatCompletionMessageParamUnion {
	var result []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case kiln.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case kiln.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
						ID: fmt.Sprintf("call_%d", i),
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      tc.Function.Name,
							Arguments: kiln.Stringify(tc.Function.Arguments),
						},
					}
				}
				result = append(result, openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						ToolCalls: toolCalls,
					},
				})
			} else {
				result = append(result, openai.AssistantMessage(msg.Content))
			}
		case kiln.RoleTool:
			result = append(result, openai.ToolMessage(msg.Content, "call_0"))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}

var (
	_ kiln.Generator = (*Client)(nil)
	_ kiln.Embedder  = (*Client)(nil)
)
