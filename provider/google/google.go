// Package google implements the Generator and Embedder interfaces over the
// Google GenAI (Gemini) API.
package google

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	kiln "github.com/spetersoncode/kiln"
	"github.com/spetersoncode/kiln/retry"
)

const (
	DefaultModel          = "gemini-2.0-flash"
	DefaultEmbeddingModel = "gemini-embedding-001"
)

// Client wraps the Google GenAI SDK to implement kiln.Generator and
// kiln.Embedder.
type Client struct {
	client         *genai.Client
	model          string
	embeddingModel string
	retryCfg       retry.Config
}

// ClientOption configures the Google client.
type ClientOption func(*Client)

// WithModel sets the model for generation requests.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithEmbeddingModel sets the model for embedding requests.
func WithEmbeddingModel(model string) ClientOption {
	return func(c *Client) { c.embeddingModel = model }
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg retry.Config) ClientOption {
	return func(c *Client) { c.retryCfg = cfg }
}

// New creates a Google GenAI client with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	c := &Client{
		client:         client,
		model:          DefaultModel,
		embeddingModel: DefaultEmbeddingModel,
		retryCfg:       retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate sends the messages and returns the completion text. A response
// schema switches the request to JSON output with that schema.
func (c *Client) Generate(ctx context.Context, messages []kiln.Message, opts ...kiln.GenerateOption) (string, error) {
	options := kiln.ApplyGenerateOptions(opts...)

	contents, system := convertMessages(messages)
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		config.Temperature = &temp
	}
	if options.ResponseSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseJsonSchema = options.ResponseSchema.Schema
	}

	resp, err := retry.Do(ctx, c.retryCfg, func() (*genai.GenerateContentResponse, error) {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
		return resp, wrapError(err)
	})
	if err != nil {
		return "", err
	}

	content := ""
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			content += part.Text
		}
	}
	return content, nil
}

// Embed returns one embedding vector per input text.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, kiln.ErrEmptyInput
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{{Text: text}},
		}
	}

	resp, err := retry.Do(ctx, c.retryCfg, func() (*genai.EmbedContentResponse, error) {
		resp, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, nil)
		return resp, wrapError(err)
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("google: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float64, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vec := make([]float64, len(emb.Values))
		for j, v := range emb.Values {
			vec[j] = float64(v)
		}
		out[i] = vec
	}
	return out, nil
}

// convertMessages maps roles onto the GenAI content model: system turns
// collapse into the system instruction, assistant becomes "model".
func convertMessages(messages []kiln.Message) ([]*genai.Content, string) {
	var contents []*genai.Content
	system := ""
	for _, msg := range messages {
		switch msg.Role {
		case kiln.RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += msg.Content
		case kiln.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}
	return contents, system
}

var (
	_ kiln.Generator = (*Client)(nil)
	_ kiln.Embedder  = (*Client)(nil)
)
