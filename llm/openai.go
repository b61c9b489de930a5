package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/phantomlabs/beastmode/log"
	"github.com/phantomlabs/beastmode/retry"
)

const (
	defaultModel          = "gpt-4o"
	defaultVisionModel    = "gpt-4o"
	defaultEmbeddingModel = "text-embedding-3-small"

	// Matches the pgvector column width used by the matching queries.
	embeddingDimensions = 768
)

// OpenAIClient implements Client on the OpenAI chat and embeddings APIs.
// Every call goes through the shared retry policy so rate-limit responses
// back off instead of failing the node.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	visionModel    string
	embeddingModel openai.EmbeddingModel
	policy         retry.Policy
	logger         log.Logger
}

var _ Client = (*OpenAIClient)(nil)

// OpenAIOption customizes the client.
type OpenAIOption func(*OpenAIClient)

// WithModel overrides the chat model.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) { c.model = model }
}

// WithVisionModel overrides the multimodal model.
func WithVisionModel(model string) OpenAIOption {
	return func(c *OpenAIClient) { c.visionModel = model }
}

// WithEmbeddingModel overrides the embedding model.
func WithEmbeddingModel(model string) OpenAIOption {
	return func(c *OpenAIClient) { c.embeddingModel = openai.EmbeddingModel(model) }
}

// WithRetryPolicy overrides the rate-limit retry policy.
func WithRetryPolicy(policy retry.Policy) OpenAIOption {
	return func(c *OpenAIClient) { c.policy = policy }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) OpenAIOption {
	return func(c *OpenAIClient) { c.logger = logger }
}

// NewOpenAIClient creates a client for the given API key.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	return NewOpenAIClientWithConfig(openai.DefaultConfig(apiKey), opts...)
}

// NewOpenAIClientWithConfig creates a client from a full config, which lets
// callers point BaseURL at a compatible gateway.
func NewOpenAIClientWithConfig(config openai.ClientConfig, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		client:         openai.NewClientWithConfig(config),
		model:          defaultModel,
		visionModel:    defaultVisionModel,
		embeddingModel: openai.EmbeddingModel(defaultEmbeddingModel),
		policy:         retry.DefaultPolicy(),
		logger:         log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns the text completion for a prompt.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
}

// GenerateJSON prompts in JSON mode and decodes the response into out.
func (c *OpenAIClient) GenerateJSON(ctx context.Context, prompt string, out any) error {
	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return err
	}
	return UnmarshalResponse(content, out)
}

// GenerateVision runs a multimodal prompt over a base64-encoded PNG.
func (c *OpenAIClient) GenerateVision(ctx context.Context, prompt, imageB64 string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/png;base64," + imageB64,
						},
					},
				},
			},
		},
	})
}

// Embed returns the embedding vector for a text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := retry.Do(ctx, c.policy, func() error {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      []string{text},
			Model:      c.embeddingModel,
			Dimensions: embeddingDimensions,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("embedding response contained no data")
		}
		vector = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	return vector, nil
}

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	var content string
	err := retry.Do(ctx, c.policy, func() error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if retry.IsRateLimit(err) {
				c.logger.Warn("model rate limited, backing off: %v", err)
			}
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("completion response contained no choices")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return content, nil
}
