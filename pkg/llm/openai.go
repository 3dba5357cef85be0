package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kccq-triage-server/internal/domain"
)

// OpenAIClient is the concrete transport to an OpenAI-compatible completion
// API. It performs exactly one request per call; timeouts, retries, and
// failure classification live in the Gateway.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs the client from the LLM configuration. A custom
// BaseURL points the client at any OpenAI-compatible endpoint.
func NewOpenAIClient(cfg domain.LLMConfig) *OpenAIClient {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(apiCfg),
		model:  model,
	}
}

// Complete sends one chat completion request and returns the raw text. An
// empty choice list yields an empty string, which the Gateway rejects as a
// malformed response.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	var temperature float32
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
