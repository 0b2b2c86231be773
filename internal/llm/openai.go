package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI is the Completer backed by the OpenAI chat completions API.
// A custom BaseURL routes calls through OpenAI-compatible gateways.
type OpenAI struct {
	client   *openai.Client
	model    string
	defaults Params
}

// NewOpenAI creates an OpenAI completion driver.
func NewOpenAI(s Settings) *OpenAI {
	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	return &OpenAI{
		client:   openai.NewClientWithConfig(cfg),
		model:    s.Model,
		defaults: Params{Temperature: s.Temperature, MaxTokens: s.MaxTokens},
	}
}

func (o *OpenAI) Kind() string { return "openai" }

// Complete performs a single-turn chat completion.
func (o *OpenAI) Complete(ctx context.Context, system, user string, opts ...Option) (string, error) {
	p := o.defaults.apply(opts)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: float32(p.Temperature),
		MaxTokens:   p.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
