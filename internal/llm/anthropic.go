package llm

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic is the Completer backed by the Anthropic Messages API.
type Anthropic struct {
	client   anthropic.Client
	model    string
	defaults Params
}

// NewAnthropic creates an Anthropic completion driver.
func NewAnthropic(s Settings) *Anthropic {
	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(s.APIKey)}
	if s.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(s.BaseURL))
	}
	return &Anthropic{
		client:   anthropic.NewClient(opts...),
		model:    s.Model,
		defaults: Params{Temperature: s.Temperature, MaxTokens: s.MaxTokens},
	}
}

func (a *Anthropic) Kind() string { return "anthropic" }

// Complete performs a single-turn completion and returns concatenated text
// blocks from the response.
func (a *Anthropic) Complete(ctx context.Context, system, user string, opts ...Option) (string, error) {
	p := a.defaults.apply(opts)
	if p.MaxTokens <= 0 {
		p.MaxTokens = 1024
	}

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(p.MaxTokens),
		Temperature: anthropic.Float(p.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return b.String(), nil
}
