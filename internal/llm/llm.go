// Package llm provides the text-completion capability used by the agents.
//
// Drivers share a single Completer interface; the engine treats the model as
// an opaque completion capability and never depends on provider specifics.
// Each driver returns the raw completion text; interpreting that text (JSON
// extraction, schema validation) happens at the agent layer.
package llm

import (
	"context"
	"fmt"
)

// Completer produces a text completion for a system instruction plus a user
// message. Implementations should return an empty string (with an error)
// rather than panicking on provider faults; the agent layer converts both
// errors and empty completions into failed tool results.
type Completer interface {
	Kind() string
	Complete(ctx context.Context, system, user string, opts ...Option) (string, error)
}

// Params are per-call completion parameters. Zero values fall back to the
// driver's configured defaults.
type Params struct {
	Temperature float64
	MaxTokens   int
}

// Option overrides one completion parameter for a single call.
type Option func(*Params)

// WithTemperature overrides the sampling temperature for one call.
func WithTemperature(t float64) Option {
	return func(p *Params) { p.Temperature = t }
}

// WithMaxTokens overrides the completion length ceiling for one call.
func WithMaxTokens(n int) Option {
	return func(p *Params) { p.MaxTokens = n }
}

func (p Params) apply(opts []Option) Params {
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Settings configure a driver at construction time.
type Settings struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// New constructs a Completer for the given provider kind.
func New(provider string, s Settings) (Completer, error) {
	switch provider {
	case "openai":
		return NewOpenAI(s), nil
	case "anthropic":
		return NewAnthropic(s), nil
	case "ollama":
		return NewOllama(s), nil
	default:
		return nil, fmt.Errorf("unknown model provider: %q", provider)
	}
}
