package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Ollama is the Completer backed by a local Ollama server's chat API.
// It lets the engine run end-to-end with no API keys.
type Ollama struct {
	endpoint string // e.g. http://localhost:11434
	model    string
	defaults Params
	client   *http.Client
}

// NewOllama creates an Ollama completion driver.
func NewOllama(s Settings) *Ollama {
	endpoint := s.BaseURL
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &Ollama{
		endpoint: endpoint,
		model:    s.Model,
		defaults: Params{Temperature: s.Temperature, MaxTokens: s.MaxTokens},
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (d *Ollama) Kind() string { return "ollama" }

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Error   string            `json:"error,omitempty"`
}

// Complete performs a non-streaming chat completion via /api/chat.
func (d *Ollama) Complete(ctx context.Context, system, user string, opts ...Option) (string, error) {
	p := d.defaults.apply(opts)

	options := map[string]any{"temperature": p.Temperature}
	if p.MaxTokens > 0 {
		options["num_predict"] = p.MaxTokens
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model: d.model,
		Messages: []ollamaChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  false,
		Options: options,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := d.endpoint + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama chat API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result ollamaChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama: %s", result.Error)
	}
	return result.Message.Content, nil
}
