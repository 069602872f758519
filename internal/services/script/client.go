package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

const defaultHTTPTimeout = 60 * time.Second

// Client generates narration scripts through an OpenRouter-compatible chat
// completions endpoint.
type Client struct {
	cfg        config.LLM
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (used in tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a script generation client.
func NewClient(cfg config.LLM, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate produces a short-form narration script for the topic. Genre
// defaults to "horror" when empty, matching the service's content focus.
func (c *Client) Generate(ctx context.Context, topic, genre string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", services.Wrap(services.ErrValidation, "script", "generate", "topic is required", nil)
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", services.Wrap(services.ErrConfiguration, "script", "generate", "llm.api_key is not configured", nil)
	}
	if genre = strings.TrimSpace(genre); genre == "" {
		genre = "horror"
	}

	prompt := fmt.Sprintf(
		"Write a %s narration script for a 60 second vertical short about: %s. "+
			"Plain spoken prose only, no scene directions, no hashtags.",
		genre, topic,
	)
	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "script", "generate", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "script", "generate", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "script", "generate", "llm request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "script", "generate", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrExternalTool, "script", "generate",
			fmt.Sprintf("llm returned http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "script", "generate", "parse response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", services.Wrap(services.ErrExternalTool, "script", "generate", "llm returned no choices", nil)
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", services.Wrap(services.ErrExternalTool, "script", "generate", "llm returned empty content", nil)
	}
	return content, nil
}
