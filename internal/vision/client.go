// Package vision is the transport to a remote vision-language model. The
// model is an unreliable boundary: responses may be malformed, partial or
// prose-wrapped, and callers decode them defensively — this package only
// moves bytes.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Service is the capability contract consumed by the locator, the remote
// recognizer and the orchestrator's detail extraction.
type Service interface {
	// Query submits a PNG image and a prompt, returning the model's raw
	// text response.
	Query(ctx context.Context, imagePNG []byte, prompt string) (string, error)
}

// Config holds vision client settings.
type Config struct {
	Endpoint    string        // OpenAI-compatible chat-completions URL
	APIKey      string
	Model       string
	MaxTokens   int
	MaxRetries  int
	BackoffBase time.Duration
	Timeout     time.Duration
}

// DefaultConfig returns default vision client settings.
func DefaultConfig() Config {
	return Config{
		Endpoint:    "https://openrouter.ai/api/v1/chat/completions",
		MaxTokens:   2048,
		MaxRetries:  3,
		BackoffBase: time.Second,
		Timeout:     45 * time.Second,
	}
}

// systemPrompt constrains the model to machine-readable output.
const systemPrompt = "You are a UI automation agent. Output strictly in JSON format. No markdown."

// Client is the HTTP implementation of Service.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a vision client. APIKey and Model must be set.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("vision: API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("vision: model is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultConfig().Endpoint
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultConfig().BackoffBase
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Wire types for the chat-completions payload.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string for system, []contentPart for user
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"` // string or number depending on provider
}

// Query implements Service with bounded retries and exponential backoff.
func (c *Client) Query(ctx context.Context, imagePNG []byte, prompt string) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imagePNG)
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				{Type: "text", Text: prompt},
			}},
		},
		Temperature: 0.1,
		MaxTokens:   c.cfg.MaxTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.BackoffBase * time.Duration(1<<(attempt-1))
			slog.Debug("Retrying vision query", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		text, err := c.do(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("vision query failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}

func (c *Client) do(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode vision response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("vision API error: %s (type %s, code %v)",
			decoded.Error.Message, decoded.Error.Type, decoded.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision API returned status %d", resp.StatusCode)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("vision response has no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}
