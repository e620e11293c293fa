package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4"
	DefaultMaxTokens = 300
	DefaultTimeout   = 120 * time.Second
)

// ErrEmptyCompletion indicates a response without choices.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Config holds configuration for the OpenAI client.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	// RPS caps outgoing requests per second; 0 disables the limit.
	RPS float64
}

// OpenAI calls the /chat/completions endpoint.
type OpenAI struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	limiter   *rate.Limiter
}

var _ Completer = (*OpenAI)(nil)

type chatCompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAI creates a client; an API key is required.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &OpenAI{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
	if cfg.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return c, nil
}

// Complete sends the messages and returns the first choice's content.
func (c *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	body := chatCompletionRequest{Model: req.Model, Messages: req.Messages, MaxTokens: req.MaxTokens}
	if body.Model == "" {
		body.Model = c.model
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = c.maxTokens
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var out chatCompletionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("llm error: %s", out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm error (status %d): %s", resp.StatusCode, string(data))
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}
