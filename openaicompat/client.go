// Package openaicompat is a minimal client for OpenAI-compatible chat completion
// endpoints (OpenAI, DeepSeek, Qwen, LM Studio, Ollama and similar gateways).
package openaicompat

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

	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout for API requests
	DefaultTimeout = 5 * time.Minute

	// maxResponseBytes caps how much of a response body is read
	maxResponseBytes = 32 << 20

	// maxErrorBody caps the raw body kept on APIError
	maxErrorBody = 2048

	completionsPath = "/chat/completions"
)

// ErrEmptyResponse is returned when the first choice has no content
var ErrEmptyResponse = errors.New("completion returned no content")

// ChatCompletionsURL derives the request URL from a configured base URL:
// surrounding whitespace and trailing slashes are removed and /chat/completions
// is appended unless the URL already ends with it.
func ChatCompletionsURL(baseURL string) string {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if strings.HasSuffix(u, completionsPath) {
		return u
	}
	return u + completionsPath
}

// Client sends chat completion requests. Each Complete call makes exactly one
// HTTP request; nothing is retried.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the endpoint under baseURL
func NewClient(baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}

	c := &Client{
		endpoint: ChatCompletionsURL(baseURL),
		apiKey:   strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Endpoint returns the resolved chat completions URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Complete posts req and returns the first choice's content
func (c *Client) Complete(ctx context.Context, req *ChatRequest) (*Completion, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Don't log the body, it carries base64 images
	c.logger.Debug().
		Str("endpoint", c.endpoint).
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Int("bytes", len(body)).
		Msg("chat completion request")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("chat completion response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	var result ChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Error != nil && result.Error.Message != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: result.Error.Message}
	}

	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	choice := result.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	return &Completion{
		Content:      choice.Message.Content,
		Model:        result.Model,
		FinishReason: choice.FinishReason,
		Usage:        result.Usage,
	}, nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var parsed struct {
		Error *ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		apiErr.Message = parsed.Error.Message
	}

	raw := strings.TrimSpace(string(body))
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody] + "..."
	}
	apiErr.Body = raw
	return apiErr
}
