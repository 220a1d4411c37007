// Package gemini is the structured vision backend: one multimodal Gemini call
// whose output is constrained by a response schema.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"assetlens/images"
)

const (
	// DefaultModel is the most capable multimodal model
	DefaultModel = "gemini-3-pro-preview"

	// DefaultTemperature keeps extraction close to deterministic
	DefaultTemperature = 0.1

	// DefaultMaxOutputTokens bounds the generated JSON
	DefaultMaxOutputTokens = 16384

	// DefaultTimeout for API requests
	DefaultTimeout = 5 * time.Minute
)

var (
	// ErrEmptyResponse is returned when the model answers without any text
	ErrEmptyResponse = errors.New("gemini returned an empty response")

	// ErrInvalidBaseURL is returned by NewClient for a malformed WithBaseURL value
	ErrInvalidBaseURL = errors.New("invalid base URL")
)

// APIError is a non-2xx answer from the Gemini API
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini API error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini API error %d: %s", e.StatusCode, e.Message)
}

// Client calls generateContent through the genai SDK
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	// optErr is the first invalid option value
	optErr error
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for testing and proxies). An empty value
// keeps the Google endpoint; anything other than an absolute http(s) URL makes
// NewClient fail with ErrInvalidBaseURL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		baseURL = strings.TrimSpace(baseURL)
		if baseURL == "" {
			return
		}
		parsed, err := url.Parse(baseURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			c.optErr = fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
			return
		}
		c.baseURL = strings.TrimSuffix(baseURL, "/") + "/"
	}
}

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

// NewClient creates a new Gemini client. The key is never read from the environment here.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}

	c := &Client{
		apiKey: strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
		if c.optErr != nil {
			return nil, c.optErr
		}
	}

	return c, nil
}

// Request is one structured vision call
type Request struct {
	// Model defaults to DefaultModel
	Model  string
	Images []images.Encoded
	Prompt string

	// Schema constrains the JSON the model may return
	Schema *genai.Schema
}

// Generate sends every image followed by the prompt in a single user turn and
// returns the raw JSON text. Exactly one request is made.
func (c *Client) Generate(ctx context.Context, req *Request) (string, error) {
	if len(req.Images) == 0 {
		return "", fmt.Errorf("at least one image is required")
	}

	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	cfg := &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}

	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
		})
	}
	parts = append(parts, &genai.Part{Text: req.Prompt})

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	genCfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(DefaultTemperature)),
		MaxOutputTokens:  DefaultMaxOutputTokens,
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}

	c.logger.Debug().
		Str("model", model).
		Int("images", len(req.Images)).
		Msg("gemini generateContent")

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, model, contents, genCfg)
	if err != nil {
		return "", wrapError(err)
	}

	text := strings.TrimSpace(resp.Text())
	c.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("chars", len(text)).
		Msg("gemini response")

	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// wrapError converts SDK errors into *APIError so callers don't depend on genai
func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &APIError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}

// GetAPIKeyHelp returns help text for setting up the API key
func GetAPIKeyHelp() string {
	return `Structured vision analysis uses the Google Gemini API.

1. Go to https://aistudio.google.com/apikey
2. Sign in with your Google account
3. Click "Create API key"
4. Set the environment variable:

   export GEMINI_API_KEY="your-api-key"

Or create a .env file with:
   GEMINI_API_KEY=your-api-key`
}
