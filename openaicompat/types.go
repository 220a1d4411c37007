package openaicompat

import "fmt"

// Message roles
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat message. Content is either a string or []ContentPart.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is a text or image segment of a multimodal message
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an image as a data URI
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// TextPart builds a text content part
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image content part from a data URI
func ImagePart(dataURI string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: dataURI}}
}

// ResponseFormat asks the server for a JSON object answer
type ResponseFormat struct {
	Type string `json:"type"`
}

// JSONObject is the response format used for analysis calls
var JSONObject = &ResponseFormat{Type: "json_object"}

// ChatRequest is the body of POST {base}/chat/completions
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatResponse is the subset of the completion response we read
type ChatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
	Error   *ErrorBody   `json:"error,omitempty"`
}

// ChatChoice is one completion choice
type ChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// Usage contains token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorBody is the error object OpenAI-style servers return
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}

// Completion is the text of the first choice
type Completion struct {
	Content      string
	Model        string
	FinishReason string
	Usage        *Usage
}

// APIError is a non-2xx answer from the endpoint
type APIError struct {
	StatusCode int
	Message    string

	// Body is the raw response body, truncated
	Body string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, msg)
}
