package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChatCompletionsURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"  https://api.deepseek.com//  ", "https://api.deepseek.com/chat/completions"},
		{"https://gw.example.com/v1/chat/completions", "https://gw.example.com/v1/chat/completions"},
		{"https://gw.example.com/v1/chat/completions/", "https://gw.example.com/v1/chat/completions"},
		{"http://localhost:1234/v1", "http://localhost:1234/v1/chat/completions"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ChatCompletionsURL(tt.in); got != tt.want {
				t.Errorf("ChatCompletionsURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient("", "key"); err == nil {
		t.Error("NewClient() should require a base URL")
	}
	if _, err := NewClient("https://api.example.com", " "); err == nil {
		t.Error("NewClient() should require an API key")
	}
	c, err := NewClient("https://api.example.com/v1/", "key")
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	if c.Endpoint() != "https://api.example.com/v1/chat/completions" {
		t.Errorf("Endpoint() = %q", c.Endpoint())
	}
}

func TestComplete(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["model"] != "gpt-test" {
			t.Errorf("model = %v", req["model"])
		}
		if rf, ok := req["response_format"].(map[string]any); !ok || rf["type"] != "json_object" {
			t.Errorf("response_format = %v", req["response_format"])
		}
		msgs := req["messages"].([]any)
		parts := msgs[0].(map[string]any)["content"].([]any)
		img := parts[1].(map[string]any)
		if img["type"] != "image_url" || !strings.HasPrefix(img["image_url"].(map[string]any)["url"].(string), "data:image/png;base64,") {
			t.Errorf("image part = %v", img)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","model":"gpt-test","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}],"usage":{"total_tokens":42}}`)
	}))
	defer server.Close()

	c, _ := NewClient(server.URL+"/v1", "sk-test")
	got, err := c.Complete(context.Background(), &ChatRequest{
		Model: "gpt-test",
		Messages: []Message{{
			Role:    RoleUser,
			Content: []ContentPart{TextPart("describe"), ImagePart("data:image/png;base64,AAAA")},
		}},
		Temperature:    0.1,
		ResponseFormat: JSONObject,
	})
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if got.Content != `{"ok":true}` || got.Usage.TotalTokens != 42 {
		t.Errorf("Complete() = %+v", got)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1", calls)
	}
}

func TestComplete_APIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"openai error body", 401, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`, "Incorrect API key provided"},
		{"plain body", 502, "bad gateway", "bad gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c, _ := NewClient(server.URL, "key")
			_, err := c.Complete(context.Background(), &ChatRequest{Model: "m"})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Complete() error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if !strings.Contains(apiErr.Error(), tt.wantMsg) {
				t.Errorf("Error() = %q, want it to contain %q", apiErr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestComplete_Empty(t *testing.T) {
	for _, body := range []string{
		`{"choices":[]}`,
		`{"choices":[{"message":{"role":"assistant","content":"   "}}]}`,
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, body)
		}))

		c, _ := NewClient(server.URL, "key")
		_, err := c.Complete(context.Background(), &ChatRequest{Model: "m"})
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("Complete(%s) error = %v, want ErrEmptyResponse", body, err)
		}
		server.Close()
	}
}

func TestChatRequest_TemperatureAlwaysSent(t *testing.T) {
	data, _ := json.Marshal(&ChatRequest{Model: "m"})
	if !strings.Contains(string(data), `"temperature":0`) {
		t.Errorf("marshaled request = %s", data)
	}
	if strings.Contains(string(data), "response_format") || strings.Contains(string(data), "max_tokens") {
		t.Errorf("optional fields should be omitted: %s", data)
	}
}
