package analysis

import "strings"

// Provider selects the backend family
type Provider string

const (
	// ProviderStructuredVision is a single schema-constrained multimodal Gemini call
	ProviderStructuredVision Provider = "STRUCTURED_VISION"
	// ProviderOpenAICompatible targets any chat-completions style endpoint
	ProviderOpenAICompatible Provider = "OPENAI_COMPATIBLE"
)

// Providers lists the accepted provider values
var Providers = []Provider{ProviderStructuredVision, ProviderOpenAICompatible}

// ParseProvider accepts the canonical names and a few common spellings
func ParseProvider(s string) (Provider, bool) {
	switch strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(s))) {
	case "", "STRUCTURED_VISION", "GEMINI":
		return ProviderStructuredVision, true
	case "OPENAI_COMPATIBLE", "OPENAI":
		return ProviderOpenAICompatible, true
	}
	return "", false
}

// Config is the per-call input to the Analyzer. It is read-only.
type Config struct {
	// Provider defaults to ProviderStructuredVision when empty
	Provider Provider

	// APIKey overrides the analyzer's default credential
	APIKey string

	// BaseURL is required for ProviderOpenAICompatible. For structured vision
	// it optionally points the client at a proxy.
	BaseURL string

	// ModelName is required for ProviderOpenAICompatible
	ModelName string

	// VisionModelName enables the split OCR-then-reason pipeline
	VisionModelName string

	// VisionAPIKey and VisionBaseURL fall back to APIKey and BaseURL
	VisionAPIKey  string
	VisionBaseURL string
}

// CredentialProvider supplies the process-wide default API key, consulted only
// when a call does not carry its own key.
type CredentialProvider interface {
	DefaultAPIKey() string
}

// StaticCredential is a fixed default key
type StaticCredential string

func (s StaticCredential) DefaultAPIKey() string { return string(s) }

// NoCredential never supplies a default key
var NoCredential CredentialProvider = StaticCredential("")

// settings is Config after fallbacks are resolved
type settings struct {
	apiKey  string
	baseURL string
	model   string

	visionAPIKey  string
	visionBaseURL string
	visionModel   string
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
