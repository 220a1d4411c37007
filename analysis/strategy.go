package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"assetlens/gemini"
	"assetlens/images"
	"assetlens/openaicompat"
	"assetlens/prompt"
)

const (
	// analysisTemperature is used for every call that produces the final JSON
	analysisTemperature = 0.1

	// ocrMaxTokens bounds each per-image transcription
	ocrMaxTokens = 4096
)

// output is the raw text a strategy produced
type output struct {
	text string

	// constrained is true when the backend enforced the response schema
	constrained bool
}

// strategy turns encoded images into analysis text. The set of implementations
// is closed: structuredVision, unifiedChat and splitChat.
type strategy interface {
	name() string

	// calls is the number of backend requests generate will make for n images
	calls(n int) int

	generate(ctx context.Context, imgs []images.Encoded, rep *reporter) (output, error)
}

// selectStrategy resolves credentials and configuration, in order, before any I/O
func selectStrategy(cfg Config, creds CredentialProvider, httpClient *http.Client, logger zerolog.Logger) (strategy, error) {
	key := firstNonEmpty(cfg.APIKey, creds.DefaultAPIKey())
	if key == "" {
		return nil, missingCredential()
	}

	s := settings{
		apiKey:  key,
		baseURL: strings.TrimSpace(cfg.BaseURL),
		model:   strings.TrimSpace(cfg.ModelName),
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderStructuredVision
	}

	switch provider {
	case ProviderStructuredVision:
		opts := []gemini.ClientOption{gemini.WithLogger(logger)}
		if httpClient != nil {
			opts = append(opts, gemini.WithHTTPClient(httpClient))
		}
		if s.baseURL != "" {
			opts = append(opts, gemini.WithBaseURL(s.baseURL))
		}
		client, err := gemini.NewClient(s.apiKey, opts...)
		if errors.Is(err, gemini.ErrInvalidBaseURL) {
			return nil, invalidConfiguration("a valid http(s) base URL")
		}
		if err != nil {
			return nil, missingCredential()
		}
		return &structuredVision{client: client, model: s.model}, nil

	case ProviderOpenAICompatible:
		if s.baseURL == "" {
			return nil, invalidConfiguration("base URL")
		}
		if s.apiKey == "" {
			return nil, invalidConfiguration("API key")
		}
		if s.model == "" {
			return nil, invalidConfiguration("model name")
		}

		text, err := newChatClient(s.baseURL, s.apiKey, httpClient, logger)
		if err != nil {
			return nil, invalidConfiguration("base URL")
		}

		s.visionModel = strings.TrimSpace(cfg.VisionModelName)
		if s.visionModel == "" {
			return &unifiedChat{client: text, model: s.model}, nil
		}

		s.visionAPIKey = firstNonEmpty(cfg.VisionAPIKey, s.apiKey)
		s.visionBaseURL = firstNonEmpty(cfg.VisionBaseURL, s.baseURL)
		vision, err := newChatClient(s.visionBaseURL, s.visionAPIKey, httpClient, logger)
		if err != nil {
			return nil, invalidConfiguration("vision base URL")
		}
		return &splitChat{
			vision:      vision,
			visionModel: s.visionModel,
			text:        text,
			model:       s.model,
		}, nil
	}

	return nil, &Error{
		Kind:    KindInvalidConfiguration,
		Message: fmt.Sprintf("Configuration incomplete: unknown provider %q.", cfg.Provider),
	}
}

func newChatClient(baseURL, apiKey string, httpClient *http.Client, logger zerolog.Logger) (*openaicompat.Client, error) {
	opts := []openaicompat.ClientOption{openaicompat.WithLogger(logger)}
	if httpClient != nil {
		opts = append(opts, openaicompat.WithHTTPClient(httpClient))
	}
	return openaicompat.NewClient(baseURL, apiKey, opts...)
}

// structuredVision makes one schema-constrained Gemini call with every image
type structuredVision struct {
	client *gemini.Client
	model  string
}

func (s *structuredVision) name() string  { return "structured-vision" }
func (s *structuredVision) calls(int) int { return 1 }

func (s *structuredVision) generate(ctx context.Context, imgs []images.Encoded, rep *reporter) (output, error) {
	text, err := s.client.Generate(ctx, &gemini.Request{
		Model:  s.model,
		Images: imgs,
		Prompt: prompt.AnalysisPrompt(),
		Schema: prompt.AnalysisSchema(),
	})
	if err != nil {
		return output{}, err
	}
	rep.callDone("")
	return output{text: text, constrained: true}, nil
}

// unifiedChat sends the instructions and every image in a single chat message
type unifiedChat struct {
	client *openaicompat.Client
	model  string
}

func (u *unifiedChat) name() string  { return "openai-unified" }
func (u *unifiedChat) calls(int) int { return 1 }

func (u *unifiedChat) generate(ctx context.Context, imgs []images.Encoded, rep *reporter) (output, error) {
	parts := make([]openaicompat.ContentPart, 0, len(imgs)+1)
	parts = append(parts, openaicompat.TextPart(prompt.AnalysisPromptWithSchema()))
	for _, img := range imgs {
		parts = append(parts, openaicompat.ImagePart(img.DataURI()))
	}

	completion, err := u.client.Complete(ctx, &openaicompat.ChatRequest{
		Model:          u.model,
		Messages:       []openaicompat.Message{{Role: openaicompat.RoleUser, Content: parts}},
		Temperature:    analysisTemperature,
		ResponseFormat: openaicompat.JSONObject,
	})
	if err != nil {
		return output{}, err
	}
	rep.callDone("")
	return output{text: completion.Content}, nil
}

// splitChat transcribes each image with the vision model in parallel, then
// reasons over the combined transcript with the text model.
type splitChat struct {
	vision      *openaicompat.Client
	visionModel string

	text  *openaicompat.Client
	model string
}

func (s *splitChat) name() string    { return "openai-split" }
func (s *splitChat) calls(n int) int { return n + 1 }

func (s *splitChat) generate(ctx context.Context, imgs []images.Encoded, rep *reporter) (output, error) {
	transcripts := make([]string, len(imgs))

	g, gctx := errgroup.WithContext(ctx)
	for i, img := range imgs {
		g.Go(func() error {
			text, err := s.ocr(gctx, img)
			if err != nil {
				return &OCRError{Index: i, Name: img.Name, Err: err}
			}
			transcripts[i] = text
			rep.callDone(img.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return output{}, err
	}

	completion, err := s.text.Complete(ctx, &openaicompat.ChatRequest{
		Model: s.model,
		Messages: []openaicompat.Message{
			{Role: openaicompat.RoleSystem, Content: prompt.AnalysisPromptWithSchema()},
			{Role: openaicompat.RoleUser, Content: joinTranscripts(imgs, transcripts)},
		},
		Temperature:    analysisTemperature,
		ResponseFormat: openaicompat.JSONObject,
	})
	if err != nil {
		return output{}, err
	}
	rep.callDone("")
	return output{text: completion.Content}, nil
}

func (s *splitChat) ocr(ctx context.Context, img images.Encoded) (string, error) {
	completion, err := s.vision.Complete(ctx, &openaicompat.ChatRequest{
		Model: s.visionModel,
		Messages: []openaicompat.Message{{
			Role: openaicompat.RoleUser,
			Content: []openaicompat.ContentPart{
				openaicompat.TextPart(prompt.OCRPrompt()),
				openaicompat.ImagePart(img.DataURI()),
			},
		}},
		MaxTokens: ocrMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return completion.Content, nil
}

// joinTranscripts concatenates OCR output in image order under per-image headers
func joinTranscripts(imgs []images.Encoded, transcripts []string) string {
	var sb strings.Builder
	for i, text := range transcripts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("=== Image %d: %s ===\n", i+1, imgs[i].Name))
		sb.WriteString(strings.TrimSpace(text))
	}
	return sb.String()
}
