package analysis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"assetlens/asset"
	"assetlens/gemini"
	"assetlens/images"
	"assetlens/normalize"
	"assetlens/openaicompat"
)

// Kind is the category of a failed analysis
type Kind string

const (
	KindMissingCredential    Kind = "MISSING_CREDENTIAL"
	KindInvalidConfiguration Kind = "INVALID_CONFIGURATION"
	KindProviderHTTP         Kind = "PROVIDER_HTTP_ERROR"
	KindNetwork              Kind = "NETWORK_ERROR"
	KindEmptyResponse        Kind = "EMPTY_RESPONSE"
	KindMalformedOutput      Kind = "MALFORMED_OUTPUT"
	KindReadError            Kind = "READ_ERROR"
	KindUnknown              Kind = "UNKNOWN"
)

// Reason refines KindProviderHTTP
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonAuth      Reason = "AUTH"
	ReasonQuota     Reason = "QUOTA"
	ReasonNotFound  Reason = "NOT_FOUND"
	ReasonRateLimit Reason = "RATE_LIMIT"
	ReasonOther     Reason = "OTHER"
)

// Error is the single user-facing error returned by Analyze
type Error struct {
	Kind   Kind
	Reason Reason

	// StatusCode is the HTTP status for KindProviderHTTP
	StatusCode int

	// Image identifies the offending image, when known
	Image string

	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind (and Reason when the target sets one)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == ReasonNone || t.Reason == e.Reason)
}

// Sentinels for errors.Is
var (
	ErrMissingCredential    = &Error{Kind: KindMissingCredential}
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
	ErrProviderHTTP         = &Error{Kind: KindProviderHTTP}
	ErrNetwork              = &Error{Kind: KindNetwork}
	ErrEmptyResponse        = &Error{Kind: KindEmptyResponse}
	ErrMalformedOutput      = &Error{Kind: KindMalformedOutput}
	ErrReadError            = &Error{Kind: KindReadError}
)

// OCRError wraps a split-mode OCR failure with the image it was for
type OCRError struct {
	// Index is zero-based, in caller order
	Index int
	Name  string
	Err   error
}

func (e *OCRError) Error() string {
	return fmt.Sprintf("OCR failed for image %d (%s): %v", e.Index+1, e.Name, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

func (e *OCRError) label() string {
	return fmt.Sprintf("image %d (%s)", e.Index+1, e.Name)
}

func missingCredential() *Error {
	return &Error{
		Kind:    KindMissingCredential,
		Message: "No API key configured. Set GEMINI_API_KEY (or ASSETLENS_API_KEY) or pass a key in the settings.",
	}
}

func invalidConfiguration(field string) *Error {
	return &Error{
		Kind:    KindInvalidConfiguration,
		Message: fmt.Sprintf("Configuration incomplete: %s is required for the selected provider.", field),
	}
}

// Classify maps any failure to an *Error. It matches typed errors first and
// falls back to the error text.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		inner := Classify(ocrErr.Err)
		return &Error{
			Kind:       inner.Kind,
			Reason:     inner.Reason,
			StatusCode: inner.StatusCode,
			Image:      ocrErr.label(),
			Message:    fmt.Sprintf("%s (while reading %s)", inner.Message, ocrErr.label()),
			Err:        err,
		}
	}

	var readErr *images.ReadError
	if errors.As(err, &readErr) {
		return &Error{
			Kind:    KindReadError,
			Image:   readErr.Name,
			Message: fmt.Sprintf("Image %q could not be processed: %v", readErr.Name, readErr.Err),
			Err:     err,
		}
	}

	var validationErr *asset.ValidationError
	if errors.As(err, &validationErr) {
		return &Error{
			Kind:    KindMalformedOutput,
			Message: "The model output failed validation: " + strings.Join(validationErr.Problems, "; "),
			Err:     err,
		}
	}

	if errors.Is(err, normalize.ErrMalformed) {
		return &Error{
			Kind:    KindMalformedOutput,
			Message: "The model output could not be parsed. Try again or use a stronger model.",
			Err:     err,
		}
	}

	if errors.Is(err, gemini.ErrEmptyResponse) || errors.Is(err, openaicompat.ErrEmptyResponse) {
		return &Error{
			Kind:    KindEmptyResponse,
			Message: "The model returned no data.",
			Err:     err,
		}
	}

	var gErr *gemini.APIError
	if errors.As(err, &gErr) {
		return httpError(gErr.StatusCode, gErr.Message+" "+gErr.Status, err)
	}
	var oErr *openaicompat.APIError
	if errors.As(err, &oErr) {
		return httpError(oErr.StatusCode, oErr.Message+" "+oErr.Body, err)
	}

	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUnknown, Message: "Analysis was cancelled.", Err: err}
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return networkError(err)
	}

	return classifyText(err)
}

func httpError(status int, text string, err error) *Error {
	return providerError(status, reasonFor(status, strings.ToLower(text)), err)
}

func providerError(status int, reason Reason, err error) *Error {
	var msg string
	switch reason {
	case ReasonAuth:
		msg = "Authentication failed: the API key is invalid."
	case ReasonQuota:
		msg = "Permission denied or quota exhausted for this API key."
	case ReasonNotFound:
		msg = "Endpoint or model not found. Check the base URL and model name."
	case ReasonRateLimit:
		msg = "Rate limited by the provider. Please retry later."
	default:
		msg = "API call error: " + rawMessage(err)
	}

	return &Error{Kind: KindProviderHTTP, Reason: reason, StatusCode: status, Message: msg, Err: err}
}

func reasonFor(status int, lower string) Reason {
	switch status {
	case 401:
		return ReasonAuth
	case 403:
		return ReasonQuota
	case 404:
		return ReasonNotFound
	case 429:
		return ReasonRateLimit
	}
	switch {
	case strings.Contains(lower, "api key not valid"), strings.Contains(lower, "invalid api key"):
		return ReasonAuth
	case strings.Contains(lower, "quota"), strings.Contains(lower, "permission"):
		return ReasonQuota
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "resource_exhausted"):
		return ReasonRateLimit
	}
	return ReasonOther
}

func networkError(err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: "Network error: could not reach the provider. Check your connection or proxy settings.",
		Err:     err,
	}
}

// classifyText is the best-effort fallback for errors with no recognizable type
func classifyText(err error) *Error {
	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "api key not valid"), strings.Contains(lower, "401"):
		return providerError(0, ReasonAuth, err)
	case strings.Contains(lower, "403"), strings.Contains(lower, "quota"):
		return providerError(0, ReasonQuota, err)
	case strings.Contains(lower, "404"):
		return providerError(0, ReasonNotFound, err)
	case strings.Contains(lower, "429"), strings.Contains(lower, "rate limit"):
		return providerError(0, ReasonRateLimit, err)
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "network is unreachable"),
		strings.Contains(lower, "failed to fetch"):
		return networkError(err)
	}

	return &Error{
		Kind:    KindUnknown,
		Message: "Analysis failed, please retry: " + rawMessage(err),
		Err:     err,
	}
}

func rawMessage(err error) string {
	var gErr *gemini.APIError
	if errors.As(err, &gErr) && gErr.Message != "" {
		return gErr.Message
	}
	var oErr *openaicompat.APIError
	if errors.As(err, &oErr) {
		if oErr.Message != "" {
			return oErr.Message
		}
		if oErr.Body != "" {
			return oErr.Body
		}
	}
	return err.Error()
}
