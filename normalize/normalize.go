// Package normalize recovers a JSON object from raw model output that may be
// wrapped in markdown fences or surrounded by prose.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformed matches every failure to recover a JSON object
var ErrMalformed = errors.New("malformed model output")

// Error carries the raw text that could not be parsed
type Error struct {
	Raw string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %v", ErrMalformed, e.Err)
}

func (e *Error) Unwrap() []error { return []error{ErrMalformed, e.Err} }

// openingFence matches a fence marker with an optional language tag up to the end of its line
var openingFence = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \\t]*\\r?\\n?")

const fence = "```"

// Extract returns the span from the first '{' to the last '}' of the output.
// A fenced block is unwrapped only when its opening marker comes before the
// first '{', so backticks inside string values are left alone.
func Extract(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", &Error{Raw: raw, Err: errors.New("empty output")}
	}

	open := strings.Index(text, fence)
	if brace := strings.Index(text, "{"); open >= 0 && (brace < 0 || open < brace) {
		text = unfence(text[open:])
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", &Error{Raw: raw, Err: errors.New("no JSON object found")}
	}

	return text[start : end+1], nil
}

// unfence drops the opening marker line and everything from the closing
// marker on. The closing marker is the last fence that directly follows a '}';
// an unterminated block keeps its whole body.
func unfence(block string) string {
	body := openingFence.ReplaceAllString(block, "")

	for idx := strings.LastIndex(body, fence); idx >= 0; idx = strings.LastIndex(body[:idx], fence) {
		if strings.HasSuffix(strings.TrimSpace(body[:idx]), "}") {
			return body[:idx]
		}
	}
	return body
}

// Parse extracts the JSON object from raw model output and decodes it into v
func Parse(raw string, v any) error {
	span, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return &Error{Raw: raw, Err: err}
	}
	return nil
}

// Decode parses text that is expected to be bare JSON, as returned by
// schema-constrained generation. No cleanup is applied.
func Decode(text string, v any) error {
	if strings.TrimSpace(text) == "" {
		return &Error{Raw: text, Err: errors.New("empty output")}
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return &Error{Raw: text, Err: err}
	}
	return nil
}
