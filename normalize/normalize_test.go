package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"assetlens/asset"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"whitespace", "\n\n  {\"a\":1}  \n", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fence with prose", "Here is the result:\n```json\n{\"a\":1}\n```\nLet me know!", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"leading prose", "Sure! {\"a\":{\"b\":2}} hope this helps", `{"a":{"b":2}}`},
		{"crlf fence", "```json\r\n{\"a\":1}\r\n```", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.raw)
			if err != nil {
				t.Fatalf("Extract() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_Errors(t *testing.T) {
	for _, raw := range []string{"", "   ", "I could not read the screenshot.", "} backwards {"} {
		_, err := Extract(raw)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Extract(%q) error = %v, want ErrMalformed", raw, err)
		}
		var nErr *Error
		if errors.As(err, &nErr) && nErr.Raw != raw {
			t.Errorf("Error.Raw = %q, want %q", nErr.Raw, raw)
		}
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	var v map[string]any
	err := Parse("```json\n{\"a\": }\n```", &v)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Parse() error = %v, want ErrMalformed", err)
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Errorf("Parse() should keep the decoder error, got %v", err)
	}
}

func roundTripResult(summary string) asset.AnalysisResult {
	return asset.AnalysisResult{
		TotalNetWorthCNY: decimal.RequireFromString("17200"),
		Summary:          summary,
		RiskMetrics: asset.RiskMetrics{
			CashRatio:  0.58,
			RiskAlerts: []string{"High cash ratio"},
		},
		Breakdown: []asset.AssetItem{
			{
				Name:               "Checking",
				Entity:             "Bank A",
				OriginalAmount:     decimal.RequireFromString("10000"),
				Currency:           "CNY",
				ConvertedAmountCNY: decimal.RequireFromString("10000"),
				Type:               asset.TypeCash,
				MacroCategory:      asset.MacroLiquidity,
			},
		},
	}
}

// Wrapping a serialized result in fences or prose must not change what decodes.
func TestParse_RoundTrip(t *testing.T) {
	summaries := []string{
		"Mostly cash",
		"Run ```pip install x``` first",
		"Buckets {cash} and {stock} look {balanced}",
		"Ends with a fence ```",
	}
	wraps := []struct {
		name string
		wrap func(string) string
	}{
		{"bare", func(s string) string { return s }},
		{"json fence", func(s string) string { return "```json\n" + s + "\n```" }},
		{"untagged fence", func(s string) string { return "```\n" + s + "\n```" }},
		{"prose around fence", func(s string) string { return "Here you go:\n```json\n" + s + "\n```\nThanks!" }},
		{"trailing prose with braces", func(s string) string { return "```json\n" + s + "\n```\nNote: {not json}" }},
		{"prose without fence", func(s string) string { return "Result: " + s + " done." }},
	}

	for _, summary := range summaries {
		want := roundTripResult(summary)
		data, err := json.Marshal(want)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}

		for _, w := range wraps {
			t.Run(w.name+"/"+summary, func(t *testing.T) {
				var got asset.AnalysisResult
				if err := Parse(w.wrap(string(data)), &got); err != nil {
					t.Fatalf("Parse() failed: %v", err)
				}
				gotData, _ := json.Marshal(got)
				if string(gotData) != string(data) {
					t.Errorf("Parse() round trip mismatch:\n got  %s\n want %s", gotData, data)
				}
			})
		}
	}
}

func TestDecode(t *testing.T) {
	var v map[string]int
	if err := Decode(`{"a":1}`, &v); err != nil || v["a"] != 1 {
		t.Fatalf("Decode() = %v, %v", v, err)
	}

	if err := Decode("```json\n{\"a\":1}\n```", &v); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode() should not strip fences, got %v", err)
	}
	if err := Decode("", &v); !errors.Is(err, ErrMalformed) {
		t.Errorf("Decode(\"\") error = %v, want ErrMalformed", err)
	}
}
