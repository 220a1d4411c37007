package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"assetlens/analysis"
	"assetlens/asset"
)

func sampleResult() *asset.AnalysisResult {
	return &asset.AnalysisResult{
		ID:               "0f8fad5b-d9cb-469f-a165-70867728950e",
		Timestamp:        1700000000000,
		TotalNetWorthCNY: decimal.RequireFromString("17200"),
		Summary:          "Mostly cash.",
		InvestmentAdvice: "Diversify.",
		RiskMetrics: asset.RiskMetrics{
			StockConcentration:  1,
			EntityConcentration: 0.58,
			CashRatio:           0.58,
			RiskAlerts:          []string{"Single broker holds most assets"},
		},
		Breakdown: []asset.AssetItem{
			{
				Name:               "Savings",
				Entity:             "ICBC",
				OriginalAmount:     decimal.RequireFromString("10000"),
				Currency:           "CNY",
				ConvertedAmountCNY: decimal.RequireFromString("10000"),
				Type:               asset.TypeCash,
				MacroCategory:      asset.MacroLiquidity,
			},
			{
				Name:               "AAPL",
				Entity:             "Futu",
				OriginalAmount:     decimal.RequireFromString("1000"),
				Currency:           "USD",
				ConvertedAmountCNY: decimal.RequireFromString("7200"),
				Type:               asset.TypeStock,
				MacroCategory:      asset.MacroRisk,
			},
		},
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"999.5", "999.50"},
		{"1000", "1,000.00"},
		{"1234567.891", "1,234,567.89"},
		{"-17200", "-17,200.00"},
	}

	for _, tt := range tests {
		if got := formatAmount(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("formatAmount(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := FormatCNY(decimal.NewFromInt(5)); got != "¥5.00" {
		t.Errorf("FormatCNY() = %q", got)
	}
}

func TestRenderDashboard(t *testing.T) {
	out := RenderDashboard(sampleResult(), 120)

	for _, want := range []string{
		"¥17,200.00",
		"Savings",
		"AAPL",
		"1,000.00 USD",
		"7,200.00",
		"LIQUIDITY",
		"ICBC",
		"Single broker holds most assets",
		"Mostly cash.",
		"Diversify.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	if got := RenderDashboard(nil, 80); !strings.Contains(got, "No result") {
		t.Errorf("RenderDashboard(nil) = %q", got)
	}
}

func TestRenderDistribution_Empty(t *testing.T) {
	out := RenderDistribution("By asset type", nil, nil)
	if !strings.Contains(out, "(none)") {
		t.Errorf("RenderDistribution() = %q", out)
	}
}

func TestProgressBar_Clamps(t *testing.T) {
	if got := ProgressBar(1.5, 10, ColorPrimary); !strings.Contains(got, "100.0%") {
		t.Errorf("ProgressBar(1.5) = %q", got)
	}
	if got := ProgressBar(-1, 10, ColorPrimary); !strings.Contains(got, "0.0%") {
		t.Errorf("ProgressBar(-1) = %q", got)
	}
}

func TestRenderHistory(t *testing.T) {
	if got := RenderHistory(nil); !strings.Contains(got, "No saved analyses") {
		t.Errorf("RenderHistory(nil) = %q", got)
	}

	out := RenderHistory([]asset.AnalysisResult{*sampleResult()})
	if !strings.Contains(out, "0f8fad5b") || strings.Contains(out, "0f8fad5b-d9cb") {
		t.Errorf("history should show the short ID: %q", out)
	}
	if !strings.Contains(out, "17,200.00") {
		t.Errorf("history missing total: %q", out)
	}
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&analysis.Error{Kind: analysis.KindMissingCredential, Message: "no key"}, "Missing API key"},
		{&analysis.Error{Kind: analysis.KindProviderHTTP, StatusCode: 429, Message: "slow down"}, "HTTP 429"},
		{errors.New("plain"), "Analysis failed"},
	}

	for _, tt := range tests {
		out := RenderError(tt.err, 100)
		if !strings.Contains(out, tt.want) {
			t.Errorf("RenderError(%v) missing %q: %q", tt.err, tt.want, out)
		}
	}
}

func TestProgressModel_Updates(t *testing.T) {
	m := NewProgressModel("OPENAI_COMPATIBLE", []string{"a.png", "b.png"}, nil)

	next, _ := m.Update(progressMsg{Stage: analysis.StageCalling, Strategy: "openai-split", Completed: 1, Total: 3, Image: "a.png"})
	m = next.(ProgressModel)

	if m.stage != analysis.StageCalling || m.completed != 1 || m.total != 3 {
		t.Errorf("state = %s %d/%d", m.stage, m.completed, m.total)
	}
	if len(m.recent) != 1 || m.recent[0] != "a.png" {
		t.Errorf("recent = %v", m.recent)
	}
	view := m.View()
	if !strings.Contains(view, "(1/3 calls)") || !strings.Contains(view, "openai-split") {
		t.Errorf("View() = %q", view)
	}

	want := sampleResult()
	next, cmd := m.Update(resultMsg{result: want})
	m = next.(ProgressModel)
	if cmd == nil {
		t.Fatal("result should quit the program")
	}
	got, err := m.Result()
	if err != nil || got != want {
		t.Errorf("Result() = %v, %v", got, err)
	}
	if m.View() != "" {
		t.Error("View() should be empty once done")
	}
}

func TestProgressModel_Cancel(t *testing.T) {
	cancelled := false
	m := NewProgressModel("STRUCTURED_VISION", []string{"a.png"}, func() { cancelled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(ProgressModel)

	if !cancelled || cmd == nil {
		t.Errorf("cancelled = %v, cmd = %v", cancelled, cmd)
	}
	if _, err := m.Result(); err == nil {
		t.Error("Result() should report cancellation")
	}
}
