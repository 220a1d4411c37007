package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"assetlens/analysis"
	"assetlens/asset"
	"assetlens/history"
)

const resultJSON = `{
  "totalNetWorthCNY": 7200,
  "summary": "One position.",
  "distributionAnalysis": "All stock.",
  "investmentAdvice": "Diversify.",
  "riskMetrics": {"stockConcentration": 1, "entityConcentration": 1, "cashRatio": 0, "riskAlerts": []},
  "breakdown": [
    {"name": "AAPL", "entity": "Broker B", "originalAmount": 1000, "currency": "USD", "convertedAmountCNY": 7200, "type": "STOCK", "macroCategory": "RISK"}
  ]
}`

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"-provider", "openai", "-model", "gpt-4o", "-json", "a.png", "shots/"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs() error = %v", err)
	}
	if opts.provider != string(analysis.ProviderOpenAICompatible) {
		t.Errorf("provider = %q", opts.provider)
	}
	if opts.model != "gpt-4o" || !opts.jsonOut {
		t.Errorf("opts = %+v", opts)
	}
	if len(opts.sources) != 2 || opts.sources[1] != "shots/" {
		t.Errorf("sources = %v", opts.sources)
	}
}

func TestParseArgs_Errors(t *testing.T) {
	if _, err := parseArgs([]string{"-provider", "claude"}, io.Discard); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := parseArgs([]string{"-nope"}, io.Discard); err == nil {
		t.Error("expected error for unknown flag")
	}
	if _, err := parseArgs([]string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("-h error = %v", err)
	}
}

func TestSplitSources(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got := splitSources("  a.png  ~/shots/*.png\tb.jpg ")
	want := []string{"a.png", filepath.Join(home, "shots/*.png"), "b.jpg"}
	if len(got) != len(want) {
		t.Fatalf("splitSources() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitSources()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var sb strings.Builder
	r := &asset.AnalysisResult{ID: "abc", Summary: "ok"}
	if err := writeJSON(&sb, r); err != nil {
		t.Fatalf("writeJSON() error = %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal([]byte(sb.String()), &back); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if back["id"] != "abc" || back["summary"] != "ok" {
		t.Errorf("decoded = %v", back)
	}
}

// setupRun points config, history and credentials at temp locations
func setupRun(t *testing.T, configBody string) (configPath, historyPath string) {
	t.Helper()
	dir := t.TempDir()
	historyPath = filepath.Join(dir, "history.json")
	configPath = filepath.Join(dir, "assetlens.toml")

	body := configBody + "\n[history]\npath = " + strconv.Quote(historyPath) + "\nlimit = 10\n\n[logging]\nlevel = \"off\"\n"
	if err := os.WriteFile(configPath, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "ASSETLENS_API_KEY", "ASSETLENS_PROVIDER", "ASSETLENS_HISTORY_PATH"} {
		t.Setenv(name, "")
	}
	return configPath, historyPath
}

func TestRun_AnalyzeSavesHistoryAndCSV(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		resp := map[string]any{
			"model": "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": resultJSON},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	configPath, historyPath := setupRun(t, "[analysis]\nprovider = \"OPENAI_COMPATIBLE\"\napi_key = \"k\"\nmodel = \"test-model\"\nbase_url = "+strconv.Quote(srv.URL+"/v1")+"\n")

	shot := filepath.Join(t.TempDir(), "broker.png")
	if err := os.WriteFile(shot, []byte("fake png"), 0644); err != nil {
		t.Fatal(err)
	}
	csvPath := filepath.Join(t.TempDir(), "out.csv")

	opts := &options{configFile: configPath, jsonOut: true, csvFile: csvPath, sources: []string{shot}}
	if err := run(context.Background(), opts); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}

	saved, err := history.Open(historyPath, 10).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 || saved[0].ID == "" || len(saved[0].Breakdown) != 1 {
		t.Fatalf("history = %+v", saved)
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "AAPL") {
		t.Errorf("csv = %q", data)
	}
}

func TestRun_ClassifiesFailures(t *testing.T) {
	configPath, _ := setupRun(t, "[analysis]\nprovider = \"STRUCTURED_VISION\"\n")

	shot := filepath.Join(t.TempDir(), "a.png")
	if err := os.WriteFile(shot, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	err := run(context.Background(), &options{configFile: configPath, jsonOut: true, noSave: true, sources: []string{shot}})
	if !errors.Is(err, analysis.ErrMissingCredential) {
		t.Errorf("run() error = %v, want missing credential", err)
	}
}

func TestRun_NoSourcesNonInteractive(t *testing.T) {
	configPath, _ := setupRun(t, "")
	t.Setenv("GEMINI_API_KEY", "k")

	err := run(context.Background(), &options{configFile: configPath, jsonOut: true})
	if err == nil || !strings.Contains(err.Error(), "no screenshots") {
		t.Errorf("run() error = %v", err)
	}
}

func TestRun_HistoryCommands(t *testing.T) {
	configPath, historyPath := setupRun(t, "")

	store := history.Open(historyPath, 10)
	for _, id := range []string{"aaaa-1", "bbbb-2"} {
		if err := store.Append(&asset.AnalysisResult{ID: id}); err != nil {
			t.Fatal(err)
		}
	}

	if err := run(context.Background(), &options{configFile: configPath, listHistory: true}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := run(context.Background(), &options{configFile: configPath, showID: "bbbb", jsonOut: true}); err != nil {
		t.Fatalf("show: %v", err)
	}
	if err := run(context.Background(), &options{configFile: configPath, deleteID: "aaaa"}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	left, _ := store.Load()
	if len(left) != 1 || left[0].ID != "bbbb-2" {
		t.Errorf("after delete = %+v", left)
	}

	if err := run(context.Background(), &options{configFile: configPath, clearHistory: true}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if left, _ := store.Load(); len(left) != 0 {
		t.Errorf("after clear = %+v", left)
	}

	if err := run(context.Background(), &options{configFile: configPath, showID: "zzzz"}); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("show missing = %v", err)
	}
}

func TestIsTerminal_RegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if isTerminal(f) {
		t.Error("a regular file is not a terminal")
	}
}

func TestTerminalWidth_Columns(t *testing.T) {
	if isTerminal(os.Stdout) {
		t.Skip("stdout is a terminal, width comes from the tty")
	}

	t.Setenv("COLUMNS", "132")
	if got := terminalWidth(); got != 132 {
		t.Errorf("terminalWidth() = %d, want 132", got)
	}

	t.Setenv("COLUMNS", "wide")
	if got := terminalWidth(); got != 100 {
		t.Errorf("terminalWidth() = %d, want fallback 100", got)
	}
}
