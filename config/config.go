// Package config loads assetlens settings from defaults, TOML files and
// ASSETLENS_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"assetlens/analysis"
	"assetlens/logging"
)

// Config represents the application configuration.
type Config struct {
	Analysis AnalysisConfig `toml:"analysis"`
	Logging  LoggingConfig  `toml:"logging"`
	History  HistoryConfig  `toml:"history"`
}

// AnalysisConfig selects the backend and its credentials.
type AnalysisConfig struct {
	Provider      string `toml:"provider"`
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	Model         string `toml:"model"`
	VisionModel   string `toml:"vision_model"`
	VisionAPIKey  string `toml:"vision_api_key"`
	VisionBaseURL string `toml:"vision_base_url"`

	// TimeoutSeconds bounds each backend request
	TimeoutSeconds int `toml:"timeout_seconds"`

	// Permissive skips post-parse validation of model output
	Permissive bool `toml:"permissive"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// HistoryConfig contains history store settings.
type HistoryConfig struct {
	Path  string `toml:"path"`
	Limit int    `toml:"limit"`
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Provider:       string(analysis.ProviderStructuredVision),
			TimeoutSeconds: 300,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		History: HistoryConfig{
			Path:  filepath.Join(DefaultDir(), "history.json"),
			Limit: 50,
		},
	}
}

// DefaultDir is the per-user directory holding config and history
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".assetlens"
	}
	return filepath.Join(dir, "assetlens")
}

// DefaultFiles lists the config files read when none are given explicitly.
// Missing files are skipped.
func DefaultFiles() []string {
	var files []string
	for _, path := range []string{filepath.Join(DefaultDir(), "config.toml"), "assetlens.toml"} {
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	return files
}

// LoadFromFiles loads configuration with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if _, ok := analysis.ParseProvider(config.Analysis.Provider); !ok {
		return nil, fmt.Errorf("unknown provider %q (want one of %s, %s)",
			config.Analysis.Provider, analysis.ProviderStructuredVision, analysis.ProviderOpenAICompatible)
	}

	return config, nil
}

// applyEnvOverrides applies ASSETLENS_* environment variable overrides to config.
// ASSETLENS_API_KEY is read by EnvCredential, not here.
func applyEnvOverrides(config *Config) {
	strs := map[string]*string{
		"ASSETLENS_PROVIDER":        &config.Analysis.Provider,
		"ASSETLENS_BASE_URL":        &config.Analysis.BaseURL,
		"ASSETLENS_MODEL":           &config.Analysis.Model,
		"ASSETLENS_VISION_MODEL":    &config.Analysis.VisionModel,
		"ASSETLENS_VISION_API_KEY":  &config.Analysis.VisionAPIKey,
		"ASSETLENS_VISION_BASE_URL": &config.Analysis.VisionBaseURL,
		"ASSETLENS_LOG_LEVEL":       &config.Logging.Level,
		"ASSETLENS_LOG_FORMAT":      &config.Logging.Format,
		"ASSETLENS_LOG_FILE":        &config.Logging.File,
		"ASSETLENS_HISTORY_PATH":    &config.History.Path,
	}
	for name, field := range strs {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*field = v
		}
	}

	if v := os.Getenv("ASSETLENS_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Analysis.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("ASSETLENS_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			config.History.Limit = n
		}
	}
	if v := os.Getenv("ASSETLENS_PERMISSIVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Analysis.Permissive = b
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, provider, model, baseURL string) {
	if provider != "" {
		config.Analysis.Provider = provider
	}
	if model != "" {
		config.Analysis.Model = model
	}
	if baseURL != "" {
		config.Analysis.BaseURL = baseURL
	}
}

// AnalysisSettings converts the settings into a per-call analysis.Config
func (c *Config) AnalysisSettings() analysis.Config {
	provider, _ := analysis.ParseProvider(c.Analysis.Provider)
	return analysis.Config{
		Provider:        provider,
		APIKey:          c.Analysis.APIKey,
		BaseURL:         c.Analysis.BaseURL,
		ModelName:       c.Analysis.Model,
		VisionModelName: c.Analysis.VisionModel,
		VisionAPIKey:    c.Analysis.VisionAPIKey,
		VisionBaseURL:   c.Analysis.VisionBaseURL,
	}
}

// Timeout is the per-request HTTP timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Analysis.TimeoutSeconds) * time.Second
}

// LoggerConfig returns the logging settings in logging's terms
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{Level: c.Logging.Level, Format: c.Logging.Format}
}

// Save writes config as TOML, creating parent directories
func Save(path string, config *Config) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// May contain API keys
	return os.WriteFile(path, data, 0600)
}

// EnvCredential reads the process-wide default API key at call time:
// GEMINI_API_KEY, then GOOGLE_API_KEY, then ASSETLENS_API_KEY.
type EnvCredential struct{}

func (EnvCredential) DefaultAPIKey() string {
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "ASSETLENS_API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}
