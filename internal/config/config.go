// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names for the classification backend.
const (
	ProviderServing = "serving"
	ProviderGemini  = "gemini"
)

// Config holds the runtime configuration for a copilot run.
type Config struct {
	// Workspace connection.
	Host  string // workspace base URL (e.g. https://example.cloud.databricks.com)
	Token string // bearer token for the workspace REST API

	// Classification backend.
	Provider     string // "serving" (default) or "gemini"
	Model        string // model identifier for the completion service
	GeminiAPIKey string // required when Provider is "gemini"

	// Classification fan-out and retry.
	ClassifyConcurrency int           // bounded parallel classification requests (default 4)
	ClassifyRPS         float64       // sustained classification requests per second (default 2)
	RetryMaxAttempts    int           // attempts per classification call (default 3)
	RetryBaseDelay      time.Duration // backoff base delay (default 1s)

	HTTPTimeout time.Duration // per-call timeout for workspace REST calls (default 30s)
	LogLevel    string        // log level: debug, info, warn, error (default "info")

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks that the configuration can support a run.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("DATABRICKS_HOST must be set")
	}
	if c.Token == "" {
		return fmt.Errorf("DATABRICKS_TOKEN must be set")
	}
	switch c.Provider {
	case ProviderServing:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when COPILOT_LLM_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unsupported COPILOT_LLM_PROVIDER %q (must be 'serving' or 'gemini')", c.Provider)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:         strings.TrimRight(os.Getenv("DATABRICKS_HOST"), "/"),
		Token:        os.Getenv("DATABRICKS_TOKEN"),
		Provider:     os.Getenv("COPILOT_LLM_PROVIDER"),
		Model:        os.Getenv("COPILOT_MODEL"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
	}

	if v := os.Getenv("COPILOT_CLASSIFY_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ClassifyConcurrency = n
		}
	}
	if v := os.Getenv("COPILOT_CLASSIFY_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.ClassifyRPS = f
		}
	}
	if v := os.Getenv("COPILOT_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetryMaxAttempts = n
		}
	}
	if v := os.Getenv("COPILOT_RETRY_BASE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RetryBaseDelay = d
		}
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HTTPTimeout = d
		}
	}

	// Defaults
	if cfg.Provider == "" {
		cfg.Provider = ProviderServing
	}
	if cfg.Model == "" {
		cfg.Model = "databricks-claude-sonnet-4"
	}
	if cfg.ClassifyConcurrency == 0 {
		cfg.ClassifyConcurrency = 4
	}
	if cfg.ClassifyRPS == 0 {
		cfg.ClassifyRPS = 2
	}
	if cfg.RetryMaxAttempts == 0 {
		cfg.RetryMaxAttempts = 3
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.Token == "" {
		cfg.Warnings = append(cfg.Warnings, "DATABRICKS_TOKEN not set; workspace calls will fail until a token is provided")
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
