// Package config loads the settings shared by the compass binaries.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trade-compass/compass-go/internal/types"
)

// Environment variables that override the file
const (
	EnvConfigPath  = "COMPASS_CONFIG"
	EnvBaseURL     = "COMPASS_BASE_URL"
	EnvSessionFile = "COMPASS_SESSION_FILE"
	EnvAdminAPIKey = "COMPASS_ADMIN_API_KEY"
	EnvSentryDSN   = "SENTRY_DSN"
)

// Config is the on-disk configuration
type Config struct {
	BaseURL     string             `yaml:"base_url"`
	Timeout     time.Duration      `yaml:"timeout"`
	SessionFile string             `yaml:"session_file"`
	AdminAPIKey string             `yaml:"admin_api_key"`
	SentryDSN   string             `yaml:"sentry_dsn"`
	LogLevel    string             `yaml:"log_level"`
	Retry       *types.RetryConfig `yaml:"retry"`
	RateLimit   RateLimit          `yaml:"rate_limit"`
}

// RateLimit caps outgoing requests. Zero RPS disables the limit.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the configuration used when no file exists
func Default() Config {
	return Config{
		BaseURL:     types.DefaultBaseURL,
		Timeout:     types.DefaultTimeout,
		SessionFile: defaultSessionFile(),
		LogLevel:    "warn",
	}
}

// DefaultPath is $COMPASS_CONFIG or ~/.config/compass/config.yaml
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "compass", "config.yaml")
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, errors.Wrap(err, "failed to read config file")
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.Wrap(err, "failed to parse config file")
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail later
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return errors.Errorf("base_url must be an http(s) URL: %s", c.BaseURL)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate_limit values must not be negative")
	}
	if c.Retry != nil && c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must not be negative")
	}
	return nil
}

// Level maps LogLevel to a slog level, defaulting to warn
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvSessionFile); v != "" {
		cfg.SessionFile = v
	}
	if v := os.Getenv(EnvAdminAPIKey); v != "" {
		cfg.AdminAPIKey = v
	}
	if v := os.Getenv(EnvSentryDSN); v != "" {
		cfg.SentryDSN = v
	}
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".compass_session.json"
	}
	return filepath.Join(home, ".compass", "session.json")
}
