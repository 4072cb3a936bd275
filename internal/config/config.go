// ABOUTME: Configuration loading and parsing for parley-relay
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete parley-relay configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Assistant AssistantConfig `yaml:"assistant"`
	Limits    LimitsConfig    `yaml:"limits"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AssistantConfig holds the completion service configuration.
// Identity is the reserved receiver identity that routes a message to
// the assistant.
type AssistantConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Identity     string `yaml:"identity"`
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// LimitsConfig holds per-session throttling configuration
type LimitsConfig struct {
	// EventsPerSecond caps inbound events per session; 0 disables the limiter
	EventsPerSecond float64 `yaml:"events_per_second"`
	Burst           int     `yaml:"burst"`

	DedupeTTL time.Duration `yaml:"-"`

	DedupeTTLRaw string `yaml:"dedupe_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment
// variable values. If the environment variable is not set, it is replaced with
// an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Assistant.Enabled && c.Assistant.APIKey == "" {
		return fmt.Errorf("assistant.api_key is required when assistant is enabled")
	}

	if c.Limits.EventsPerSecond < 0 {
		return fmt.Errorf("limits.events_per_second must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Assistant.TimeoutRaw != "" {
		cfg.Assistant.Timeout, err = time.ParseDuration(cfg.Assistant.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing assistant.timeout %q: %w", cfg.Assistant.TimeoutRaw, err)
		}
	}

	if cfg.Limits.DedupeTTLRaw != "" {
		cfg.Limits.DedupeTTL, err = time.ParseDuration(cfg.Limits.DedupeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing limits.dedupe_ttl %q: %w", cfg.Limits.DedupeTTLRaw, err)
		}
	}

	return nil
}
