// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

assistant:
  enabled: true
  identity: "assistant-id"
  base_url: "https://llm.internal/v1"
  api_key: "sk-test"
  model: "gpt-4o-mini"
  timeout: "45s"

limits:
  events_per_second: 20
  burst: 40
  dedupe_ttl: "2m"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if !cfg.Assistant.Enabled {
		t.Error("Assistant.Enabled = false, want true")
	}
	if cfg.Assistant.Identity != "assistant-id" {
		t.Errorf("Assistant.Identity = %q, want %q", cfg.Assistant.Identity, "assistant-id")
	}
	if cfg.Assistant.Timeout != 45*time.Second {
		t.Errorf("Assistant.Timeout = %v, want 45s", cfg.Assistant.Timeout)
	}
	if cfg.Limits.EventsPerSecond != 20 {
		t.Errorf("Limits.EventsPerSecond = %v, want 20", cfg.Limits.EventsPerSecond)
	}
	if cfg.Limits.DedupeTTL != 2*time.Minute {
		t.Errorf("Limits.DedupeTTL = %v, want 2m", cfg.Limits.DedupeTTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("PARLEY_TEST_KEY", "sk-from-env")

	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
assistant:
  enabled: true
  api_key: "${PARLEY_TEST_KEY}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Assistant.APIKey != "sk-from-env" {
		t.Errorf("Assistant.APIKey = %q, want %q", cfg.Assistant.APIKey, "sk-from-env")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
assistant:
  timeout: "not-a-duration"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "assistant.timeout") {
		t.Errorf("error %q should mention assistant.timeout", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing http addr",
			mutate:  func(c *Config) { c.Server.HTTPAddr = "" },
			wantErr: "server.http_addr",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name: "assistant enabled without api key",
			mutate: func(c *Config) {
				c.Assistant.Enabled = true
				c.Assistant.APIKey = ""
			},
			wantErr: "assistant.api_key",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Limits.EventsPerSecond = -1 },
			wantErr: "events_per_second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:   ServerConfig{HTTPAddr: ":8080"},
				Database: DatabaseConfig{Path: "./test.db"},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}
