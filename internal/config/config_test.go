package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8080 {
		t.Errorf("Default server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Scraper.RateLimitRPM != 60 {
		t.Errorf("Default rate limit = %d, want 60", cfg.Scraper.RateLimitRPM)
	}
	if cfg.Steam.RequestTimeout != 20 {
		t.Errorf("Default request timeout = %d, want 20", cfg.Steam.RequestTimeout)
	}
	if cfg.Analysis.PromptsDir != "./prompts" {
		t.Errorf("Default prompts dir = %s, want ./prompts", cfg.Analysis.PromptsDir)
	}
	if cfg.Analysis.PollInterval != 3 {
		t.Errorf("Default poll interval = %d, want 3", cfg.Analysis.PollInterval)
	}
	if cfg.Catalog.RefreshCron != "0 3 * * *" {
		t.Errorf("Default catalog cron = %s, want '0 3 * * *'", cfg.Catalog.RefreshCron)
	}
}

func TestLoad(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9000
scraper:
  rate_limit_rpm: 30
  language: "schinese"
analysis:
  max_concurrent_jobs: 4
`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Scraper.RateLimitRPM != 30 {
		t.Errorf("Rate limit = %d, want 30", cfg.Scraper.RateLimitRPM)
	}
	if cfg.Scraper.Language != "schinese" {
		t.Errorf("Language = %s, want schinese", cfg.Scraper.Language)
	}
	if cfg.Analysis.MaxConcurrentJobs != 4 {
		t.Errorf("Max concurrent jobs = %d, want 4", cfg.Analysis.MaxConcurrentJobs)
	}

	// Unset sections keep their defaults
	if cfg.Steam.StoreBaseURL != defaultStoreBaseURL {
		t.Errorf("Store base URL = %s, want default", cfg.Steam.StoreBaseURL)
	}
	if cfg.Analysis.PromptsDir != defaultPromptsDir {
		t.Errorf("Prompts dir = %s, want default", cfg.Analysis.PromptsDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should fail for missing file")
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("TEST_GL_HOST", "example.com")
	defer os.Unsetenv("TEST_GL_HOST")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "host: ${TEST_GL_HOST}",
			expected: "host: example.com",
		},
		{
			name:     "unset variable becomes empty",
			input:    "secret: ${TEST_GL_UNSET}",
			expected: "secret: ",
		},
		{
			name:     "unset variable with default",
			input:    "port: ${TEST_GL_UNSET:-8080}",
			expected: "port: 8080",
		},
		{
			name:     "set variable ignores default",
			input:    "host: ${TEST_GL_HOST:-fallback}",
			expected: "host: example.com",
		},
		{
			name:     "plain dollar untouched",
			input:    "cost: $5",
			expected: "cost: $5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandEnvVars(tt.input); got != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8080}
	if got := cfg.Address(); got != "0.0.0.0:8080" {
		t.Errorf("Address() = %s, want 0.0.0.0:8080", got)
	}
}
