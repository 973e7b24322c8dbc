// Package config provides configuration management for the application.
// It supports YAML configuration files with environment variable overrides.
package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gamelens/gamelens/consts"
	"github.com/gamelens/gamelens/pkg/logger"
	"github.com/gamelens/gamelens/pkg/telemetry"
)

// Default configuration values
const (
	defaultStoreBaseURL     = "https://store.steampowered.com"
	defaultAPIBaseURL       = "https://api.steampowered.com"
	defaultRequestTimeout   = 20 // seconds
	defaultRateLimitRPM     = 60
	defaultMaxReviews       = 100
	defaultLanguage         = "english"
	defaultPromptsDir       = "./prompts"
	defaultMaxConcurrent    = 2
	defaultReviewsPerBatch  = 10
	defaultCompletionWindow = "24h"
	defaultPollTimeout      = 600 // seconds
	defaultPollInterval     = 3   // seconds
	defaultVaultKeyFile     = "./data/vault.key"
	defaultCatalogCron      = "0 3 * * *"
	defaultOTLPEndpoint     = "localhost:4317"
	defaultPrometheusPort   = 9090
)

// Config represents the complete application configuration
type Config struct {
	Subtitle  string           `yaml:"subtitle"` // Application subtitle (displayed in browser title)
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Auth      AuthConfig       `yaml:"auth"`
	Steam     SteamConfig      `yaml:"steam"`
	Scraper   ScraperConfig    `yaml:"scraper"`
	Analysis  AnalysisConfig   `yaml:"analysis"`
	Vault     VaultConfig      `yaml:"vault"`
	Catalog   CatalogConfig    `yaml:"catalog"`
	Logging   logger.Config    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors_origins"` // Allowed CORS origins whitelist
}

// DatabaseConfig holds database configuration
// Note: Database path is now hardcoded in the database package to prevent data loss from configuration errors
type DatabaseConfig struct {
	// Reserved for future database configuration options
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret    string `yaml:"jwt_secret"`    // JWT signing secret key
	TokenExpiry  int    `yaml:"token_expiry"`  // Normal token expiry in hours (default: 24)
	RememberDays int    `yaml:"remember_days"` // Remember me token expiry in days (default: 7)
}

// SteamConfig holds upstream store API configuration
type SteamConfig struct {
	// StoreBaseURL is the base URL of the store front (appreviews, storesearch, appdetails)
	StoreBaseURL string `yaml:"store_base_url"`
	// APIBaseURL is the base URL of the web API (ISteamApps applist)
	APIBaseURL string `yaml:"api_base_url"`
	// RequestTimeout is the per-request HTTP timeout in seconds
	RequestTimeout int `yaml:"request_timeout"`
}

// ScraperConfig holds global ingestion defaults.
// All values can be overridden per start request (and per title within it).
type ScraperConfig struct {
	MaxReviews   int    `yaml:"max_reviews"`    // cap per title; ignored when complete_scraping
	RateLimitRPM int    `yaml:"rate_limit_rpm"` // upstream requests per minute, >= 1
	Language     string `yaml:"language"`       // review language filter, lower-case
}

// AnalysisConfig holds analysis orchestration configuration
type AnalysisConfig struct {
	// PromptsDir is the directory of UTF-8 prompt files
	PromptsDir string `yaml:"prompts_dir"`
	// MaxConcurrentJobs bounds the number of jobs running at once
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`
	// ReviewsPerBatch is the default batch size per provider call
	ReviewsPerBatch int `yaml:"reviews_per_batch"`
	// CompletionWindow is the provider-side batch deadline (default "24h")
	CompletionWindow string `yaml:"completion_window"`
	// PollTimeout is the batch polling wall clock in seconds (default 600)
	PollTimeout int `yaml:"poll_timeout"`
	// PollInterval is the batch polling interval in seconds (default 3)
	PollInterval int `yaml:"poll_interval"`
	// OutputLanguage is the ISO tag of the language analysis output is
	// requested in (e.g. "en", "zh-CN"); empty means English
	OutputLanguage string `yaml:"output_language"`
}

// VaultConfig holds credential vault configuration
type VaultConfig struct {
	// KeyFile is the on-disk fallback for the vault key when the
	// environment variable is not set; generated on first use
	KeyFile string `yaml:"key_file"`
}

// CatalogConfig holds title-catalog backfill configuration
type CatalogConfig struct {
	// RefreshEnabled turns on the scheduled applist refresh
	RefreshEnabled bool `yaml:"refresh_enabled"`
	// RefreshCron is the refresh schedule (default nightly at 3 AM)
	RefreshCron string `yaml:"refresh_cron"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Subtitle: "", // Default empty, will show "GameLens" only
		Server: ServerConfig{
			Host:  "0.0.0.0",
			Port:  8080,
			Debug: false,
			CORSOrigins: []string{
				"http://localhost:8091",
				"http://localhost:8092",
			},
		},
		Database: DatabaseConfig{},
		Auth: AuthConfig{
			JWTSecret:    "", // Should be set via config file or environment variable
			TokenExpiry:  24, // 24 hours
			RememberDays: 7,  // 7 days
		},
		Steam: SteamConfig{
			StoreBaseURL:   defaultStoreBaseURL,
			APIBaseURL:     defaultAPIBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Scraper: ScraperConfig{
			MaxReviews:   defaultMaxReviews,
			RateLimitRPM: defaultRateLimitRPM,
			Language:     defaultLanguage,
		},
		Analysis: AnalysisConfig{
			PromptsDir:        defaultPromptsDir,
			MaxConcurrentJobs: defaultMaxConcurrent,
			ReviewsPerBatch:   defaultReviewsPerBatch,
			CompletionWindow:  defaultCompletionWindow,
			PollTimeout:       defaultPollTimeout,
			PollInterval:      defaultPollInterval,
		},
		Vault: VaultConfig{
			KeyFile: defaultVaultKeyFile,
		},
		Catalog: CatalogConfig{
			RefreshEnabled: false,
			RefreshCron:    defaultCatalogCron,
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text", // Default to human-readable text format instead of JSON
			File:       "",
			MaxSize:    100, // Max 100MB per log file
			MaxAge:     7,   // Retain logs for 7 days
			MaxBackups: 5,   // Keep 5 backup files
			Compress:   false,
		},
		Telemetry: telemetry.Config{
			Enabled:     false,
			ServiceName: consts.ServiceName,
			OTLP: telemetry.OTLPConfig{
				Enabled:  false,
				Endpoint: defaultOTLPEndpoint,
				Insecure: true,
			},
			Prometheus: telemetry.PrometheusConfig{
				Enabled: false,
				Port:    defaultPrometheusPort,
			},
		},
	}
}

// Load loads configuration from a YAML file with environment variable expansion
func Load(path string) (*Config, error) {
	cfg := Default()

	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables in the configuration
	expanded := expandEnvVars(string(data))

	// Parse YAML
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values
// Only matches ${VAR_NAME} format (not $VAR_NAME) to avoid conflicts with special characters
func expandEnvVars(content string) string {
	// Match ${VAR_NAME} patterns only
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := match[2 : len(match)-1]

		// Support default values: ${VAR_NAME:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]

		if value := os.Getenv(varName); value != "" {
			return value
		}

		// Return default value if provided
		if len(parts) > 1 {
			return parts[1]
		}

		return ""
	})
}

// Address returns the server address string
func (c *ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
