// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Registry sources.
const (
	SourceBuiltin = "builtin"
	SourceFile    = "file"
	SourceSQLite  = "sqlite"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Registry  RegistryConfig  `yaml:"registry"`
	Isolation IsolationConfig `yaml:"isolation"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string          `yaml:"host"`
	Port           int             `yaml:"port"`
	ReadTimeout    time.Duration   `yaml:"read_timeout"`
	WriteTimeout   time.Duration   `yaml:"write_timeout"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig limits /v1 requests per client address. A zero limit
// disables it.
type RateLimitConfig struct {
	Limit  int           `yaml:"limit"`  // Requests per window
	Window time.Duration `yaml:"window"` // Default: 1m
	Burst  int           `yaml:"burst"`  // Extra requests once limit is reached
}

// DatabaseConfig configures the database backing the sqlite registry source.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite"
	DSN    string `yaml:"dsn"`
}

// RegistryConfig selects where structures and rules come from.
type RegistryConfig struct {
	Source          string        `yaml:"source"` // "builtin", "file" or "sqlite"
	Path            string        `yaml:"path"`   // Schema file for the file source
	Watch           bool          `yaml:"watch"`  // Reload the schema file on change
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// IsolationConfig selects content masked before callout extraction.
type IsolationConfig struct {
	Images         bool     `yaml:"images"`
	Links          bool     `yaml:"links"`
	Formatting     bool     `yaml:"formatting"`
	Headings       bool     `yaml:"headings"`
	Code           bool     `yaml:"code"`
	Frontmatter    bool     `yaml:"frontmatter"`
	Comments       bool     `yaml:"comments"`
	CustomPatterns []string `yaml:"custom_patterns,omitempty"`
}

// AuthConfig configures the admin token guarding registry writes.
type AuthConfig struct {
	AdminTokenHash string `yaml:"admin_token_hash,omitempty"` // bcrypt hash; empty disables writes over HTTP
	TokenPrefix    string `yaml:"token_prefix"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = expandEnv(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references with their environment values. Bare
// $VAR is left alone so bcrypt hashes survive.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		return []byte(os.Getenv(string(m[2 : len(m)-1])))
	})
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	CALLOUTLINT_SERVER_HOST         - Server host (default: 127.0.0.1)
//	CALLOUTLINT_SERVER_PORT         - Server port (default: 8080)
//	CALLOUTLINT_SERVER_RATE_LIMIT   - /v1 requests per minute per client (default: unlimited)
//	CALLOUTLINT_DATABASE_DSN        - Database path (default: calloutlint.db)
//	CALLOUTLINT_REGISTRY_SOURCE     - builtin, file or sqlite (default: builtin)
//	CALLOUTLINT_REGISTRY_PATH       - Schema file for the file source
//	CALLOUTLINT_REGISTRY_WATCH      - Reload the schema file on change
//	CALLOUTLINT_ISOLATION           - Comma-separated isolation flags, e.g. "code,links"
//	CALLOUTLINT_ADMIN_TOKEN_HASH    - bcrypt hash of the admin token
//	CALLOUTLINT_LOG_LEVEL           - debug, info, warn, error (default: info)
//	CALLOUTLINT_LOG_FORMAT          - json or console (default: json)
//	CALLOUTLINT_METRICS_ENABLED     - Enable /metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to environment
// variables otherwise. Every setting has a default, so a bare environment
// still yields a working built-in configuration.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies CALLOUTLINT_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("CALLOUTLINT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CALLOUTLINT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CALLOUTLINT_SERVER_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}
	if v := os.Getenv("CALLOUTLINT_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit.Limit = n
		}
	}

	// Database configuration
	if v := os.Getenv("CALLOUTLINT_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Registry configuration
	if v := os.Getenv("CALLOUTLINT_REGISTRY_SOURCE"); v != "" {
		cfg.Registry.Source = v
	}
	if v := os.Getenv("CALLOUTLINT_REGISTRY_PATH"); v != "" {
		cfg.Registry.Path = v
	}
	if v := os.Getenv("CALLOUTLINT_REGISTRY_WATCH"); v != "" {
		cfg.Registry.Watch = parseBool(v)
	}
	if v := os.Getenv("CALLOUTLINT_REGISTRY_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Registry.RefreshInterval = d
		}
	}

	// Isolation configuration
	if v, ok := os.LookupEnv("CALLOUTLINT_ISOLATION"); ok {
		applyIsolationFlags(&cfg.Isolation, v)
	}

	// Auth configuration
	if v := os.Getenv("CALLOUTLINT_ADMIN_TOKEN_HASH"); v != "" {
		cfg.Auth.AdminTokenHash = v
	}

	// Logging configuration
	if v := os.Getenv("CALLOUTLINT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CALLOUTLINT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("CALLOUTLINT_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("CALLOUTLINT_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// applyIsolationFlags replaces the boolean isolation flags with those named
// in the comma-separated list. Unknown names are ignored.
func applyIsolationFlags(iso *IsolationConfig, list string) {
	custom := iso.CustomPatterns
	*iso = IsolationConfig{CustomPatterns: custom}
	for _, name := range strings.Split(list, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "images":
			iso.Images = true
		case "links":
			iso.Links = true
		case "formatting":
			iso.Formatting = true
		case "headings":
			iso.Headings = true
		case "code":
			iso.Code = true
		case "frontmatter":
			iso.Frontmatter = true
		case "comments":
			iso.Comments = true
		}
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Server.RateLimit.Window == 0 {
		cfg.Server.RateLimit.Window = time.Minute
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "calloutlint.db"
	}

	if cfg.Registry.Source == "" {
		cfg.Registry.Source = SourceBuiltin
	}

	if cfg.Auth.TokenPrefix == "" {
		cfg.Auth.TokenPrefix = "clt_"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Server.RateLimit.Limit < 0 || cfg.Server.RateLimit.Burst < 0 || cfg.Server.RateLimit.Window < 0 {
		return fmt.Errorf("server.rate_limit values must not be negative")
	}

	if cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be 'sqlite', got %q", cfg.Database.Driver)
	}

	switch cfg.Registry.Source {
	case SourceBuiltin, SourceSQLite:
	case SourceFile:
		if cfg.Registry.Path == "" {
			return fmt.Errorf("registry.path is required when registry.source is 'file'")
		}
	default:
		return fmt.Errorf("registry.source must be one of: builtin, file, sqlite, got %q", cfg.Registry.Source)
	}
	if cfg.Registry.RefreshInterval < 0 {
		return fmt.Errorf("registry.refresh_interval must not be negative")
	}

	for i, p := range cfg.Isolation.CustomPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("isolation.custom_patterns[%d]: %w", i, err)
		}
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}
