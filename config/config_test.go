package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/calloutlint/config"
)

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calloutlint.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "0.0.0.0"
  port: 9090
  request_timeout: 5s

database:
  dsn: ":memory:"

registry:
  source: file
  path: schema.yaml
  watch: true

isolation:
  code: true
  links: true
  custom_patterns:
    - '\{\{[^}]*\}\}'

auth:
  admin_token_hash: "$2a$10$abc"
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.Server.RequestTimeout)
	}
	if cfg.Database.DSN != ":memory:" {
		t.Errorf("Database.DSN = %s, want :memory:", cfg.Database.DSN)
	}
	if cfg.Registry.Source != config.SourceFile || cfg.Registry.Path != "schema.yaml" || !cfg.Registry.Watch {
		t.Errorf("Registry = %+v", cfg.Registry)
	}
	if !cfg.Isolation.Code || !cfg.Isolation.Links || cfg.Isolation.Images {
		t.Errorf("Isolation = %+v", cfg.Isolation)
	}
	if len(cfg.Isolation.CustomPatterns) != 1 {
		t.Errorf("CustomPatterns = %v, want 1 pattern", cfg.Isolation.CustomPatterns)
	}
	if cfg.Auth.AdminTokenHash != "$2a$10$abc" {
		t.Errorf("AdminTokenHash = %q", cfg.Auth.AdminTokenHash)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "{}\n")

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("default Host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second || cfg.Server.WriteTimeout != 60*time.Second {
		t.Errorf("default timeouts = %v/%v", cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	}
	if cfg.Server.RateLimit.Limit != 0 || cfg.Server.RateLimit.Window != time.Minute {
		t.Errorf("default RateLimit = %+v, want disabled with a 1m window", cfg.Server.RateLimit)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "calloutlint.db" {
		t.Errorf("default Database = %+v", cfg.Database)
	}
	if cfg.Registry.Source != config.SourceBuiltin {
		t.Errorf("default Registry.Source = %s, want builtin", cfg.Registry.Source)
	}
	if cfg.Auth.TokenPrefix != "clt_" {
		t.Errorf("default TokenPrefix = %s, want clt_", cfg.Auth.TokenPrefix)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("default Metrics = %+v", cfg.Metrics)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_SCHEMA_PATH", "/etc/calloutlint/schema.yaml")

	cfg := writeAndLoad(t, `
registry:
  source: file
  path: "${TEST_SCHEMA_PATH}"
`)

	if cfg.Registry.Path != "/etc/calloutlint/schema.yaml" {
		t.Errorf("Registry.Path = %s, want expanded env var", cfg.Registry.Path)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown source", "registry:\n  source: etcd\n", "registry.source"},
		{"file without path", "registry:\n  source: file\n", "registry.path"},
		{"negative refresh", "registry:\n  refresh_interval: -1s\n", "refresh_interval"},
		{"bad driver", "database:\n  driver: postgres\n", "database.driver"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"negative rate limit", "server:\n  rate_limit:\n    limit: -1\n", "server.rate_limit"},
		{"bad log format", "logging:\n  format: xml\n", "logging.format"},
		{"bad isolation pattern", "isolation:\n  custom_patterns: ['(']\n", "custom_patterns[0]"},
		{"bad metrics path", "metrics:\n  path: metrics\n", "metrics.path"},
		{"invalid yaml", "server: [\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := config.Load("/nonexistent/calloutlint.yaml"); err == nil {
		t.Error("Load should fail for a missing file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CALLOUTLINT_SERVER_PORT", "7070")
	t.Setenv("CALLOUTLINT_REGISTRY_SOURCE", "sqlite")
	t.Setenv("CALLOUTLINT_DATABASE_DSN", "/data/schema.db")
	t.Setenv("CALLOUTLINT_LOG_LEVEL", "debug")
	t.Setenv("CALLOUTLINT_METRICS_ENABLED", "yes")

	cfg := writeAndLoad(t, `
server:
  port: 9090
registry:
  source: builtin
logging:
  level: warn
`)

	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from env", cfg.Server.Port)
	}
	if cfg.Registry.Source != config.SourceSQLite {
		t.Errorf("Registry.Source = %s, want sqlite from env", cfg.Registry.Source)
	}
	if cfg.Database.DSN != "/data/schema.db" {
		t.Errorf("Database.DSN = %s", cfg.Database.DSN)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true from env")
	}
}

func TestEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("CALLOUTLINT_SERVER_PORT", "not-a-port")
	t.Setenv("CALLOUTLINT_SERVER_REQUEST_TIMEOUT", "soon")

	cfg := writeAndLoad(t, "server:\n  port: 9090\n")

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want file value 9090", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want default", cfg.Server.RequestTimeout)
	}
}

func TestEnvOverrides_Isolation(t *testing.T) {
	t.Setenv("CALLOUTLINT_ISOLATION", "code, Frontmatter,unknown")

	cfg := writeAndLoad(t, `
isolation:
  links: true
  custom_patterns: ['x+']
`)

	want := config.IsolationConfig{Code: true, Frontmatter: true, CustomPatterns: []string{"x+"}}
	got := cfg.Isolation
	if got.Code != want.Code || got.Frontmatter != want.Frontmatter || got.Links ||
		len(got.CustomPatterns) != 1 || got.CustomPatterns[0] != "x+" {
		t.Errorf("Isolation = %+v, want %+v", got, want)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CALLOUTLINT_REGISTRY_SOURCE", "file")
	t.Setenv("CALLOUTLINT_REGISTRY_PATH", "/srv/schema.yaml")
	t.Setenv("CALLOUTLINT_REGISTRY_WATCH", "1")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.Registry.Source != config.SourceFile || cfg.Registry.Path != "/srv/schema.yaml" || !cfg.Registry.Watch {
		t.Errorf("Registry = %+v", cfg.Registry)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	t.Setenv("CALLOUTLINT_REGISTRY_SOURCE", "file")

	if _, err := config.LoadFromEnv(); err == nil {
		t.Error("LoadFromEnv should fail without registry path")
	}
}

func TestLoadWithFallback(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9191\n")

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Port = %d, want 9191 from file", cfg.Server.Port)
	}

	for _, p := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := config.LoadWithFallback(p)
		if err != nil {
			t.Fatalf("LoadWithFallback(%q) error: %v", p, err)
		}
		if cfg.Registry.Source != config.SourceBuiltin {
			t.Errorf("LoadWithFallback(%q) source = %s, want builtin", p, cfg.Registry.Source)
		}
	}
}

func TestParseBoolValues(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"off", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("CALLOUTLINT_METRICS_ENABLED", tt.value)
			cfg, err := config.LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv error: %v", err)
			}
			if cfg.Metrics.Enabled != tt.want {
				t.Errorf("Metrics.Enabled for %q = %v, want %v", tt.value, cfg.Metrics.Enabled, tt.want)
			}
		})
	}
}
