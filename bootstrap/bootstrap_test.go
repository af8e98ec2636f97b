package bootstrap_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/calloutlint/bootstrap"
	"github.com/artpar/calloutlint/config"
	"github.com/artpar/calloutlint/domain/structure"
	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newApp(t *testing.T, configYAML string) *bootstrap.App {
	t.Helper()
	dir := t.TempDir()
	path := writeFile(t, dir, "calloutlint.yaml", configYAML)

	a, err := bootstrap.New(context.Background(), bootstrap.Options{
		ConfigPath: path,
		Version:    "test",
		LogOutput:  io.Discard,
	})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	t.Cleanup(func() { a.Shutdown() })
	return a
}

func TestBootstrap_Builtin(t *testing.T) {
	a := newApp(t, "registry:\n  source: builtin\n")

	if a.DB != nil {
		t.Error("builtin source should not open a database")
	}
	if a.HTTPServer == nil {
		t.Fatal("HTTPServer should not be nil")
	}
	if a.HTTPServer.Addr != "127.0.0.1:8080" {
		t.Errorf("Addr = %s, want 127.0.0.1:8080", a.HTTPServer.Addr)
	}
	if got := len(a.Registry.Snapshot().Structures); got != len(structure.Defaults()) {
		t.Errorf("structures = %d, want %d", got, len(structure.Defaults()))
	}
	if a.Registry.Writable() {
		t.Error("builtin registry should be read-only")
	}

	rec := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("readiness = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics with metrics disabled = %d, want 404", rec.Code)
	}
}

func TestBootstrap_SQLiteSeedsDefaults(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "schema.db")
	a := newApp(t, "registry:\n  source: sqlite\ndatabase:\n  dsn: "+dbPath+"\nmetrics:\n  enabled: true\n")

	if a.DB == nil {
		t.Fatal("sqlite source should open the database")
	}
	if !a.Registry.Writable() {
		t.Error("sqlite registry should be writable")
	}
	structures, err := a.Registry.ListStructures(context.Background())
	if err != nil {
		t.Fatalf("ListStructures: %v", err)
	}
	if len(structures) != len(structure.Defaults()) {
		t.Errorf("seeded structures = %d, want %d", len(structures), len(structure.Defaults()))
	}

	body := strings.NewReader(`{"text":"> [!journal-entry] x\n> [!dream-diary] y\n"}`)
	a.HTTPServer.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/validate", body))

	rec := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "calloutlint_validations_total") {
		t.Error("metrics output missing calloutlint_validations_total")
	}
}

func TestBootstrap_FileSourceWatches(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "schema.yaml", "structures:\n  - id: notes\n    root_type: note\n")
	cfgPath := writeFile(t, dir, "calloutlint.yaml",
		"registry:\n  source: file\n  path: "+schema+"\n  watch: true\n")

	a, err := bootstrap.New(context.Background(), bootstrap.Options{ConfigPath: cfgPath, LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	defer a.Shutdown()

	if _, ok := a.Registry.Snapshot().Structure("notes"); !ok {
		t.Fatal("structure from schema file not loaded")
	}

	writeFile(t, dir, "schema.yaml", "structures:\n  - id: diary\n    root_type: diary\n")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := a.Registry.Snapshot().Structure("diary"); ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("schema file change was not picked up")
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"missing schema file", "registry:\n  source: file\n  path: " + filepath.Join(dir, "nope.yaml") + "\n"},
		{"unknown source", "registry:\n  source: consul\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "calloutlint.yaml", tt.content)
			if _, err := bootstrap.New(context.Background(), bootstrap.Options{ConfigPath: path, LogOutput: io.Discard}); err == nil {
				t.Error("New succeeded, want error")
			}
		})
	}
}

func TestBootstrap_EnvFallback(t *testing.T) {
	t.Setenv("CALLOUTLINT_SERVER_PORT", "9999")

	a, err := bootstrap.New(context.Background(), bootstrap.Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		LogOutput:  io.Discard,
	})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	defer a.Shutdown()

	if a.Config.Registry.Source != config.SourceBuiltin {
		t.Errorf("source = %s, want builtin", a.Config.Registry.Source)
	}
	if !strings.HasSuffix(a.HTTPServer.Addr, ":9999") {
		t.Errorf("Addr = %s, want port 9999", a.HTTPServer.Addr)
	}
}

func TestBootstrap_ShutdownTwice(t *testing.T) {
	a := newApp(t, "{}\n")
	if err := a.Shutdown(); err != nil {
		t.Errorf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}

func TestSetupLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger := bootstrap.SetupLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("warn message missing from JSON output: %q", out)
	}

	buf.Reset()
	logger = bootstrap.SetupLogger(config.LoggingConfig{Level: "bogus", Format: "console"}, &buf)
	logger.Info().Msg("console line")
	if !strings.Contains(buf.String(), "console line") || strings.HasPrefix(buf.String(), "{") {
		t.Errorf("console output = %q", buf.String())
	}
}
