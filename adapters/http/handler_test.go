package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/artpar/calloutlint/adapters/clock"
	"github.com/artpar/calloutlint/adapters/hasher"
	httpadapter "github.com/artpar/calloutlint/adapters/http"
	"github.com/artpar/calloutlint/adapters/idgen"
	"github.com/artpar/calloutlint/adapters/memory"
	"github.com/artpar/calloutlint/adapters/metrics"
	"github.com/artpar/calloutlint/app"
	"github.com/artpar/calloutlint/domain/ratelimit"
	"github.com/artpar/calloutlint/domain/rule"
	"github.com/artpar/calloutlint/domain/structure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	adminToken = "clt_secret"

	siblingEntry = "> [!journal-entry] Monday\n" +
		"> Woke early.\n" +
		"\n" +
		"> [!dream-diary] Flying\n" +
		"> Over the sea.\n"
)

type document struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Status string `json:"status"`
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
	Meta map[string]any `json:"meta"`
}

type resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

func setupRouter(t *testing.T, writable bool) http.Handler {
	t.Helper()

	logger := zerolog.Nop()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	clk := clock.NewFake(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	registry := app.NewRegistryService(
		memory.NewStructureStore(structure.Defaults()...),
		memory.NewRuleStore(rule.Defaults()...),
		clk, m, logger,
		app.RegistryServiceConfig{Writable: writable},
	)
	if err := registry.Start(context.Background()); err != nil {
		t.Fatalf("registry start failed: %v", err)
	}
	t.Cleanup(registry.Stop)

	validation := app.NewValidationService(registry, clk, m, logger, app.ValidationServiceConfig{})

	return httpadapter.NewRouter(
		httpadapter.NewValidationHandler(validation, logger),
		httpadapter.NewRegistryHandler(registry, logger),
		httpadapter.NewHealthHandler(nil, func() bool { return registry.Report() != nil }),
		logger,
		httpadapter.RouterConfig{
			Metrics:    m,
			AdminToken: hasher.NewAdminToken(adminToken, hasher.Fake{}),
			IDGen:      idgen.NewSequential("req-"),
			Version:    "test",
		},
	)
}

func do(t *testing.T, h http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, document) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var doc document
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
			t.Fatalf("%s %s: decode response: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec, doc
}

func jsonBody(t *testing.T, v any) string {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	return buf.String()
}

func TestHealth(t *testing.T) {
	h := setupRouter(t, false)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestValidate(t *testing.T) {
	h := setupRouter(t, false)

	body := jsonBody(t, httpadapter.ValidateRequest{Text: siblingEntry, StructureID: structure.LegacyID})
	rec, doc := do(t, h, http.MethodPost, "/v1/validate", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if doc.Meta["structure_id"] != structure.LegacyID || doc.Meta["matched"] != true {
		t.Errorf("meta = %v, want legacy structure matched", doc.Meta)
	}

	var results []resource
	if err := json.Unmarshal(doc.Data, &results); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	found := false
	for _, r := range results {
		if r.Type != "results" {
			t.Errorf("resource type = %q, want results", r.Type)
		}
		if r.Attributes["category"] == "improper-nesting" {
			found = true
		}
	}
	if !found {
		t.Errorf("no improper-nesting result in %s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "json") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestValidate_BadRequest(t *testing.T) {
	h := setupRouter(t, false)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"invalid json", "{not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, doc := do(t, h, http.MethodPost, "/v1/validate", tt.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if len(doc.Errors) != 1 {
				t.Errorf("errors = %+v, want one", doc.Errors)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	h := setupRouter(t, false)

	rec, doc := do(t, h, http.MethodPost, "/v1/detect", jsonBody(t, httpadapter.ValidateRequest{Text: siblingEntry}), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if doc.Meta["detected"] != true {
		t.Fatalf("detected = %v, want true", doc.Meta["detected"])
	}
	var st resource
	if err := json.Unmarshal(doc.Data, &st); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if st.ID != structure.LegacyID {
		t.Errorf("detected %q, want %q", st.ID, structure.LegacyID)
	}

	_, doc = do(t, h, http.MethodPost, "/v1/detect", jsonBody(t, httpadapter.ValidateRequest{Text: "no callouts"}), "")
	if doc.Meta["detected"] != false {
		t.Errorf("detected = %v, want false", doc.Meta["detected"])
	}
}

func TestBlocks(t *testing.T) {
	h := setupRouter(t, false)

	_, doc := do(t, h, http.MethodPost, "/v1/blocks", jsonBody(t, httpadapter.ValidateRequest{Text: siblingEntry}), "")
	var blocks []resource
	if err := json.Unmarshal(doc.Data, &blocks); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
	if blocks[0].Attributes["type"] != "journal-entry" || blocks[1].Attributes["type"] != "dream-diary" {
		t.Errorf("block types = %v, %v", blocks[0].Attributes["type"], blocks[1].Attributes["type"])
	}
}

func TestFix(t *testing.T) {
	h := setupRouter(t, false)

	_, doc := do(t, h, http.MethodPost, "/v1/validate",
		jsonBody(t, httpadapter.ValidateRequest{Text: siblingEntry, StructureID: structure.LegacyID}), "")
	var results []resource
	if err := json.Unmarshal(doc.Data, &results); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	var resultID string
	for _, r := range results {
		if r.Attributes["category"] == "improper-nesting" {
			resultID = r.ID
		}
	}
	if resultID == "" {
		t.Fatal("no improper-nesting result to fix")
	}

	rec, doc := do(t, h, http.MethodPost, "/v1/fix", jsonBody(t, httpadapter.FixRequest{
		Text:        siblingEntry,
		StructureID: structure.LegacyID,
		ResultID:    resultID,
	}), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if doc.Meta["applied"] != true {
		t.Errorf("applied = %v, want true", doc.Meta["applied"])
	}
	if text, _ := doc.Meta["text"].(string); text == siblingEntry || text == "" {
		t.Errorf("fixed text = %q", text)
	}

	rec, _ = do(t, h, http.MethodPost, "/v1/fix", jsonBody(t, httpadapter.FixRequest{Text: siblingEntry, ResultID: "nope-0-0"}), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown result status = %d, want 404", rec.Code)
	}

	rec, _ = do(t, h, http.MethodPost, "/v1/fix", jsonBody(t, httpadapter.FixRequest{Text: siblingEntry}), "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing result_id status = %d, want 422", rec.Code)
	}
}

func TestRegistry_Reads(t *testing.T) {
	h := setupRouter(t, false)

	rec, doc := do(t, h, http.MethodGet, "/v1/structures", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var structures []resource
	if err := json.Unmarshal(doc.Data, &structures); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(structures) != len(structure.Defaults()) {
		t.Errorf("structures = %d, want %d", len(structures), len(structure.Defaults()))
	}

	rec, _ = do(t, h, http.MethodGet, "/v1/structures/"+structure.AVJournalID, "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("get structure status = %d, want 200", rec.Code)
	}
	rec, _ = do(t, h, http.MethodGet, "/v1/rules/missing", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing rule status = %d, want 404", rec.Code)
	}

	_, doc = do(t, h, http.MethodGet, "/v1/registry", "", "")
	if doc.Meta["writable"] != false {
		t.Errorf("writable = %v, want false", doc.Meta["writable"])
	}
	if doc.Meta["structures"] != float64(3) {
		t.Errorf("structures = %v, want 3", doc.Meta["structures"])
	}
}

func TestRegistry_WritesNeedAdmin(t *testing.T) {
	h := setupRouter(t, true)

	rec, _ := do(t, h, http.MethodDelete, "/v1/rules/todo-marker", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}
	rec, _ = do(t, h, http.MethodDelete, "/v1/rules/todo-marker", "", "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", rec.Code)
	}
	rec, _ = do(t, h, http.MethodDelete, "/v1/rules/todo-marker", "", adminToken)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	rec, _ = do(t, h, http.MethodGet, "/v1/rules/todo-marker", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted rule status = %d, want 404", rec.Code)
	}
}

func TestRegistry_PutStructure(t *testing.T) {
	h := setupRouter(t, true)

	body := `{"data":{"type":"structures","id":"notes","attributes":{"name":"Notes","root_type":"Note","child_types":["item"]}}}`
	rec, doc := do(t, h, http.MethodPut, "/v1/structures/notes", body, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var st resource
	if err := json.Unmarshal(doc.Data, &st); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if st.Attributes["nesting_mode"] != "nested" {
		t.Errorf("nesting_mode = %v, want nested default", st.Attributes["nesting_mode"])
	}
	if st.Attributes["root_type"] != "note" {
		t.Errorf("root_type = %v, want lowercased note", st.Attributes["root_type"])
	}

	_, doc = do(t, h, http.MethodGet, "/v1/registry", "", "")
	if doc.Meta["structures"] != float64(4) {
		t.Errorf("structures after put = %v, want 4", doc.Meta["structures"])
	}

	mismatch := `{"data":{"type":"structures","id":"other","attributes":{"root_type":"note"}}}`
	rec, _ = do(t, h, http.MethodPut, "/v1/structures/notes", mismatch, adminToken)
	if rec.Code != http.StatusConflict {
		t.Errorf("id mismatch status = %d, want 409", rec.Code)
	}

	wrongType := `{"data":{"type":"rules","id":"notes","attributes":{"root_type":"note"}}}`
	rec, _ = do(t, h, http.MethodPut, "/v1/structures/notes", wrongType, adminToken)
	if rec.Code != http.StatusConflict {
		t.Errorf("type mismatch status = %d, want 409", rec.Code)
	}

	invalid := `{"data":{"type":"structures","id":"bad","attributes":{"name":"Bad"}}}`
	rec, doc = do(t, h, http.MethodPut, "/v1/structures/bad", invalid, adminToken)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid structure status = %d, want 422", rec.Code)
	}
	if len(doc.Errors) == 1 && doc.Errors[0].Code != "invalid_definition" {
		t.Errorf("error code = %q, want invalid_definition", doc.Errors[0].Code)
	}
}

func TestRegistry_PutRuleReadOnly(t *testing.T) {
	h := setupRouter(t, false)

	body := `{"data":{"type":"rules","id":"x","attributes":{"pattern":"x"}}}`
	rec, _ := do(t, h, http.MethodPut, "/v1/rules/x", body, adminToken)
	if rec.Code != http.StatusForbidden {
		t.Errorf("read-only put status = %d, want 403", rec.Code)
	}
}

func TestRegistry_AdminNotConfigured(t *testing.T) {
	validation := app.NewValidationService(nil, clock.Real{}, nil, zerolog.Nop(), app.ValidationServiceConfig{})
	registry := app.NewRegistryService(memory.NewStructureStore(), memory.NewRuleStore(), clock.Real{}, nil, zerolog.Nop(),
		app.RegistryServiceConfig{Writable: true})

	h := httpadapter.NewRouter(
		httpadapter.NewValidationHandler(validation, zerolog.Nop()),
		httpadapter.NewRegistryHandler(registry, zerolog.Nop()),
		httpadapter.NewHealthHandler(nil, nil),
		zerolog.Nop(),
		httpadapter.RouterConfig{},
	)

	rec, _ := do(t, h, http.MethodPost, "/v1/registry/reload", "", "anything")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestReadiness_NotLoaded(t *testing.T) {
	h := httpadapter.NewHealthHandler(nil, func() bool { return false })
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := setupRouter(t, false)

	do(t, h, http.MethodPost, "/v1/validate", jsonBody(t, httpadapter.ValidateRequest{Text: "x"}), "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	h := setupRouter(t, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	if got := rec.Header().Get("X-Request-Id"); got != "req-1" {
		t.Errorf("generated request id = %q, want req-1", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set("X-Request-Id", "client-7")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "client-7" {
		t.Errorf("echoed request id = %q, want client-7", got)
	}
}

func TestRateLimit(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC))
	limiter := httpadapter.NewRateLimiter(ratelimit.Config{Limit: 2, Period: time.Minute}, clk)

	registry := app.NewRegistryService(
		memory.NewStructureStore(structure.Defaults()...),
		memory.NewRuleStore(rule.Defaults()...),
		clk, nil, zerolog.Nop(), app.RegistryServiceConfig{},
	)
	if err := registry.Start(context.Background()); err != nil {
		t.Fatalf("registry start failed: %v", err)
	}
	t.Cleanup(registry.Stop)

	h := httpadapter.NewRouter(
		httpadapter.NewValidationHandler(app.NewValidationService(registry, clk, nil, zerolog.Nop(), app.ValidationServiceConfig{}), zerolog.Nop()),
		httpadapter.NewRegistryHandler(registry, zerolog.Nop()),
		httpadapter.NewHealthHandler(nil, nil),
		zerolog.Nop(),
		httpadapter.RouterConfig{RateLimiter: limiter},
	)

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		rec, doc := do(t, h, http.MethodGet, "/v1/structures", "", "")
		if rec.Code != want {
			t.Fatalf("request %d = %d, want %d", i, rec.Code, want)
		}
		if want == http.StatusTooManyRequests {
			if got := rec.Header().Get("Retry-After"); got != "60" {
				t.Errorf("Retry-After = %q, want 60", got)
			}
			if len(doc.Errors) != 1 || doc.Errors[0].Code != "rate_limit_exceeded" {
				t.Errorf("errors = %+v", doc.Errors)
			}
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health behind exhausted limit = %d, want 200", rec.Code)
	}

	clk.Advance(time.Minute)
	if rec, _ := do(t, h, http.MethodGet, "/v1/structures", "", ""); rec.Code != http.StatusOK {
		t.Errorf("after window reset = %d, want 200", rec.Code)
	}
}
