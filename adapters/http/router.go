package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/artpar/calloutlint/adapters/hasher"
	"github.com/artpar/calloutlint/adapters/idgen"
	"github.com/artpar/calloutlint/adapters/metrics"
	"github.com/artpar/calloutlint/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// Pinger is implemented by storage that can report its health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	db     Pinger
	loaded func() bool
}

// NewHealthHandler creates a new health handler. db may be nil; loaded
// reports whether the registry has completed its first load.
func NewHealthHandler(db Pinger, loaded func() bool) *HealthHandler {
	return &HealthHandler{db: db, loaded: loaded}
}

// Liveness returns a simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Readiness checks the registry is loaded and the database answers.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	unhealthy := func(reason string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": reason})
	}

	if h.loaded != nil && !h.loaded() {
		unhealthy("schema registry not loaded")
		return
	}
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			unhealthy(err.Error())
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector // Request metrics; nil disables
	MetricsHandler http.Handler       // Serves MetricsPath; defaults to promhttp.Handler()
	MetricsPath    string             // Default: /metrics
	AdminToken     *hasher.AdminToken // Guards registry writes; nil or unconfigured rejects all writes
	RequestTimeout time.Duration      // Default: 30s
	IDGen          ports.IDGenerator  // Request ids; defaults to UUIDs
	RateLimiter    *RateLimiter       // Limits /v1 per client; nil disables
	Version        string
}

// NewRouter creates the main HTTP router.
func NewRouter(
	validation *ValidationHandler,
	registry *RegistryHandler,
	health *HealthHandler,
	logger zerolog.Logger,
	cfg RouterConfig,
) chi.Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.IDGen == nil {
		cfg.IDGen = idgen.UUID{}
	}

	r := chi.NewRouter()

	r.Use(NewRequestIDMiddleware(cfg.IDGen))
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, cfg.MetricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, cfg.MetricsPath))
	}

	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Metrics != nil {
		h := cfg.MetricsHandler
		if h == nil {
			h = promhttp.Handler()
		}
		r.Handle(cfg.MetricsPath, h)
	}

	version := cfg.Version
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(VersionResponse{Version: version, Service: "calloutlint"})
	})

	r.Route("/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware(logger))
		}

		r.Post("/validate", validation.Validate)
		r.Post("/detect", validation.Detect)
		r.Post("/blocks", validation.Blocks)
		r.Post("/fix", validation.Fix)

		r.Get("/registry", registry.Status)
		r.Get("/structures", registry.ListStructures)
		r.Get("/structures/{id}", registry.GetStructure)
		r.Get("/rules", registry.ListRules)
		r.Get("/rules/{id}", registry.GetRule)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(cfg.AdminToken, logger))
			r.Post("/registry/reload", registry.Reload)
			r.Put("/structures/{id}", registry.PutStructure)
			r.Delete("/structures/{id}", registry.DeleteStructure)
			r.Put("/rules/{id}", registry.PutRule)
			r.Delete("/rules/{id}", registry.DeleteRule)
		})
	})

	return r
}
