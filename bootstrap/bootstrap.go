// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/artpar/calloutlint/adapters/clock"
	"github.com/artpar/calloutlint/adapters/hasher"
	apihttp "github.com/artpar/calloutlint/adapters/http"
	"github.com/artpar/calloutlint/adapters/memory"
	"github.com/artpar/calloutlint/adapters/metrics"
	"github.com/artpar/calloutlint/adapters/schemafile"
	"github.com/artpar/calloutlint/adapters/sqlite"
	"github.com/artpar/calloutlint/app"
	"github.com/artpar/calloutlint/config"
	"github.com/artpar/calloutlint/domain/isolation"
	"github.com/artpar/calloutlint/domain/ratelimit"
	"github.com/artpar/calloutlint/domain/rule"
	"github.com/artpar/calloutlint/domain/structure"
	"github.com/artpar/calloutlint/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB // nil unless the registry source is sqlite
	Metrics    *metrics.Collector
	Registry   *app.RegistryService
	Validation *app.ValidationService
	HTTPServer *http.Server

	holder        *config.Holder
	schemaWatcher *schemafile.Watcher
	promRegistry  *prometheus.Registry
	version       string
}

// Options provides optional configuration for application initialization.
type Options struct {
	// ConfigPath is a YAML config file. When it does not exist the
	// configuration comes from CALLOUTLINT_* variables and defaults.
	ConfigPath string

	// Version is reported by /version.
	Version string

	// LogOutput overrides the log destination (default: stderr).
	LogOutput io.Writer

	// LogLevel overrides logging.level when set.
	LogLevel string
}

// New creates and initializes the application: configuration, storage, the
// schema registry, validation and the HTTP server. Nothing listens until Run.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, holder, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging
	if opts.LogLevel != "" {
		logCfg.Level = opts.LogLevel
	}
	logger := SetupLogger(logCfg, opts.LogOutput)
	logger.Debug().Str("source", cfg.Registry.Source).Msg("initializing calloutlint")

	a := &App{
		Logger:  logger,
		Config:  cfg,
		holder:  holder,
		version: opts.Version,
	}
	if holder != nil {
		holder.SetLogger(logger)
		holder.OnChange(a.applyConfig)
	}

	if cfg.Metrics.Enabled {
		a.promRegistry = prometheus.NewRegistry()
		a.promRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(a.promRegistry)
		if holder != nil {
			holder.SetObserver(a.Metrics)
		}
	}

	if err := a.initRegistry(ctx); err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("init registry: %w", err)
	}

	iso, err := newIsolator(cfg.Isolation)
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("init isolation: %w", err)
	}
	a.Validation = app.NewValidationService(a.Registry, clock.Real{}, a.validationMetrics(), logger,
		app.ValidationServiceConfig{Isolator: iso})

	a.initHTTPServer()

	return a, nil
}

func loadConfig(path string) (*config.Config, *config.Holder, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			// The holder logger is replaced once logging is configured.
			holder, err := config.NewHolder(path, zerolog.Nop())
			if err != nil {
				return nil, nil, err
			}
			return holder.Get(), holder, nil
		}
	}
	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, nil, nil
}

// validationMetrics returns the collector as the port, or nil when metrics
// are disabled so services fall back to their no-op.
func (a *App) validationMetrics() ports.ValidationMetrics {
	if a.Metrics == nil {
		return nil
	}
	return a.Metrics
}

func (a *App) initRegistry(ctx context.Context) error {
	cfg := a.Config.Registry

	var (
		structures ports.StructureStore
		rules      ports.RuleStore
		writable   bool
	)

	switch cfg.Source {
	case config.SourceBuiltin:
		structures = memory.NewStructureStore(structure.Defaults()...)
		rules = memory.NewRuleStore(rule.Defaults()...)

	case config.SourceFile:
		f, err := schemafile.Load(cfg.Path)
		if err != nil {
			return err
		}
		st, rl := f.Domain()
		ms, mr := memory.NewStructureStore(st...), memory.NewRuleStore(rl...)
		structures, rules = ms, mr

		if cfg.Watch {
			w, err := schemafile.NewWatcher(cfg.Path, func(f *schemafile.File) error {
				st, rl := f.Domain()
				ms.Replace(st)
				mr.Replace(rl)
				reloadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return a.Registry.Reload(reloadCtx)
			}, a.Logger)
			if err != nil {
				return err
			}
			a.schemaWatcher = w
		}

	case config.SourceSQLite:
		if err := a.initDatabase(ctx); err != nil {
			return err
		}
		ss, rs := sqlite.NewStructureStore(a.DB), sqlite.NewRuleStore(a.DB)
		if err := seedDefaults(ctx, ss, rs); err != nil {
			return fmt.Errorf("seed defaults: %w", err)
		}
		structures, rules = ss, rs
		writable = true

	default:
		return fmt.Errorf("unknown registry source %q", cfg.Source)
	}

	a.Registry = app.NewRegistryService(structures, rules, clock.Real{}, a.validationMetrics(), a.Logger,
		app.RegistryServiceConfig{
			Writable:        writable,
			RefreshInterval: cfg.RefreshInterval,
		})
	if err := a.Registry.Start(ctx); err != nil {
		return err
	}

	if a.schemaWatcher != nil {
		if err := a.schemaWatcher.Start(); err != nil {
			return fmt.Errorf("watch schema file: %w", err)
		}
	}

	report := a.Registry.Report()
	a.Logger.Info().
		Str("source", cfg.Source).
		Int("structures", report.Structures).
		Int("rules", report.Rules).
		Int("skipped", len(report.Skipped)).
		Msg("schema registry loaded")
	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	db, err := sqlite.Open(a.Config.Database.DSN)
	if err != nil {
		return err
	}

	applied, err := db.Migrate(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	a.DB = db
	a.Logger.Info().
		Str("dsn", a.Config.Database.DSN).
		Strs("migrations", applied).
		Msg("database initialized")
	return nil
}

// seedDefaults stores the built-in structures and rules into an empty store.
func seedDefaults(ctx context.Context, structures ports.StructureStore, rules ports.RuleStore) error {
	existing, err := structures.List(ctx)
	if err != nil {
		return err
	}
	existingRules, err := rules.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 || len(existingRules) > 0 {
		return nil
	}

	for _, st := range structure.Defaults() {
		if err := structures.Create(ctx, st); err != nil {
			return err
		}
	}
	for _, r := range rule.Defaults() {
		if err := rules.Create(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func newIsolator(cfg config.IsolationConfig) (*isolation.Isolator, error) {
	return isolation.New(isolation.Options{
		Images:         cfg.Images,
		Links:          cfg.Links,
		Formatting:     cfg.Formatting,
		Headings:       cfg.Headings,
		Code:           cfg.Code,
		Frontmatter:    cfg.Frontmatter,
		Comments:       cfg.Comments,
		CustomPatterns: cfg.CustomPatterns,
	})
}

// applyConfig applies the reloadable parts of a new configuration.
func (a *App) applyConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	iso, err := newIsolator(cfg.Isolation)
	if err != nil {
		a.Logger.Error().Err(err).Msg("invalid isolation settings, keeping previous")
		return
	}
	if a.Validation != nil {
		a.Validation.SetIsolator(iso)
	}
}

func (a *App) initHTTPServer() {
	cfg := a.Config

	var pinger apihttp.Pinger
	if a.DB != nil {
		pinger = a.DB
	}

	routerCfg := apihttp.RouterConfig{
		Metrics:        a.Metrics,
		MetricsPath:    cfg.Metrics.Path,
		AdminToken:     hasher.NewAdminToken(cfg.Auth.AdminTokenHash, hasher.NewBcrypt(0)),
		RequestTimeout: cfg.Server.RequestTimeout,
		Version:        a.version,
	}
	if rl := rateLimitConfig(cfg.Server.RateLimit); rl.Enabled() {
		routerCfg.RateLimiter = apihttp.NewRateLimiter(rl, clock.Real{})
	}
	if a.promRegistry != nil {
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{})
	}

	router := apihttp.NewRouter(
		apihttp.NewValidationHandler(a.Validation, a.Logger),
		apihttp.NewRegistryHandler(a.Registry, a.Logger),
		apihttp.NewHealthHandler(pinger, func() bool { return a.Registry.Report() != nil }),
		a.Logger,
		routerCfg,
	)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	a.HTTPServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if !routerCfg.AdminToken.Configured() {
		a.Logger.Debug().Msg("no admin token configured, registry writes over http disabled")
	}
	a.Logger.Debug().Str("addr", addr).Msg("http server configured")
}

// Run starts the HTTP server and config hot reload, and blocks until SIGINT
// or SIGTERM.
func (a *App) Run() error {
	if a.holder != nil {
		if err := a.holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
		a.holder.WatchSignals()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application. Safe to call more than once.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}
	if a.schemaWatcher != nil {
		a.schemaWatcher.Stop()
	}
	if a.Registry != nil {
		a.Registry.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
		a.DB = nil
	}

	a.Logger.Debug().Msg("shutdown complete")
	return nil
}

func rateLimitConfig(c config.RateLimitConfig) ratelimit.Config {
	return ratelimit.Config{Limit: c.Limit, Period: c.Window, Burst: c.Burst}
}
