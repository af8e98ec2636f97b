// Package metrics provides Prometheus metrics collection for calloutlint.
package metrics

import (
	"strconv"
	"time"

	"github.com/artpar/calloutlint/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "calloutlint"

// Collector holds all Prometheus metrics for calloutlint.
type Collector struct {
	// Validation metrics
	ValidationsTotal   *prometheus.CounterVec
	ValidationDuration prometheus.Histogram
	ResultsTotal       *prometheus.CounterVec
	DetectionsTotal    *prometheus.CounterVec
	QuickFixesTotal    *prometheus.CounterVec

	// Registry metrics
	RuleCompileErrors    prometheus.Counter
	RegistryReloads      prometheus.Counter
	RegistryReloadErrors prometheus.Counter
	RegistryLastReload   prometheus.Gauge

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of validation passes by resolved structure",
			},
			[]string{"structure"},
		),
		ValidationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_duration_seconds",
				Help:      "Validation pass duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),
		ResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "results_total",
				Help:      "Total number of validation results",
			},
			[]string{"severity", "category"},
		),
		DetectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detections_total",
				Help:      "Total number of structure detections by outcome",
			},
			[]string{"outcome"},
		),
		QuickFixesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quickfixes_total",
				Help:      "Total number of quick-fix applications",
			},
			[]string{"kind", "outcome"},
		),

		RuleCompileErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_compile_errors_total",
				Help:      "Total number of rules skipped because their pattern failed to compile",
			},
		),
		RegistryReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_reloads_total",
				Help:      "Total number of successful registry reloads",
			},
		),
		RegistryReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_reload_errors_total",
				Help:      "Total number of failed registry reloads",
			},
		),
		RegistryLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_last_reload_timestamp",
				Help:      "Unix timestamp of last successful registry reload",
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
	}
}

// ObserveValidation records a completed pass. An empty structure id means
// none was resolved.
func (c *Collector) ObserveValidation(structureID string, d time.Duration) {
	if structureID == "" {
		structureID = "none"
	}
	c.ValidationsTotal.WithLabelValues(structureID).Inc()
	c.ValidationDuration.Observe(d.Seconds())
}

// ObserveResult counts one validation result.
func (c *Collector) ObserveResult(severity, category string) {
	c.ResultsTotal.WithLabelValues(severity, category).Inc()
}

// ObserveDetection counts a detection attempt.
func (c *Collector) ObserveDetection(matched bool) {
	outcome := "none"
	if matched {
		outcome = "matched"
	}
	c.DetectionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveQuickFix counts a quick-fix application; applied is false when the
// text came back unchanged.
func (c *Collector) ObserveQuickFix(kind string, applied bool) {
	outcome := "unchanged"
	if applied {
		outcome = "applied"
	}
	c.QuickFixesTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveRuleCompileError counts a skipped rule.
func (c *Collector) ObserveRuleCompileError() {
	c.RuleCompileErrors.Inc()
}

// ObserveRegistryReload records a reload attempt.
func (c *Collector) ObserveRegistryReload(err error) {
	if err != nil {
		c.RegistryReloadErrors.Inc()
		return
	}
	c.RegistryReloads.Inc()
	c.RegistryLastReload.SetToCurrentTime()
}

// ObserveRequest records one HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveConfigReload records a config reload attempt.
func (c *Collector) ObserveConfigReload(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
}

// Ensure interface compliance.
var _ ports.ValidationMetrics = (*Collector)(nil)
