// Package metrics exports navigation engine activity as Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/querystate/internal/guard"
	"github.com/roach88/querystate/internal/ir"
)

// Config configures the Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "querystate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "engine").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for cycle duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// DefaultConfig returns the default configuration.
// Reconciliation is in-memory work, so buckets start well below a
// millisecond.
func DefaultConfig() Config {
	return Config{
		Namespace: "querystate",
		Subsystem: "engine",
		Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector implements engine.Observer.
type Collector struct {
	cycles        *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	corrections   *prometheus.CounterVec
	failures      *prometheus.CounterVec
	guards        *prometheus.CounterVec
}

// New registers the navigation metrics and returns their Collector.
// Registering twice against one registry panics, as promauto does.
func New(opts ...Option) *Collector {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycles_total",
			Help:        "Total number of navigation cycles by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "outcome"}),

		cycleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycle_duration_seconds",
			Help:        "Navigation cycle processing duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"outcome"}),

		corrections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "corrections_total",
			Help:        "Total number of query keys corrected during reconciliation",
			ConstLabels: config.ConstLabels,
		}, []string{"reason", "dropped"}),

		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycle_failures_total",
			Help:        "Total number of failed cycles by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		guards: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "guard_decisions_total",
			Help:        "Total number of guard evaluations by result",
			ConstLabels: config.ConstLabels,
		}, []string{"mode", "allowed", "action"}),
	}
}

// ObserveCycle records one journaled cycle.
func (c *Collector) ObserveCycle(rec ir.CycleRecord, elapsed time.Duration) {
	c.cycles.WithLabelValues(rec.Route, rec.Outcome).Inc()
	c.cycleDuration.WithLabelValues(rec.Outcome).Observe(elapsed.Seconds())

	for _, corr := range rec.Corrections {
		c.corrections.WithLabelValues(corr.Reason, strconv.FormatBool(corr.Dropped)).Inc()
	}
	if rec.Outcome == ir.CycleFailed {
		c.failures.WithLabelValues(errorCode(rec.Error)).Inc()
	}
}

// ObserveGuard records one guard decision.
func (c *Collector) ObserveGuard(mode guard.Mode, d guard.Decision) {
	c.guards.WithLabelValues(mode.String(), strconv.FormatBool(d.Allowed), d.Action.String()).Inc()
}

// errorCode extracts the leading "CODE:" of a runtime error message.
func errorCode(msg string) string {
	for i := 0; i < len(msg); i++ {
		c := msg[i]
		if c == ':' && i > 0 {
			return msg[:i]
		}
		if !(c >= 'A' && c <= 'Z' || c == '_') {
			break
		}
	}
	return "unknown"
}
