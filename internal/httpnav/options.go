package httpnav

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/roach88/querystate/internal/engine"
)

type config struct {
	logger         *slog.Logger
	observer       engine.Observer
	redirectStatus int
}

// Option configures the middleware.
type Option func(*config)

// WithLogger sets the logger for corrections and guard failures.
// Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithObserver reports reconciliations and guard decisions, e.g. to a
// metrics.Collector.
func WithObserver(o engine.Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithRedirectStatus sets the status used for canonicalizing redirects.
// Default: http.StatusFound.
func WithRedirectStatus(code int) Option {
	return func(c *config) {
		c.redirectStatus = code
	}
}

func newConfig(opts []Option) config {
	c := config{redirectStatus: http.StatusFound}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}
