package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/querystate/internal/compiler"
	"github.com/roach88/querystate/internal/engine"
	"github.com/roach88/querystate/internal/guard"
	"github.com/roach88/querystate/internal/httpnav"
	"github.com/roach88/querystate/internal/ir"
	"github.com/roach88/querystate/internal/metrics"
	"github.com/roach88/querystate/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr           string
	Database       string
	RedirectStatus int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve <routes>",
		Short: "Serve canonical state over HTTP",
		Long: `Serve every configured route over HTTP.

GET and HEAD requests with a non-canonical query are redirected to the
canonical URL. Canonical requests are answered with their state as JSON.
Prometheus metrics are served at /metrics. With --db every request is
journaled for trace and replay.

Examples:
  querystate serve routes.yaml --addr :8080
  querystate serve ./routes --db ./journal.db --debug`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal requests to this SQLite database")
	cmd.Flags().IntVar(&opts.RedirectStatus, "redirect-status", http.StatusFound, "status code for canonicalizing redirects")

	return cmd
}

func runServe(opts *ServeOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	loaded, err := LoadRoutes(path)
	if err != nil {
		return outputCompileError(formatter, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observers := []engine.Observer{}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		journal, err := newJournalObserver(ctx, st, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		observers = append(observers, journal)
	}

	registry := prometheus.NewRegistry()
	handler := NewServeHandler(loaded.Document, opts.engineOptions(loaded.Document.Options), ServeConfig{
		Registry:       registry,
		Observers:      observers,
		Logger:         logger,
		RedirectStatus: opts.RedirectStatus,
	})

	srv := &http.Server{Addr: opts.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("serving canonical state", "addr", opts.Addr, "routes", path)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", opts.Addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown failed", err)
	}
	return nil
}

// ServeConfig wires the serve handler's observability.
type ServeConfig struct {
	Registry       *prometheus.Registry
	Observers      []engine.Observer
	Logger         *slog.Logger
	RedirectStatus int
}

// NewServeHandler routes every request through the canonicalizing
// middleware and answers canonical requests with their state.
func NewServeHandler(doc *compiler.Document, opts ir.Options, cfg ServeConfig) http.Handler {
	collector := metrics.New(metrics.WithRegistry(cfg.Registry), metrics.WithSubsystem("http"))
	observer := fanout(append([]engine.Observer{collector}, cfg.Observers...))

	navOpts := []httpnav.Option{httpnav.WithObserver(observer)}
	if cfg.Logger != nil {
		navOpts = append(navOpts, httpnav.WithLogger(cfg.Logger))
	}
	if cfg.RedirectStatus != 0 {
		navOpts = append(navOpts, httpnav.WithRedirectStatus(cfg.RedirectStatus))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	r.With(httpnav.CanonicalizeTree(doc.Routes, opts, navOpts...)).HandleFunc("/*", serveState)
	return r
}

// stateResponse is the JSON body for a canonical request.
type stateResponse struct {
	URL         string          `json:"url"`
	Route       string          `json:"route"`
	SchemaHash  string          `json:"schema_hash"`
	State       ir.State        `json:"state"`
	Corrections []ir.Correction `json:"corrections,omitempty"`
}

func serveState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	nav, ok := httpnav.NavigationFrom(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(CLIError{Code: string(engine.ErrCodeNoRoute), Message: "no route for " + r.URL.Path})
		return
	}
	_ = json.NewEncoder(w).Encode(stateResponse{
		URL:         nav.URL,
		Route:       nav.Route,
		SchemaHash:  nav.SchemaHash,
		State:       nav.State,
		Corrections: nav.Corrections,
	})
}

// fanout delivers every observation to each observer in order.
type fanout []engine.Observer

func (f fanout) ObserveCycle(rec ir.CycleRecord, elapsed time.Duration) {
	for _, o := range f {
		o.ObserveCycle(rec, elapsed)
	}
}

func (f fanout) ObserveGuard(mode guard.Mode, d guard.Decision) {
	for _, o := range f {
		o.ObserveGuard(mode, d)
	}
}

// journalObserver stamps request cycles with sequence numbers that
// continue the journal and writes them to the store. Each request is its
// own navigation and gets a fresh token. Write failures are logged, as the
// engine does.
type journalObserver struct {
	ctx    context.Context
	store  *store.Store
	clock  *engine.Clock
	tokens engine.TokenGenerator
	logger *slog.Logger
}

func newJournalObserver(ctx context.Context, st *store.Store, logger *slog.Logger) (*journalObserver, error) {
	last, err := st.LastSeq(ctx)
	if err != nil {
		return nil, err
	}
	return &journalObserver{ctx: ctx, store: st, clock: engine.NewClockAt(last), tokens: engine.UUIDv7Generator{}, logger: logger}, nil
}

func (j *journalObserver) ObserveCycle(rec ir.CycleRecord, _ time.Duration) {
	rec.Seq = j.clock.Next()
	rec.Token = j.tokens.Generate()
	if err := j.store.WriteCycle(j.ctx, rec); err != nil {
		j.logger.Error("failed to journal request", "seq", rec.Seq, "url", rec.URL, "error", err)
	}
}

func (j *journalObserver) ObserveGuard(guard.Mode, guard.Decision) {}
