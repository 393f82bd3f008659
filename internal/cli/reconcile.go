package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/querystate/internal/compiler"
	"github.com/roach88/querystate/internal/engine"
	"github.com/roach88/querystate/internal/guard"
	"github.com/roach88/querystate/internal/ir"
	"github.com/roach88/querystate/internal/store"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	Route        string // route address; defaults to each URL's path
	Database     string // optional journal
	MaxRedirects int
}

// ReconcileResult holds the cycles produced by a reconcile run.
type ReconcileResult struct {
	Cycles []ir.CycleRecord `json:"cycles"`
	URL    string           `json:"url"`
	State  ir.State         `json:"state"`
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile <routes> <url>...",
		Short: "Reconcile URLs against a route configuration",
		Long: `Navigate to each URL in turn, following corrective redirects, and
print every cycle with the canonical URL and state it settles on.

URLs share one engine, so later URLs see the state of earlier ones the
way a browser session would. With --db every cycle is journaled for
later inspection with trace and replay.

Exit codes:
  0 - All URLs reconciled
  1 - A navigation failed (redirect cycle, redirect quota, no route)
  2 - Command error (routes not found, database error, etc.)

Examples:
  querystate reconcile routes.yaml "/users?pageSize=abc"
  querystate reconcile routes.cue "/users?role=ADMIN" /users --compress
  querystate reconcile routes.yaml "/a?x=1" --route a --db ./journal.db`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context(), opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Route, "route", "", "route address (a/b/c); defaults to the URL path")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal cycles to this SQLite database")
	cmd.Flags().IntVar(&opts.MaxRedirects, "max-redirects", engine.DefaultMaxRedirects, "redirect quota per navigation")

	return cmd
}

// redirectQueue records navigation requests so the command can deliver
// them as follow-up events, the way a router would.
type redirectQueue struct {
	reqs []ir.NavigationRequest
}

func (q *redirectQueue) Navigate(_ context.Context, req ir.NavigationRequest) error {
	q.reqs = append(q.reqs, req)
	return nil
}

func (q *redirectQueue) take() []ir.NavigationRequest {
	reqs := q.reqs
	q.reqs = nil
	return reqs
}

// cycleCollector implements engine.Observer.
type cycleCollector struct {
	cycles []ir.CycleRecord
}

func (c *cycleCollector) ObserveCycle(rec ir.CycleRecord, _ time.Duration) {
	c.cycles = append(c.cycles, rec)
}

func (c *cycleCollector) ObserveGuard(guard.Mode, guard.Decision) {}

func runReconcile(ctx context.Context, opts *ReconcileOptions, path string, urls []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadRoutes(path)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	doc := loaded.Document

	nav := &redirectQueue{}
	collector := &cycleCollector{}
	engineOpts := []engine.EngineOption{
		engine.WithOptions(opts.engineOptions(doc.Options)),
		engine.WithNavigator(nav),
		engine.WithObserver(collector),
		engine.WithMaxRedirects(opts.MaxRedirects),
		engine.WithLogger(opts.logger(cmd.ErrOrStderr())),
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		last, err := st.LastSeq(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		engineOpts = append(engineOpts, engine.WithJournal(st), engine.WithClock(engine.NewClockAt(last)))
		formatter.VerboseLog("Journaling to %s after seq %d", opts.Database, last)
	}

	e := engine.New(engineOpts...)
	defer e.Stop()

	var runErr error
	for _, url := range urls {
		route := opts.Route
		if route == "" {
			route = ir.ParseLocation(url).Path
		}
		if runErr = navigateAndFollow(ctx, e, doc, nav, url, route); runErr != nil {
			break
		}
	}

	var rerr *engine.RuntimeError
	if runErr != nil && !errors.As(runErr, &rerr) {
		return WrapExitError(ExitCommandError, "reconcile failed", runErr)
	}

	state, _ := e.Current()
	result := ReconcileResult{Cycles: collector.cycles, URL: e.InFlight(), State: state}
	if result.Cycles == nil {
		result.Cycles = []ir.CycleRecord{}
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if rerr != nil {
			response.Status = "error"
			response.Error = &CLIError{Code: string(rerr.Code), Message: rerr.Message, Details: rerr.Details}
		}
		if err := encodeIndented(formatter.Writer, response); err != nil {
			return err
		}
	} else {
		outputReconcileText(formatter, result, rerr)
	}

	if rerr != nil {
		return WrapExitError(ExitFailure, "navigation failed", rerr)
	}
	return nil
}

// navigateAndFollow processes url and delivers every redirect it triggers.
// A redirect to the same path keeps the route address.
func navigateAndFollow(ctx context.Context, e *engine.Engine, doc *compiler.Document, nav *redirectQueue, url, route string) error {
	originPath := ir.ParseLocation(url).Path
	ev := engine.Event{Type: engine.EventNavigation, URL: url, Chain: doc.Chain(route)}
	if _, err := e.Process(ctx, ev); err != nil {
		return err
	}

	for {
		reqs := nav.take()
		if len(reqs) == 0 {
			return nil
		}
		for _, req := range reqs {
			next := route
			if p := ir.ParseLocation(req.Target).Path; p != originPath {
				next = p
			}
			ev := engine.Event{Type: engine.EventNavigation, URL: req.Target, Chain: doc.Chain(next), Cause: req.Token}
			if _, err := e.Process(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func outputReconcileText(formatter *OutputFormatter, result ReconcileResult, rerr *engine.RuntimeError) {
	w := formatter.Writer
	for _, rec := range result.Cycles {
		fmt.Fprintf(w, "[%d] %-10s %s", rec.Seq, rec.Outcome, rec.URL)
		if rec.Target != "" && rec.Target != rec.URL {
			fmt.Fprintf(w, " -> %s", rec.Target)
		}
		fmt.Fprintln(w)
		for _, c := range rec.Corrections {
			action := "rewritten"
			if c.Dropped {
				action = "dropped"
			}
			fmt.Fprintf(w, "      %s=%q %s: %s\n", c.Key, c.Raw, action, c.Reason)
		}
	}
	fmt.Fprintln(w)

	if rerr != nil {
		fmt.Fprintf(w, "✗ %s\n", rerr.Error())
		return
	}

	fmt.Fprintf(w, "✓ %s\n", result.URL)
	for _, k := range result.State.SortedKeys() {
		fmt.Fprintf(w, "  %s = %s\n", k, ir.Describe(result.State[k]))
	}
	if formatter.Verbose {
		fmt.Fprintf(formatter.GetErrWriter(), "%d cycle(s): %s\n", len(result.Cycles), strings.Join(outcomes(result.Cycles), ", "))
	}
}

func outcomes(recs []ir.CycleRecord) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = rec.Outcome
	}
	return out
}
