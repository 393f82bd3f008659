package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querystate/internal/ir"
	"github.com/roach88/querystate/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Token    string // optional - one navigation only
	Outcome  string // optional - filter to one outcome
	Route    string // optional - filter to one route
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Token    string           `json:"token,omitempty"`
	Timeline []ir.CycleRecord `json:"timeline"`
	Stats    TraceStats       `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalCycles int            `json:"total_cycles"`
	Navigations int            `json:"navigations"`
	Corrections int            `json:"corrections"`
	Outcomes    map[string]int `json:"outcomes"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the navigation journal",
		Long: `Show journaled navigation cycles in sequence order.

Every cycle records the URL, the route it was reconciled against, its
outcome, any redirect target, and the corrections that made the URL
non-canonical. A navigation token ties a redirect to its follow-up.

Examples:
  querystate trace --db ./journal.db
  querystate trace --db ./journal.db --token 0192f0c4-...
  querystate trace --db ./journal.db --outcome redirect --format json
  querystate trace --db ./journal.db --route /users`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Token, "token", "", "navigation token to trace")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "filter to one outcome (reconciled, redirect, superseded, ...)")
	cmd.Flags().StringVar(&opts.Route, "route", "", "filter to one route (/a/b)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var filter store.And
	if opts.Token != "" {
		filter = append(filter, store.Equals{Column: "token", Value: opts.Token})
	}
	if opts.Outcome != "" {
		filter = append(filter, store.Equals{Column: "outcome", Value: opts.Outcome})
	}
	if opts.Route != "" {
		filter = append(filter, store.Equals{Column: "route", Value: opts.Route})
	}

	recs, err := st.Select(ctx, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if recs == nil {
		recs = []ir.CycleRecord{}
	}

	result := TraceResult{Token: opts.Token, Timeline: recs, Stats: traceStats(recs)}

	if opts.Format == "json" {
		return encodeIndented(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

func traceStats(recs []ir.CycleRecord) TraceStats {
	stats := TraceStats{TotalCycles: len(recs), Outcomes: map[string]int{}}
	tokens := map[string]bool{}
	for _, rec := range recs {
		stats.Outcomes[rec.Outcome]++
		stats.Corrections += len(rec.Corrections)
		if rec.Token != "" {
			tokens[rec.Token] = true
		}
	}
	stats.Navigations = len(tokens)
	return stats
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	if result.Token != "" {
		fmt.Fprintf(w, "Trace for navigation: %s\n\n", result.Token)
	}

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no cycles)")
	}
	for _, rec := range result.Timeline {
		formatCycle(w, rec, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Cycles: %d\n", result.Stats.TotalCycles)
	fmt.Fprintf(w, "  Navigations:  %d\n", result.Stats.Navigations)
	fmt.Fprintf(w, "  Corrections:  %d\n", result.Stats.Corrections)
	for _, outcome := range []string{ir.CycleReconciled, ir.CycleRedirect, ir.CycleSuperseded, ir.CycleCancelled, ir.CycleReplayed, ir.CycleFailed} {
		if n := result.Stats.Outcomes[outcome]; n > 0 {
			fmt.Fprintf(w, "  %-12s  %d\n", strings.ToUpper(outcome[:1])+outcome[1:]+":", n)
		}
	}
}

// formatCycle formats a single cycle for text output.
func formatCycle(w io.Writer, rec ir.CycleRecord, verbose bool) {
	fmt.Fprintf(w, "  [%d] %s %s %s", rec.Seq, truncateID(rec.Token), strings.ToUpper(rec.Outcome), rec.URL)
	if rec.Target != "" && rec.Target != rec.URL {
		fmt.Fprintf(w, " -> %s", rec.Target)
	}
	if rec.Reason != "" && rec.Reason != ir.ReasonRedirect {
		fmt.Fprintf(w, " (%s)", rec.Reason)
	}
	fmt.Fprintln(w)

	if rec.Error != "" {
		fmt.Fprintf(w, "       Error: %s\n", rec.Error)
	}
	if !verbose {
		return
	}
	if rec.Route != "" {
		fmt.Fprintf(w, "       Route: %s\n", rec.Route)
	}
	for _, c := range rec.Corrections {
		fmt.Fprintf(w, "       %s=%q: %s\n", c.Key, c.Raw, c.Reason)
	}
	if rec.State != nil {
		fmt.Fprintf(w, "       State: %s\n", formatState(rec.State))
	}
}

// formatState renders a state with sorted keys for deterministic output.
func formatState(s ir.State) string {
	parts := make([]string, 0, len(s))
	for _, k := range s.SortedKeys() {
		parts = append(parts, fmt.Sprintf("%s=%s", k, ir.Describe(s[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// truncateID truncates a long token for display.
func truncateID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
