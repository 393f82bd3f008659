package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querystate/internal/engine"
	"github.com/roach88/querystate/internal/ir"
	"github.com/roach88/querystate/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Token    string // optional - one navigation only
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Cycles        int                 `json:"cycles"`
	Divergences   []engine.Divergence `json:"divergences"`
	Deterministic bool                `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <routes>",
		Short: "Replay the journal against a route configuration",
		Long: `Replay journaled navigations through a fresh engine and compare
every outcome, redirect target, schema hash and state with the journal.

Replaying against the configuration that produced the journal verifies
determinism. Replaying against a changed configuration lists every URL
whose behavior the change affects.

Exit codes:
  0 - Every replayed cycle matches the journal
  1 - Divergences detected
  2 - Command error (database not found, routes invalid, etc.)

Examples:
  querystate replay routes.yaml --db ./journal.db
  querystate replay ./routes --db ./journal.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Token, "token", "", "replay one navigation only")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadRoutes(path)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	doc := loaded.Document

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var recs []ir.CycleRecord
	if opts.Token != "" {
		recs, err = st.ReadToken(ctx, opts.Token)
	} else {
		recs, err = st.ReadCycles(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if len(recs) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, ReplayResult{Divergences: []engine.Divergence{}, Deterministic: true})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No cycles found in database.")
		return nil
	}

	e := engine.New(
		engine.WithOptions(opts.engineOptions(doc.Options)),
		engine.WithLogger(opts.logger(cmd.ErrOrStderr())),
	)
	defer e.Stop()

	divergences, err := engine.Replay(ctx, e, recs, doc.Chain)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}
	formatter.VerboseLog("Replayed %d cycle(s) from %s", len(recs), opts.Database)

	result := ReplayResult{
		Cycles:        len(recs),
		Divergences:   divergences,
		Deterministic: len(divergences) == 0,
	}
	if result.Divergences == nil {
		result.Divergences = []engine.Divergence{}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_REPLAY_DIVERGED",
			Message: fmt.Sprintf("%d divergence(s) detected", len(result.Divergences)),
		}
	}

	if err := encodeIndented(cmd.OutOrStdout(), response); err != nil {
		return err
	}
	if !result.Deterministic {
		return NewExitError(ExitFailure, fmt.Sprintf("%d divergence(s) detected", len(result.Divergences)))
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replayed %d journaled cycle(s)\n\n", result.Cycles)
	if result.Deterministic {
		fmt.Fprintln(w, "✓ No divergences")
		return nil
	}

	for _, d := range result.Divergences {
		fmt.Fprintf(w, "  %s\n", d.String())
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "✗ %d divergence(s) detected\n", len(result.Divergences))

	// Divergence = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("%d divergence(s) detected", len(result.Divergences)))
}
