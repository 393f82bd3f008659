package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/querystate/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Engine options. --debug enables diagnostic warnings, --compress
	// carries the query as one compressed parameter.
	Debug          bool
	Compress       bool
	CompressionKey string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the querystate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "querystate",
		Short: "querystate - URL query strings as typed, canonical state",
		Long: `Compile route state configurations, reconcile URLs against them,
and inspect the navigation journal they produce.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "log override warnings and corrections")
	cmd.PersistentFlags().BoolVar(&opts.Compress, "compress", false, "carry state as one compressed query parameter")
	cmd.PersistentFlags().StringVar(&opts.CompressionKey, "compression-key", "", "name of the compressed parameter (default \"q\")")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// engineOptions merges the global flags over a document's options. Flags
// only ever switch behavior on.
func (o *RootOptions) engineOptions(doc ir.Options) ir.Options {
	if o.Debug {
		doc.Debug = true
	}
	if o.Compress {
		doc.UseCompression = true
	}
	if o.CompressionKey != "" {
		doc.CompressionKey = o.CompressionKey
	}
	return doc
}

// logger writes engine logs to w. Without --verbose only warnings and
// errors are shown.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
