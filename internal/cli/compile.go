package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querystate/internal/compiler"
	"github.com/roach88/querystate/internal/ir"
	"github.com/roach88/querystate/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// RouteSummary describes the effective schema of one route.
type RouteSummary struct {
	Route      string   `json:"route"`
	Fields     []string `json:"fields"`
	SchemaHash string   `json:"schema_hash"`
	Warnings   []string `json:"warnings,omitempty"`
	Dropped    []string `json:"dropped,omitempty"`
}

// CompilationResult holds the compiled route tree and its effective schemas.
type CompilationResult struct {
	Options ir.Options         `json:"options"`
	Routes  []RouteSummary     `json:"routes"`
	Tree    *compiler.Document `json:"tree"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <routes>",
		Short: "Compile a route configuration",
		Long: `Compile a CUE or YAML route configuration and print the effective
schema of every route.

<routes> is a .yaml/.yml file, a .cue file, or a directory holding one
CUE package. Each route's schema is resolved the way the engine resolves
it at navigation time, so override warnings and dropped fields show up
here before they show up in a browser.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled tree as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadRoutes(path)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d %s file(s) from %s", loaded.FileCount, loaded.Format, path)

	result := &CompilationResult{
		Options: opts.engineOptions(loaded.Document.Options),
		Routes:  summarizeRoutes(loaded.Document),
		Tree:    loaded.Document,
	}

	if opts.Output != "" {
		if err := writeTreeToFile(loaded.Document, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// summarizeRoutes resolves every route address in the tree, depth first.
// Empty-path nodes share their parent's address and are summarized with it.
func summarizeRoutes(doc *compiler.Document) []RouteSummary {
	var out []RouteSummary
	seen := map[string]bool{}
	var walk func(prefix string, nodes []*ir.RouteNode)
	walk = func(prefix string, nodes []*ir.RouteNode) {
		for _, n := range nodes {
			route := prefix
			if n.Path != "" {
				route = strings.TrimPrefix(prefix+"/"+strings.Trim(n.Path, "/"), "/")
			}
			if chain := doc.Chain(route); chain != nil && !seen[route] {
				seen[route] = true
				out = append(out, summarize(chain))
			}
			walk(route, n.Children)
		}
	}
	walk("", doc.Routes)
	return out
}

func summarize(chain []*ir.RouteNode) RouteSummary {
	resolved := schema.Resolve(chain)
	s := RouteSummary{Route: ir.RoutePath(chain), Fields: []string{}}
	for _, f := range resolved.Effective.Fields {
		s.Fields = append(s.Fields, f.Name)
	}
	s.SchemaHash, _ = ir.SchemaHash(resolved.Effective)
	for _, w := range resolved.Warnings {
		s.Warnings = append(s.Warnings, w.String())
	}
	for _, issue := range resolved.Dropped {
		s.Dropped = append(s.Dropped, issue.Error())
	}
	return s
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d route(s)\n\n", len(result.Routes))
	for _, r := range result.Routes {
		fmt.Fprintf(w, "  %s: %d field(s) [%s] %s\n", r.Route, len(r.Fields), strings.Join(r.Fields, ", "), shortHash(r.SchemaHash))
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "    warning: %s\n", warning)
		}
		for _, dropped := range r.Dropped {
			fmt.Fprintf(w, "    dropped: %s\n", dropped)
		}
	}
	fmt.Fprintln(w)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote compiled routes to %s\n", outputFile)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// outputCompileError outputs a load or compile error.
func outputCompileError(formatter *OutputFormatter, err error) error {
	code, message := describeError(err)
	var details any
	if loadErr, ok := err.(*LoadError); ok && (loadErr.Pos.IsValid() || loadErr.Line > 0) {
		details = loadErr.Error()
	}
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// writeTreeToFile writes the compiled route tree as indented JSON.
func writeTreeToFile(doc *compiler.Document, filename string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling routes: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
