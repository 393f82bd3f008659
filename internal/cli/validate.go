package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querystate/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Routes int                        `json:"routes"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <routes>",
		Short: "Validate a route configuration",
		Long: `Validate a CUE or YAML route configuration.

Reports every malformed field specification (E101-E112), duplicate
sibling route (E120) and unusable compression key (E121). At navigation
time the engine silently drops malformed fields; validate makes them
visible.

Exit codes:
  0 - Configuration is valid
  1 - Validation errors found
  2 - Command error (file not found, CUE or YAML syntax, wrong shape)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	errs, routes, err := ValidateRoutesFile(path)
	if err != nil {
		code, message := describeError(err)
		_ = formatter.Error(code, message, nil)
		// Load errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	}
	formatter.VerboseLog("Validated %d route(s) in %s", routes, path)

	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs, routes)
	}
	return outputValidateSuccess(formatter, routes)
}

// ValidateRoutesFile loads and validates a route configuration. The error
// is non-nil only when the configuration could not be compiled.
func ValidateRoutesFile(path string) ([]compiler.ValidationError, int, error) {
	loaded, err := LoadRoutes(path)
	if err != nil {
		return nil, 0, err
	}
	return compiler.ValidateTree(loaded.Document), len(summarizeRoutes(loaded.Document)), nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, routes int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Routes: routes})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d route(s) valid\n", routes)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError, routes int) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Routes: routes, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := encodeIndented(formatter.Writer, response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n  %s: %s\n\n", err.Field, err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
