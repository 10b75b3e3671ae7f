package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/remoteq/internal/queryir"
)

// ValidationResult holds validation results for one definition.
type ValidationResult struct {
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Portable bool     `json:"portable"`
	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definition>...",
		Short: "Check query definitions for portability",
		Long: `Check query definitions without compiling them.

A definition is valid when every dialect can render it, and portable when
no dialect has to approximate it (REST has no OR and pages by index).
Warnings do not fail validation; errors do.

Exit codes:
  0 - All definitions valid
  1 - One or more definitions invalid
  2 - Command error (file not found, unparseable definition)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	results := make([]ValidationResult, 0, len(paths))
	invalid := 0
	for _, path := range paths {
		result, err := validateDefinition(path)
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to load definition", err)
		}
		formatter.VerboseLog("Validated %s: valid=%t portable=%t", path, result.Valid, result.Portable)
		if !result.Valid {
			invalid++
		}
		results = append(results, result)
	}

	if formatter.Format == "json" {
		if invalid > 0 {
			_ = formatter.encode(CLIResponse{
				Status: "error",
				Data:   results,
				Error: &CLIError{
					Code:    ErrCodeInvalidDefinition,
					Message: fmt.Sprintf("%d definition(s) invalid", invalid),
				},
			})
			return NewExitError(ExitFailure, fmt.Sprintf("%d definition(s) invalid", invalid))
		}
		return formatter.Success(results)
	}

	w := formatter.Writer
	for _, r := range results {
		switch {
		case !r.Valid:
			fmt.Fprintf(w, "✗ %s\n", r.Path)
		case !r.Portable:
			fmt.Fprintf(w, "✓ %s (not portable)\n", r.Path)
		default:
			fmt.Fprintf(w, "✓ %s\n", r.Path)
		}
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  error:   %s\n", e)
		}
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d definition(s) invalid", invalid))
	}
	return nil
}

// validateDefinition loads and checks one definition. A definition that
// parses but does not build is reported as invalid rather than as a
// command error.
func validateDefinition(path string) (ValidationResult, error) {
	result := ValidationResult{Path: path}

	loaded, err := LoadQuery(path)
	if err != nil {
		if ErrorCodeFor(err) != ErrCodeInvalidDefinition {
			return result, err
		}
		result.Errors = []string{err.Error()}
		return result, nil
	}

	v := queryir.Validate(loaded.AST)
	result.Valid = v.Valid()
	result.Portable = v.IsPortable
	result.Warnings = v.Warnings
	result.Errors = v.Errors
	return result, nil
}
