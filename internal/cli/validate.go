package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhesis-ai/traceplay/internal/trace"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                    `json:"valid"`
	Errors []trace.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <trace-file>",
		Short: "Validate a trace file against the trace schema",
		Long: `Validate a JSON trace file against the trace-file schema.

Checks JSON well-formedness and span structure (IDs, timestamps, status
values, nested children) without running extraction. Violations are
reported with stable E2xx codes.

Exit codes:
  0 - File is valid
  1 - Schema violations found
  2 - Command error (file unreadable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	errs := trace.ValidateFile(path)
	if len(errs) == 0 {
		if formatter.Format == "json" {
			return formatter.JSON(ValidationResult{Valid: true})
		}
		fmt.Fprintln(formatter.Writer, "✓ Trace file valid")
		return nil
	}

	// An unreadable file is a command error, not a validation failure.
	if errs[0].Code == trace.ErrCodeUnreadable {
		_ = formatter.Error(errs[0].Code, errs[0].Message, nil)
		return NewExitError(ExitCommandError, errs[0].Error())
	}

	if formatter.Format == "json" {
		enc := json.NewEncoder(formatter.Writer)
		enc.SetIndent("", "  ")
		_ = enc.Encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		})
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		for _, e := range errs {
			if e.Pos != "" {
				fmt.Fprintf(formatter.Writer, "%s\n", e.Pos)
			}
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", e.Code, e.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
