package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/crosscheck/internal/apiclient"
	"github.com/roach88/crosscheck/internal/harness"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid         bool     `json:"valid"`
	Suite         string   `json:"suite,omitempty"`
	Checks        int      `json:"checks"`
	Preconditions int      `json:"preconditions"`
	Errors        []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <suite.yaml>",
		Short: "Validate a suite file without running it",
		Long: `Parse a suite file and check it for unknown fields, missing required
fields, unknown check kinds, dangling depends_on references and unreadable
response schemas. No network or database access is made.`,
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
	formatter := newFormatter(opts, cmd)

	suite, err := harness.LoadSuite(path)
	if errors.Is(err, fs.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeSuite, fmt.Sprintf("suite file not found: %s", path), err)
	}
	if err != nil {
		return outputValidationErrors(formatter, ValidationResult{Errors: []string{err.Error()}})
	}

	result := ValidationResult{
		Valid:         true,
		Suite:         suite.Name,
		Checks:        len(suite.Checks),
		Preconditions: len(suite.Preconditions),
	}
	for _, c := range suite.Checks {
		if c.ResponseSchema == "" {
			continue
		}
		formatter.VerboseLog("Compiling schema %s for check %s", c.ResponseSchema, c.Name)
		if _, err := apiclient.LoadSchema(c.ResponseSchema); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("check %s: %v", c.Name, err))
		}
	}
	if len(result.Errors) > 0 {
		result.Valid = false
		return outputValidationErrors(formatter, result)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("✓ Suite %s is valid: %d check(s), %d precondition(s)",
		result.Suite, result.Checks, result.Preconditions))
}

// outputValidationErrors reports an invalid suite. Exit code 1.
func outputValidationErrors(f *OutputFormatter, result ValidationResult) error {
	msg := fmt.Sprintf("suite has %d error(s)", len(result.Errors))
	if f.Format == "json" {
		if err := f.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: ErrCodeSuite, Message: msg},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	fmt.Fprintf(f.Writer, "✗ Validation failed (%d error(s))\n", len(result.Errors))
	for _, e := range result.Errors {
		fmt.Fprintf(f.Writer, "  %s\n", e)
	}
	return NewExitError(ExitFailure, msg)
}
