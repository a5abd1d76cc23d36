package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/crosscheck/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	BaseURL  string
	Endpoint string
	Golden   string // directory holding <suite>.golden snapshots
	Update   bool   // rewrite golden snapshots instead of comparing

	// SessionOptions are passed to harness.Open (for testing).
	SessionOptions []harness.Option
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <suite.yaml>",
		Short: "Run a suite of consistency checks",
		Long: `Authenticate, connect to the database, and run every check in a suite.

Exit codes:
  0 - All checks passed
  1 - One or more checks failed or errored, or the golden snapshot differs
  2 - Command error (bad config, suite file, or session setup)

Examples:
  crosscheck run suites/items.yaml
  crosscheck run suites/items.yaml --base-url http://localhost:8080 --format json
  crosscheck run suites/items.yaml --golden testdata/golden --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "API base URL (overrides target.base_url)")
	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "endpoint path (overrides target.endpoint)")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "compare the run against <dir>/<suite>.golden")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "write the golden snapshot instead of comparing (requires --golden)")

	return cmd
}

func runSuite(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Update && opts.Golden == "" {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "--update requires --golden", nil)
	}

	suite, err := harness.LoadSuite(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSuite, "failed to load suite", err)
	}
	formatter.VerboseLog("Loaded suite %s with %d check(s)", suite.Name, len(suite.Checks))

	overrides := map[string]any{}
	if opts.BaseURL != "" {
		overrides["target.base_url"] = opts.BaseURL
	}
	if opts.Endpoint != "" {
		overrides["target.endpoint"] = opts.Endpoint
	}
	cfg, err := loadConfig(opts.RootOptions, overrides)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	fallback := harness.Target{BaseURL: cfg.Target.BaseURL, Endpoint: cfg.Target.Endpoint}
	if suite.Target.BaseURL == "" && fallback.BaseURL == "" {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "no base URL: set target.base_url or the suite's target", nil)
	}

	logger := newLogger(opts.RootOptions, cfg, cmd)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	session, err := harness.Open(ctx, cfg, logger, opts.SessionOptions...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSetup, "setup failed", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	result := session.Run(ctx, suite, fallback)

	var goldenErr error
	if opts.Golden != "" {
		goldenPath, err := harness.CompareGolden(opts.Golden, result, opts.Update)
		switch {
		case err != nil:
			goldenErr = err
		case opts.Update:
			formatter.VerboseLog("Golden snapshot written to %s", goldenPath)
		default:
			formatter.VerboseLog("Golden snapshot matches %s", goldenPath)
		}
	}

	if opts.Format == "json" {
		return outputRunJSON(formatter, result, goldenErr)
	}
	return outputRunText(cmd.OutOrStdout(), result, goldenErr)
}

// runFailure returns the error describing why the run did not pass, or nil.
func runFailure(result *harness.Result, goldenErr error) (string, *ExitError) {
	if !result.Pass {
		preconditions := 0
		for _, pr := range result.Preconditions {
			if pr.Status != harness.StatusPass {
				preconditions++
			}
		}
		msg := fmt.Sprintf("%d check(s) failed, %d errored, %d precondition(s) failed",
			result.Failed, result.Errored, preconditions)
		return ErrCodeChecksFailed, NewExitError(ExitFailure, msg)
	}
	if goldenErr != nil {
		code := ErrCodeGoldenMismatch
		if !errors.Is(goldenErr, harness.ErrSnapshotMismatch) {
			code = ErrCodeConfig
		}
		return code, WrapExitError(ExitFailure, "golden comparison failed", goldenErr)
	}
	return "", nil
}

// outputRunJSON writes the result in the CLIResponse envelope.
func outputRunJSON(f *OutputFormatter, result *harness.Result, goldenErr error) error {
	resp := CLIResponse{Status: "ok", Data: result, RunID: result.RunID}

	code, exitErr := runFailure(result, goldenErr)
	if exitErr != nil {
		resp.Status = "error"
		resp.Error = &CLIError{Code: code, Message: exitErr.Error()}
	}
	if err := f.encode(resp); err != nil {
		return err
	}
	if exitErr != nil {
		return exitErr
	}
	return nil
}

// outputRunText writes one line per precondition and check, then a summary.
func outputRunText(w io.Writer, result *harness.Result, goldenErr error) error {
	fmt.Fprintf(w, "Suite: %s (run %s)\n", result.Suite, result.RunID)
	for _, p := range result.Preconditions {
		if p.Status == harness.StatusPass {
			fmt.Fprintf(w, "  precondition %s: ok\n", p.Name)
		} else {
			fmt.Fprintf(w, "  precondition %s: %s\n", p.Name, p.Error)
		}
	}

	for _, c := range result.Checks {
		fmt.Fprintf(w, "%s %s (%s)\n", statusMark(c.Status), c.Name, c.Kind)
		for _, e := range c.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d errored, %d skipped\n",
		result.Passed, result.Failed, result.Errored, result.Skipped)
	if goldenErr != nil {
		fmt.Fprintf(w, "Golden: %v (run with --update to regenerate)\n", goldenErr)
	}

	_, exitErr := runFailure(result, goldenErr)
	if exitErr != nil {
		return exitErr
	}
	fmt.Fprintln(w, "✓ All checks passed")
	return nil
}

func statusMark(s harness.Status) string {
	switch s {
	case harness.StatusPass:
		return "✓"
	case harness.StatusSkipped:
		return "-"
	default:
		return "✗"
	}
}
