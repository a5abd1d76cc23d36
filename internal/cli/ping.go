package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/crosscheck/internal/harness"
)

// PingResult describes an established session.
type PingResult struct {
	RunID          string `json:"run_id"`
	TokenSource    string `json:"token_source"`
	TokenExpiresAt string `json:"token_expires_at,omitempty"`
	Driver         string `json:"driver"`
}

// PingOptions holds flags for the ping command.
type PingOptions struct {
	*RootOptions

	// SessionOptions are passed to harness.Open (for testing).
	SessionOptions []harness.Option
}

// NewPingCommand creates the ping command.
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Authenticate and connect without running checks",
		Long: `Obtain a token and open the database connection exactly as run does,
then close them. Use it to verify configuration before running a suite.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPing(opts, cmd)
		},
	}

	return cmd
}

func runPing(opts *PingOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, nil)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	logger := newLogger(opts.RootOptions, cfg, cmd)

	session, err := harness.Open(cmd.Context(), cfg, logger, opts.SessionOptions...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSetup, "setup failed", err)
	}
	defer session.Close()

	if err := session.Ping(cmd.Context()); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSetup, "database ping failed", err)
	}

	result := PingResult{
		RunID:       session.RunID,
		TokenSource: session.Token.Source,
		Driver:      session.Store.Driver(),
	}
	if !session.Token.ExpiresAt.IsZero() {
		result.TokenExpiresAt = session.Token.ExpiresAt.UTC().Format(time.RFC3339)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	line := "✓ Authenticated (" + result.TokenSource + ") and connected (" + result.Driver + ")"
	if result.TokenExpiresAt != "" {
		line += ", token expires " + result.TokenExpiresAt
	}
	return formatter.Success(line)
}
