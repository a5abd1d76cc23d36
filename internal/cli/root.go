package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/crosscheck/internal/config"
	"github.com/roach88/crosscheck/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Connection overrides, applied on top of the config file and environment.
	DatabaseURL string
	Token       string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the crosscheck CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "crosscheck",
		Short: "crosscheck - API to database consistency checks",
		Long: `Run read, create, update and delete checks against an HTTP API and
compare what it returns with what the backing database holds.

A run authenticates once, pins one database connection, and executes the
checks of a suite file in order.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default ./"+config.DefaultConfigFile+")")
	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "db-url", "", "database URL (overrides database.url)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "bearer token (overrides auth.token)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewPingCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// loadConfig layers the global flags and extra over the config file and
// environment.
func loadConfig(opts *RootOptions, extra map[string]any) (config.Config, error) {
	overrides := map[string]any{}
	if opts.DatabaseURL != "" {
		overrides["database.url"] = opts.DatabaseURL
	}
	if opts.Token != "" {
		overrides["auth.token"] = opts.Token
	}
	for k, v := range extra {
		overrides[k] = v
	}

	return config.Load(config.LoadOptions{ConfigFile: opts.ConfigFile, FlagOverrides: overrides})
}

// newLogger builds the run logger. Logs always go to stderr so JSON output
// on stdout stays parseable.
func newLogger(opts *RootOptions, cfg config.Config, cmd *cobra.Command) *slog.Logger {
	level := logging.ParseLevel(cfg.Log.Level)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: logging.ParseFormat(cfg.Log.Format),
		Output: cmd.ErrOrStderr(),
	})
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
