package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/remoteq/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Resolved in PersistentPreRunE.
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the remoteq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "remoteq",
		Short: "remoteq - typed queries over remote collections",
		Long: `Compile declarative query definitions into REST or OData query strings,
fetch them from a service, and keep a log of every fetch.

Settings resolve from flags, then REMOTEQ_* environment variables, then
remoteq.yaml in the working directory, then defaults.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (default ./remoteq.yaml)")

	// Config-backed flags; only explicitly set flags override the file and env.
	pf.String("base-url", "", "service base URL")
	pf.String("dialect", config.DefaultDialect, "query dialect (rest|odata)")
	pf.Duration("timeout", config.DefaultTimeout, "fetch timeout")
	pf.Bool("strict", false, "fail instead of warning when a dialect approximates the query")
	pf.String("db", "", "fetch log database path")
	pf.String("log-level", config.DefaultLogLevel, "log level (debug|info|warn|error)")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewDialectsCommand(opts))

	return cmd
}

// resolve validates global flags and loads the layered configuration.
func (opts *RootOptions) resolve(cmd *cobra.Command) error {
	if !isValidFormat(opts.Format) {
		format := opts.Format
		opts.Format = "text"
		return newFormatter(opts, cmd).FailWith(ExitCommandError, ErrCodeInvalidConfig,
			fmt.Sprintf("invalid format %q: must be one of %v", format, ValidFormats), nil)
	}

	formatter := newFormatter(opts, cmd)
	cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
	if err != nil {
		return formatter.FailWith(ExitCommandError, ErrCodeInvalidConfig, "failed to load config", err)
	}
	if err := cfg.Validate(); err != nil {
		return formatter.FailWith(ExitCommandError, ErrCodeInvalidConfig, "invalid configuration", err)
	}
	opts.Config = cfg

	level := cfg.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if cfg.File != "" {
		formatter.VerboseLog("Using config file %s", cfg.File)
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// Execute runs the CLI and returns the process exit code. Errors already
// reported through an OutputFormatter are not printed again; usage errors
// from cobra are printed and count as command errors.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return ExitCommandError
	}
	return exitErr.Code
}
