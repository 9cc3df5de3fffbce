package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/chanlog/internal/config"
)

// Exit codes for chanlog commands.
const (
	// ExitCodeSuccess indicates the command completed.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a runtime failure.
	ExitCodeError = 1
	// ExitCodeConfig indicates the configuration could not be loaded or is invalid.
	ExitCodeConfig = 2
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	echo       bool
	json       bool
	logLevel   string
}

// configError marks failures to load or validate configuration.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "chanlog",
		Short: "Record IRC channels as plain and HTML transcripts",
		Long: `chanlog joins IRC channels (or replays recorded traffic) and writes
one transcript per channel, rotated by date and partitioned by network,
channel and month.`,
		// Errors are reported by execute; usage is only noise at that point.
		SilenceUsage: true,
		Version:      config.Version,
	}
	cmd.SetVersionTemplate(`{{printf "chanlog version %s\n" .Version}}`)

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file (default $CHANLOG_CONFIG)")
	pf.BoolVar(&opts.echo, "echo", false, "mirror plain transcript lines to stdout")
	pf.BoolVar(&opts.json, "json", false, "echo records as JSON lines")
	pf.StringVar(&opts.logLevel, "log-level", "", "diagnostic log level (default $CHANLOG_LOG_LEVEL)")

	cmd.AddCommand(
		newRunCmd(opts),
		newReplayCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// execute runs the command line and returns the process exit code.
func execute(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return getExitCode(err)
	}
	return ExitCodeSuccess
}

func getExitCode(err error) int {
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}
	return ExitCodeError
}

// loadConfig resolves the environment and config file, applies the shared
// flags and adjust, if any, and validates the result for mode.
func loadConfig(opts *rootOptions, mode string, adjust func(*config.Config)) (config.Config, error) {
	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return config.Config{}, &configError{err}
	}
	cfg.Mode = mode
	if opts.echo || opts.json {
		cfg.Output.Echo = true
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if adjust != nil {
		adjust(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, &configError{fmt.Errorf("invalid configuration:\n%w", err)}
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of chanlog",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chanlog version %s\n", config.Version)
		},
	}
}
