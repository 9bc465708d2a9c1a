// Package cli implements the checklistd command tree: the HTTP server and a
// set of record commands that operate on the configured backend directly.
package cli

import (
	"checklist/internal/config"
	"checklist/internal/logging"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Output     string // "json" | "text"

	// Getenv replaces os.Getenv when resolving configuration.
	Getenv func(string) string
}

// ValidOutputs defines the allowed record output formats.
var ValidOutputs = []string{"json", "text"}

// NewRootCommand creates the checklistd root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "checklistd",
		Short:         "checklistd serves prioritized todo and player lists",
		Long:          "checklistd stores todo and player records, orders them by priority and serves them over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !isValidOutput(opts.Output) {
				return NewExitError(ExitUsage, fmt.Sprintf("invalid output %q: must be one of %v", opts.Output, ValidOutputs))
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a TOML config file (default ./"+config.DefaultConfigFile+" when present)")
	pf.String(config.FlagLogLevel, "info", "log level (debug|info|warn|error)")
	pf.String(config.FlagFormat, "text", "log format (text|json|logfmt)")
	pf.StringVarP(&opts.Output, "output", "o", "json", "record output format (json|text)")
	pf.String(config.FlagDriver, config.DefaultDriver, "storage driver (memory|jsonfile|sqlite|postgres|objectstore)")
	pf.String(config.FlagDataDir, config.DefaultDataDir, "directory for the jsonfile driver")
	pf.String(config.FlagSQLitePath, config.DefaultSQLitePath, "database file for the sqlite driver")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newToggleCommand(opts))
	cmd.AddCommand(newPriorityCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	return cmd
}

func isValidOutput(output string) bool {
	for _, o := range ValidOutputs {
		if o == output {
			return true
		}
	}
	return false
}

// loadConfig resolves configuration for cmd and builds the process logger.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(config.LoadOptions{
		Path:   opts.ConfigPath,
		Getenv: opts.Getenv,
		Flags:  cmd.Flags(),
	})
	if err != nil {
		return nil, nil, WrapExitError(ExitUsage, "configuration", err)
	}
	logger := logging.NewFromConfig(errWriter(cmd), cfg.Log.Level, cfg.Log.Format, cfg.Log.Timestamps)
	return cfg, logger, nil
}

func errWriter(cmd *cobra.Command) io.Writer {
	if w := cmd.ErrOrStderr(); w != nil {
		return w
	}
	return os.Stderr
}
