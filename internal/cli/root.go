// Package cli wires configuration, stores and services into the timetrack
// commands.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	// LogLevel overrides LOG_LEVEL when set.
	LogLevel string
}

// NewRootCommand creates the root command of the timetrack binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "timetrack",
		Short: "Time tracking service",
		Long: `timetrack keeps one running timer per user, records manual and batch
time entries, and produces summaries and CSV/PDF exports.

Configuration is read from the environment (PORT, STORE_DRIVER, MONGO_URI,
REDIS_ADDR, SQLITE_PATH, DIRECTORY_FILE, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (trace|debug|info|warn|error), overrides LOG_LEVEL")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}
