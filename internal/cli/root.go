// Package cli provides the chmigrate command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pastorenue/expothesis/internal/config"
	"github.com/pastorenue/expothesis/internal/logging"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chmigrate",
		Short: "Migrate expothesis config tables from ClickHouse to Postgres",
		Long: `chmigrate reconciles the expothesis configuration tables (experiments,
user_groups, feature_flags, feature_gates, cuped_configs) from the
ClickHouse analytical store into the transactional Postgres store.

All tables are migrated inside one transaction: either every table's
writes persist, or none do. Re-running against unchanged source data
is a no-op. High-volume analytics tables are never migrated.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSchemaCmd())

	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	// Row-local skips are warnings; only fatal connectivity or
	// transactional failures reach here and flip the exit status.
	if err := NewRootCmd().Execute(); err != nil {
		slog.Error("fatal", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// loadConfig loads and validates env configuration, then configures the
// global logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}
