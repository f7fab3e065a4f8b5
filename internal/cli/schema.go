package cli

import (
	"database/sql"
	"log/slog"

	"github.com/pastorenue/expothesis/internal/schema"
	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	var postgresDSN string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the destination Postgres schema",
		Long: `Create or inspect the destination tables the migration writes into
(organizations, experiments, user_groups, feature_flags, feature_gates,
cuped_configs). Useful when bootstrapping a fresh destination before the
backend has ever run its own migrations.`,
	}

	cmd.PersistentFlags().StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string (overrides DATABASE_URL)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending destination schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openSchemaDB(postgresDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := schema.Up(db); err != nil {
				return err
			}
			slog.Info("destination schema up to date")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show destination schema migration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openSchemaDB(postgresDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			return schema.Status(db)
		},
	}

	cmd.AddCommand(up, status)
	return cmd
}

func openSchemaDB(dsnOverride string) (*sql.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dsn := cfg.Database.URL
	if dsnOverride != "" {
		dsn = dsnOverride
	}
	return schema.Open(dsn)
}
