package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pastorenue/expothesis/internal/clickhouse"
	"github.com/pastorenue/expothesis/internal/config"
	"github.com/pastorenue/expothesis/internal/core"
	_ "github.com/pastorenue/expothesis/internal/core/tables" // register all tables
	"github.com/spf13/cobra"
)

// migrateOptions holds the flag overrides for the migrate command.
type migrateOptions struct {
	SourceURL      string
	SourceDatabase string
	PostgresDSN    string
	Table          string
	DryRun         bool
}

func newMigrateCmd() *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the ClickHouse to Postgres config migration",
		Long: `Fetch the latest-version snapshot of each config table from ClickHouse,
transform the rows, and upsert them into Postgres inside one transaction.

Rows with malformed keys or unresolvable references are skipped with a
warning; the run still exits 0. Connectivity or transaction failures roll
back every table and exit non-zero.`,
		Example: `  # Migrate everything
  chmigrate migrate

  # See what would be migrated, touching nothing
  chmigrate migrate --dry-run

  # Migrate a single table
  chmigrate migrate --table feature_flags`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.SourceURL, "source-url", "", "ClickHouse HTTP endpoint (overrides CLICKHOUSE_URL)")
	cmd.Flags().StringVar(&opts.SourceDatabase, "source-database", "", "ClickHouse database (overrides CLICKHOUSE_DATABASE)")
	cmd.Flags().StringVar(&opts.PostgresDSN, "postgres-dsn", "", "Postgres connection string (overrides DATABASE_URL)")
	cmd.Flags().StringVar(&opts.Table, "table", core.TableAll,
		fmt.Sprintf("table to migrate: %s, or %q", strings.Join(core.Names(), ", "), core.TableAll))
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "fetch and transform but write nothing")

	return cmd
}

func runMigrate(cmd *cobra.Command, opts *migrateOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log := slog.Default()
	if opts.DryRun {
		log.Info("dry run, nothing will be written to the destination")
	}

	source := clickhouse.New(cfg.Source.URL, cfg.Source.Database, cfg.Source.Timeout)

	pool, err := connectDestination(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator := &core.Migrator{
		Source: source,
		DB:     core.NewPoolBeginner(pool),
		Writer: &core.Writer{BatchSize: cfg.Migrate.BatchSize},
		DryRun: opts.DryRun,
		Log:    log,
	}

	result, err := migrator.Run(ctx, opts.Table)
	if err != nil {
		return err
	}

	result.LogSummary(log)
	if result.DryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Dry run complete: %d row(s) would be migrated across %d table(s)\n",
			result.Found-result.Skipped, len(result.Tables))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Migration complete: %d row(s) upserted across %d table(s)\n",
			result.Written, len(result.Tables))
	}
	return nil
}

// applyOverrides lets explicit CLI flags win over env configuration.
func applyOverrides(cfg *config.Config, opts *migrateOptions) {
	if opts.SourceURL != "" {
		cfg.Source.URL = opts.SourceURL
	}
	if opts.SourceDatabase != "" {
		cfg.Source.Database = opts.SourceDatabase
	}
	if opts.PostgresDSN != "" {
		cfg.Database.URL = opts.PostgresDSN
	}
}

// connectDestination opens and pings the Postgres pool.
func connectDestination(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
