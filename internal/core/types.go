// Package core implements the ClickHouse-to-Postgres configuration migration:
// table descriptors, field coercion, organization resolution, batched upserts,
// and the orchestrator that runs every table inside one transaction.
// This package has no CLI dependencies and can be driven by any frontend.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for destination database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Tx is the destination transaction handed to every writer call.
// Commit or rollback is decided once, by the orchestrator.
// Satisfied by pgx.Tx.
type Tx interface {
	DBTX
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxBeginner opens a destination transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// SourceRow is one record from a source table snapshot: column name to
// loosely-typed scalar (string, json.Number, bool, nil, or nested JSON value).
type SourceRow = map[string]any

// Source reads snapshot-consistent table data from the analytical store.
// Implemented by clickhouse.Client.
type Source interface {
	// Ping verifies the source is reachable. Called once before any
	// destination work starts; failure aborts the whole run.
	Ping(ctx context.Context) error

	// FetchAll returns the full latest-version snapshot of a table.
	FetchAll(ctx context.Context, table string) ([]SourceRow, error)
}

// BuildDeps carries the collaborators a table transform needs: the
// transaction (for live reference checks), the organization resolver,
// and the process time used for audit-timestamp fallback.
type BuildDeps struct {
	DB   DBTX
	Orgs OrgResolver
	Now  time.Time
}

// BuildFunc maps one source row to a destination record: an ordered tuple
// of values matching the table's Columns. A *SkipError return skips the row
// with a reason; any other error is fatal for the whole run.
type BuildFunc func(ctx context.Context, deps *BuildDeps, row SourceRow) ([]any, error)

// TableDefinition describes one migrated table: destination columns in
// insert order, the upsert conflict key(s), its position in dependency
// order, and the row transform. Defined once at init, immutable.
type TableDefinition struct {
	// Name is both the source and destination table name.
	Name string

	// Columns are the destination columns in the order Build emits values.
	Columns []string

	// ConflictKeys are the column(s) the upsert resolves conflicts on.
	// Every non-key column is overwritten on conflict.
	ConflictKeys []string

	// Order is the position in dependency order. Tables referencing other
	// migrated tables must carry a higher Order than their referents.
	Order int

	Build BuildFunc
}

// SkipError marks a row-local problem: the row is skipped with a warning
// and the run continues. It never escapes a table's processing loop.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "row skipped: " + e.Reason
}

// Skip returns a SkipError with the given reason.
func Skip(reason string) *SkipError {
	return &SkipError{Reason: reason}
}

// Skipf returns a SkipError with a formatted reason.
func Skipf(format string, args ...any) *SkipError {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// TableResult holds the per-table outcome of a migration pass.
type TableResult struct {
	Table   string
	Found   int
	Skipped int
	Written int64

	// SkipReasons counts skipped rows by reason.
	SkipReasons map[string]int
}

// RunResult aggregates a whole migration run.
type RunResult struct {
	Tables  []TableResult
	Found   int
	Skipped int
	Written int64
	DryRun  bool
}

// LogSummary emits the per-table and grand-total counts.
func (r *RunResult) LogSummary(log *slog.Logger) {
	for _, t := range r.Tables {
		log.Info("table migrated",
			"table", t.Table,
			"found", t.Found,
			"skipped", t.Skipped,
			"written", t.Written,
		)
	}
	log.Info("migration summary",
		"tables", len(r.Tables),
		"found", r.Found,
		"skipped", r.Skipped,
		"written", r.Written,
		"dry_run", r.DryRun,
	)
}
