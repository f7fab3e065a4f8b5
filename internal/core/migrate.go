package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TableAll selects every registered table, in dependency order.
const TableAll = "all"

// Migrator runs one migration: every selected table is read from the
// source, transformed row by row, and upserted into the destination inside
// a single enclosing transaction. Either every table's writes persist or
// none do.
//
// Execution is deliberately sequential: later tables' reference checks
// (cuped_configs → experiments) must observe earlier tables' writes, which
// only holds inside one transaction on one connection.
type Migrator struct {
	Source Source
	DB     TxBeginner
	Writer *Writer

	// DryRun fetches and transforms everything for accurate counts but
	// never calls the writer; the transaction is still opened, so live
	// reference queries work, and is always rolled back.
	DryRun bool

	// Now supplies the audit-timestamp fallback. Defaults to time.Now.
	Now func() time.Time

	// NewResolver builds the org resolver bound to the run's transaction.
	// Defaults to NewOrgResolver. Swappable for tests and alternative
	// fallback policies.
	NewResolver func(db DBTX, log *slog.Logger) OrgResolver

	Log *slog.Logger
}

// NewPoolBeginner adapts a pgx pool to the TxBeginner interface.
func NewPoolBeginner(pool *pgxpool.Pool) TxBeginner {
	return poolBeginner{pool}
}

type poolBeginner struct {
	pool *pgxpool.Pool
}

func (b poolBeginner) Begin(ctx context.Context) (Tx, error) {
	return b.pool.Begin(ctx)
}

// Run migrates the selected table, or every registered table when the
// selector is "all" or empty. It returns the aggregated counts; a non-nil
// error means the run was aborted and every write rolled back.
func (m *Migrator) Run(ctx context.Context, table string) (*RunResult, error) {
	log := m.Log
	if log == nil {
		log = slog.Default()
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	newResolver := m.NewResolver
	if newResolver == nil {
		newResolver = NewOrgResolver
	}
	writer := m.Writer
	if writer == nil {
		writer = &Writer{}
	}

	defs, err := selectTables(table)
	if err != nil {
		return nil, err
	}

	// Liveness probe before any destination work. A dead source must
	// abort with zero rows affected anywhere.
	if err := m.Source.Ping(ctx); err != nil {
		return nil, err
	}

	tx, err := m.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin destination transaction: %w", err)
	}
	// Rollback after a successful commit is a no-op error; every other
	// exit path relies on this to discard the run's writes.
	defer func() { _ = tx.Rollback(ctx) }()

	resolver := newResolver(tx, log)
	result := &RunResult{DryRun: m.DryRun}

	for _, def := range defs {
		tlog := log.With("table", def.Name)
		tres, err := m.runTable(ctx, tlog, tx, resolver, writer, def, now())
		if err != nil {
			return nil, fmt.Errorf("migrate %s: %w", def.Name, err)
		}
		result.Tables = append(result.Tables, *tres)
		result.Found += tres.Found
		result.Skipped += tres.Skipped
		result.Written += tres.Written
	}

	if m.DryRun {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			return nil, fmt.Errorf("rollback dry run: %w", err)
		}
		return result, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit migration: %w", err)
	}
	return result, nil
}

// runTable migrates one table inside the run's transaction.
func (m *Migrator) runTable(ctx context.Context, log *slog.Logger, tx Tx, resolver OrgResolver, writer *Writer, def TableDefinition, now time.Time) (*TableResult, error) {
	log.Info("fetching source rows")

	rows, err := m.Source.FetchAll(ctx, def.Name)
	if err != nil {
		return nil, err
	}

	res := &TableResult{
		Table:       def.Name,
		Found:       len(rows),
		SkipReasons: make(map[string]int),
	}

	deps := &BuildDeps{DB: tx, Orgs: resolver, Now: now}
	records := make([][]any, 0, len(rows))

	for _, row := range rows {
		rec, err := def.Build(ctx, deps, row)
		if err != nil {
			var skip *SkipError
			if errors.As(err, &skip) {
				res.Skipped++
				res.SkipReasons[skip.Reason]++
				log.Warn("row skipped", "reason", skip.Reason, "id", ToString(row["id"], ""))
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}

	if m.DryRun {
		log.Info("dry run, skipping write", "found", res.Found, "would_write", len(records))
		return res, nil
	}

	written, err := writer.Upsert(ctx, tx, def, records)
	if err != nil {
		return nil, err
	}
	res.Written = written

	log.Info("rows upserted", "found", res.Found, "skipped", res.Skipped, "written", res.Written)
	return res, nil
}

// selectTables resolves the table selector against the registry.
func selectTables(table string) ([]TableDefinition, error) {
	if table == "" || table == TableAll {
		defs := ByOrder()
		if len(defs) == 0 {
			return nil, errors.New("no tables registered")
		}
		return defs, nil
	}

	def, ok := Get(table)
	if !ok {
		return nil, fmt.Errorf("unknown table %q (known: %v)", table, Names())
	}
	return []TableDefinition{def}, nil
}
