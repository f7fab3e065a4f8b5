package core

// fake_test.go provides in-memory stand-ins for the pgx interfaces and the
// source reader. The write path speaks pgx native interfaces, so tests fake
// DBTX directly instead of going through database/sql.

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// fakeRow satisfies pgx.Row. Scan copies vals into dest, or returns err.
type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, v := range r.vals {
		if i >= len(dest) {
			break
		}
		switch d := dest[i].(type) {
		case *pgtype.UUID:
			*d = v.(pgtype.UUID)
		case *string:
			*d = v.(string)
		case *int64:
			*d = v.(int64)
		default:
			return fmt.Errorf("fakeRow: unsupported scan target %T", dest[i])
		}
	}
	return nil
}

// execCall records one Exec invocation.
type execCall struct {
	sql  string
	args []any
}

// fakeDB satisfies DBTX. QueryRow dispatches on the SQL text via onQueryRow;
// Exec records calls and returns execErr if set.
type fakeDB struct {
	onQueryRow func(sql string, args []any) fakeRow
	execCalls  []execCall
	execErr    error
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	db.execCalls = append(db.execCalls, execCall{sql: sql, args: args})
	if db.execErr != nil {
		return pgconn.CommandTag{}, db.execErr
	}
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", countRows(sql))), nil
}

func (db *fakeDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("fakeDB: Query not implemented")
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	if db.onQueryRow == nil {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return db.onQueryRow(sql, args)
}

// countRows derives the number of VALUES tuples in a built upsert so the
// fake's CommandTag reports a realistic affected-row count.
func countRows(sql string) int {
	n := 0
	for i := 0; i+1 < len(sql); i++ {
		if sql[i] == '(' && sql[i+1] == '$' {
			n++
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

// fakeTx wraps fakeDB with commit/rollback tracking.
type fakeTx struct {
	fakeDB
	committed  bool
	rolledBack bool
	commitErr  error
}

func (tx *fakeTx) Commit(context.Context) error {
	if tx.commitErr != nil {
		return tx.commitErr
	}
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

// fakeBeginner hands out a single fakeTx.
type fakeBeginner struct {
	tx       *fakeTx
	beginErr error
}

func (b *fakeBeginner) Begin(context.Context) (Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	return b.tx, nil
}

// fakeSource serves canned snapshots per table.
type fakeSource struct {
	pingErr  error
	fetchErr error
	tables   map[string][]SourceRow
	fetched  []string
}

func (s *fakeSource) Ping(context.Context) error {
	return s.pingErr
}

func (s *fakeSource) FetchAll(_ context.Context, table string) ([]SourceRow, error) {
	s.fetched = append(s.fetched, table)
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.tables[table], nil
}

// fakeResolver resolves every reference to a fixed org id, or fails.
type fakeResolver struct {
	id  pgtype.UUID
	err error
}

func (r *fakeResolver) Resolve(context.Context, any) (pgtype.UUID, error) {
	if r.err != nil {
		return pgtype.UUID{}, r.err
	}
	return r.id, nil
}
