package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// maxBindParams is PostgreSQL's per-statement bind parameter ceiling.
const maxBindParams = 65535

// DefaultBatchSize bounds rows per INSERT statement when no batch size is
// configured.
const DefaultBatchSize = 500

// Writer executes batched, conflict-resolving writes against the
// destination. On conflict every non-key column is overwritten with the
// incoming value, so the final row state always reflects the most recently
// migrated source state.
type Writer struct {
	// BatchSize is the maximum number of rows per INSERT statement.
	BatchSize int
}

// Upsert writes records into def's table through db and returns the number
// of rows written. An empty record set is a no-op.
func (w *Writer) Upsert(ctx context.Context, db DBTX, def TableDefinition, records [][]any) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	nCols := len(def.Columns)
	for _, rec := range records {
		if len(rec) != nCols {
			return 0, fmt.Errorf("upsert %s: record has %d values, table has %d columns",
				def.Name, len(rec), nCols)
		}
	}

	chunk := w.BatchSize
	if chunk <= 0 {
		chunk = DefaultBatchSize
	}
	if max := maxBindParams / nCols; chunk > max {
		chunk = max
	}

	var written int64
	for start := 0; start < len(records); start += chunk {
		end := start + chunk
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		args := make([]any, 0, len(batch)*nCols)
		for _, rec := range batch {
			args = append(args, rec...)
		}

		tag, err := db.Exec(ctx, buildUpsertSQL(def, len(batch)), args...)
		if err != nil {
			return written, fmt.Errorf("upsert %s: %w", def.Name, err)
		}
		written += tag.RowsAffected()
	}

	return written, nil
}

// buildUpsertSQL renders one multi-row INSERT ... ON CONFLICT statement for
// the given number of rows.
func buildUpsertSQL(def TableDefinition, rows int) string {
	var b strings.Builder

	b.WriteString("INSERT INTO ")
	b.WriteString(def.Name)
	b.WriteString(" (")
	b.WriteString(strings.Join(def.Columns, ", "))
	b.WriteString(")\nVALUES ")

	arg := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for c := 0; c < len(def.Columns); c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString("$")
			b.WriteString(strconv.Itoa(arg))
			arg++
		}
		b.WriteString(")")
	}

	b.WriteString("\nON CONFLICT (")
	b.WriteString(strings.Join(def.ConflictKeys, ", "))
	b.WriteString(") DO UPDATE SET\n")

	keys := make(map[string]bool, len(def.ConflictKeys))
	for _, k := range def.ConflictKeys {
		keys[k] = true
	}

	first := true
	for _, col := range def.Columns {
		if keys[col] {
			continue
		}
		if !first {
			b.WriteString(",\n")
		}
		first = false
		b.WriteString("    ")
		b.WriteString(col)
		b.WriteString(" = EXCLUDED.")
		b.WriteString(col)
	}

	return b.String()
}
