package core

import (
	"context"
	"strings"
	"testing"
)

func gatesDef() TableDefinition {
	return TableDefinition{
		Name:         "feature_gates",
		Columns:      []string{"id", "org_id", "name", "default_value"},
		ConflictKeys: []string{"id"},
	}
}

func TestBuildUpsertSQL(t *testing.T) {
	got := buildUpsertSQL(gatesDef(), 2)

	wants := []string{
		"INSERT INTO feature_gates (id, org_id, name, default_value)",
		"($1, $2, $3, $4), ($5, $6, $7, $8)",
		"ON CONFLICT (id) DO UPDATE SET",
		"org_id = EXCLUDED.org_id",
		"name = EXCLUDED.name",
		"default_value = EXCLUDED.default_value",
	}
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("statement missing %q:\n%s", want, got)
		}
	}

	// The conflict key must never be overwritten.
	if strings.Contains(got, "\n    id = EXCLUDED.id") {
		t.Errorf("conflict key id must not appear in the update set:\n%s", got)
	}
}

func TestBuildUpsertSQL_CompositeNaturalKey(t *testing.T) {
	def := TableDefinition{
		Name:         "cuped_configs",
		Columns:      []string{"experiment_id", "covariate_metric", "lookback_days"},
		ConflictKeys: []string{"experiment_id"},
	}
	got := buildUpsertSQL(def, 1)

	if !strings.Contains(got, "ON CONFLICT (experiment_id)") {
		t.Errorf("statement missing natural-key conflict clause:\n%s", got)
	}
	if strings.Contains(got, "experiment_id = EXCLUDED.experiment_id") {
		t.Errorf("natural key must not be overwritten:\n%s", got)
	}
}

func TestUpsert_EmptyIsNoop(t *testing.T) {
	db := &fakeDB{}
	w := &Writer{}

	n, err := w.Upsert(context.Background(), db, gatesDef(), nil)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Upsert() = %d, want 0", n)
	}
	if len(db.execCalls) != 0 {
		t.Errorf("Upsert() issued %d statements, want 0", len(db.execCalls))
	}
}

func TestUpsert_SingleBatch(t *testing.T) {
	db := &fakeDB{}
	w := &Writer{BatchSize: 500}

	records := [][]any{
		{"a", "o", "gate-a", true},
		{"b", "o", "gate-b", false},
	}
	n, err := w.Upsert(context.Background(), db, gatesDef(), records)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Upsert() = %d, want 2", n)
	}
	if len(db.execCalls) != 1 {
		t.Fatalf("Upsert() issued %d statements, want 1", len(db.execCalls))
	}
	if len(db.execCalls[0].args) != 8 {
		t.Errorf("statement carries %d args, want 8", len(db.execCalls[0].args))
	}
}

func TestUpsert_ChunksByBatchSize(t *testing.T) {
	db := &fakeDB{}
	w := &Writer{BatchSize: 2}

	records := [][]any{
		{"a", "o", "n", true},
		{"b", "o", "n", true},
		{"c", "o", "n", true},
		{"d", "o", "n", true},
		{"e", "o", "n", true},
	}
	n, err := w.Upsert(context.Background(), db, gatesDef(), records)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if n != 5 {
		t.Errorf("Upsert() = %d, want 5", n)
	}
	if len(db.execCalls) != 3 {
		t.Errorf("Upsert() issued %d statements, want 3", len(db.execCalls))
	}
}

func TestUpsert_RecordWidthMismatch(t *testing.T) {
	db := &fakeDB{}
	w := &Writer{}

	_, err := w.Upsert(context.Background(), db, gatesDef(), [][]any{{"only-id"}})
	if err == nil {
		t.Fatal("Upsert() expected error for record/column width mismatch")
	}
	if len(db.execCalls) != 0 {
		t.Error("no statement should be issued on width mismatch")
	}
}
