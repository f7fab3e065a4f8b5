// Package schema manages the destination PostgreSQL schema.
//
// The migrated tables (and the organizations table every org reference
// resolves against) are created by embedded goose migrations, so a fresh
// destination can be bootstrapped before running the data migration.
package schema

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open returns a database/sql handle for the destination, suitable for
// goose. Data migration itself uses the pgx native interface; this handle
// exists only for schema management.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open destination: %w", err)
	}
	return db, nil
}

// Up applies all pending schema migrations.
func Up(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply schema migrations: %w", err)
	}
	return nil
}

// Status prints the migration status of the destination schema.
func Status(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Status(db, "migrations"); err != nil {
		return fmt.Errorf("schema status: %w", err)
	}
	return nil
}
