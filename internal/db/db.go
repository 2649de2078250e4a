// Package db provides the SQLite run ledger for stubkeeper
package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the database connection
type DB struct {
	*sqlx.DB
	path string
}

// DefaultDBPath returns the default ledger path
func DefaultDBPath() string {
	return filepath.Join(".stubkeeper", "ledger.db")
}

// Open opens or creates the ledger database
func Open(path string) (*DB, error) {
	if path == "" {
		path = DefaultDBPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{DB: db, path: path}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return d, nil
}

// Path returns the database file path
func (d *DB) Path() string {
	return d.path
}

// migrate runs database migrations
func (d *DB) migrate() error {
	migrations := []string{
		migrationRuns,
		migrationArchivalOutcomes,
		migrationRepairChanges,
		migrationIndexes,
	}

	for _, m := range migrations {
		if _, err := d.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

const migrationRuns = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    working_dir TEXT NOT NULL,
    dry_run BOOLEAN NOT NULL DEFAULT 0,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    total INTEGER NOT NULL DEFAULT 0,
    changed INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0
);
`

const migrationArchivalOutcomes = `
CREATE TABLE IF NOT EXISTS archival_outcomes (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    stub_name TEXT NOT NULL,
    stub_id TEXT NOT NULL,
    reason TEXT NOT NULL,
    archived BOOLEAN NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);
`

const migrationRepairChanges = `
CREATE TABLE IF NOT EXISTS repair_changes (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    stub_name TEXT NOT NULL,
    kind TEXT NOT NULL,
    detail TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_archival_outcomes_run_id ON archival_outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_archival_outcomes_stub_name ON archival_outcomes(stub_name);
CREATE INDEX IF NOT EXISTS idx_repair_changes_run_id ON repair_changes(run_id);
`
