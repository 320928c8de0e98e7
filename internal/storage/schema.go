package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// CreateSchema creates the export tables and indexes if they do not exist.
// Uses a transaction so schema creation succeeds or fails as a whole.
//
// Schema:
//   - runs: one row per export
//   - calls: weighted edges of a run, ordinal preserves artifact order
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"calls", createCallsTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// Open opens (creating if needed) an export database with foreign keys
// enabled and the schema in place.
func Open(dbPath string) (*sql.DB, error) {
	// Foreign keys are per connection; the DSN option applies them to every
	// connection the pool opens.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,                         -- UUID
    root TEXT NOT NULL,                          -- Analyzed project root
    created_at TIMESTAMP NOT NULL
)
`

const createCallsTable = `
CREATE TABLE IF NOT EXISTS calls (
    run_id TEXT NOT NULL,
    caller TEXT NOT NULL,                        -- e.g. pkg.mod.C.run
    callee TEXT NOT NULL,                        -- e.g. pkg.item.method
    count INTEGER NOT NULL CHECK (count > 0),
    ordinal INTEGER NOT NULL,                    -- Position in the artifact
    PRIMARY KEY (run_id, caller, callee),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
)
`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_calls_run_ordinal ON calls(run_id, ordinal)`,
	`CREATE INDEX IF NOT EXISTS idx_calls_callee ON calls(callee)`,
}
