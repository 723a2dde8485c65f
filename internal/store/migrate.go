package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

var schemaV1 = []string{
	`
CREATE TABLE IF NOT EXISTS internships (
  id TEXT PRIMARY KEY,
  position INTEGER NOT NULL DEFAULT 0,
  company TEXT NOT NULL,
  role TEXT NOT NULL,
  category TEXT NOT NULL,
  locations TEXT NOT NULL DEFAULT '[]',
  application_link TEXT NOT NULL DEFAULT '',
  date_posted TEXT NOT NULL DEFAULT '',
  requires_citizenship BOOLEAN NOT NULL DEFAULT FALSE,
  no_sponsorship BOOLEAN NOT NULL DEFAULT FALSE,
  is_subsidiary BOOLEAN NOT NULL DEFAULT FALSE,
  is_freshman_friendly BOOLEAN NOT NULL DEFAULT FALSE,
  is_closed BOOLEAN NOT NULL DEFAULT FALSE,
  source TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TEXT NOT NULL,
  last_seen TEXT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_internships_active_created ON internships(is_active, created_at);`,
	`
CREATE TABLE IF NOT EXISTS scrape_runs (
  id TEXT PRIMARY KEY,
  status TEXT NOT NULL,
  started_at TEXT NOT NULL,
  completed_at TEXT,
  duration_ms BIGINT NOT NULL DEFAULT 0,
  internships_found INTEGER NOT NULL DEFAULT 0,
  sources TEXT NOT NULL DEFAULT '[]',
  error_message TEXT NOT NULL DEFAULT ''
);`,
	`CREATE INDEX IF NOT EXISTS idx_scrape_runs_status_started ON scrape_runs(status, started_at);`,
}

// Migrate brings the schema to the current version inside one transaction.
// sqlite tracks the version in PRAGMA user_version, postgres in schema_version.
func (d *DB) Migrate(ctx context.Context) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	v, err := d.version(ctx, tx)
	if err != nil {
		return err
	}
	if v >= schemaVersion {
		return tx.Commit()
	}

	// ---- Schema v1 ----
	for _, stmt := range schemaV1 {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	if err := d.setVersion(ctx, tx, schemaVersion); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) version(ctx context.Context, tx *sql.Tx) (int, error) {
	var v int
	if d.driver == DriverSQLite {
		err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v)
		return v, err
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);`); err != nil {
		return 0, err
	}
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version;`).Scan(&v)
	return v, err
}

func (d *DB) setVersion(ctx context.Context, tx *sql.Tx, v int) error {
	if d.driver == DriverSQLite {
		// PRAGMA does not take bind parameters
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, v))
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES ($1);`, v)
	return err
}
