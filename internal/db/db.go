package db

import (
	"database/sql"
	"fmt"

	"elite-starscan/internal/logger"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection holding the journal archive.
type DB struct {
	sql  *sql.DB
	path string
}

// Open opens (or creates) the archive at path and runs migrations.
// ":memory:" gives a private in-memory archive.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Path returns the file the archive was opened from.
func (d *DB) Path() string { return d.path }

func (d *DB) migrate() error {
	version := 0
	// Missing table on a fresh file leaves version at 0.
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS journal_events (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				source         TEXT NOT NULL,
				timestamp      TEXT NOT NULL,
				event          TEXT NOT NULL,
				system_address INTEGER NOT NULL DEFAULT 0,
				system_name    TEXT NOT NULL DEFAULT '',
				raw            TEXT NOT NULL
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_raw ON journal_events(raw);
			CREATE INDEX IF NOT EXISTS idx_journal_system ON journal_events(system_address);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS journal_sources (
				path        TEXT PRIMARY KEY,
				read_offset INTEGER NOT NULL DEFAULT 0,
				updated_at  TEXT NOT NULL
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2")
	}
	return nil
}

// SchemaVersion returns the highest applied migration.
func (d *DB) SchemaVersion() int {
	v := 0
	d.sql.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v)
	return v
}
