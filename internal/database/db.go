// Package database opens the client's SQLite file and keeps its schema
// current.
package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite handle.
type DB struct {
	*sql.DB
}

type migration struct {
	version string
	sql     string
}

// migrations run in order; each runs once.
var migrations = []migration{
	{
		version: "001_profiles",
		sql: `
			CREATE TABLE profiles (
				id           TEXT PRIMARY KEY,
				display_name TEXT NOT NULL,
				bio          TEXT NOT NULL DEFAULT '',
				avatar_url   TEXT NOT NULL DEFAULT '',
				teach_skills TEXT NOT NULL DEFAULT '[]',
				learn_skills TEXT NOT NULL DEFAULT '[]',
				updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
	{
		version: "002_session_history",
		sql: `
			CREATE TABLE session_history (
				topic      TEXT NOT NULL,
				profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
				partner    TEXT NOT NULL DEFAULT '',
				joined_at  DATETIME NOT NULL,
				PRIMARY KEY (topic, profile_id, joined_at)
			);
			CREATE INDEX idx_session_history_profile ON session_history(profile_id, joined_at DESC);
		`,
	},
}

// Open opens (or creates) the database at path and runs migrations. Use
// ":memory:" for a throwaway database.
func Open(path string) (*DB, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_foreign_keys=on"
	} else {
		dsn += "?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own in-memory database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DB{db}, nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.version).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", m.version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %s: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.version, err)
		}
	}
	return nil
}

// Versions lists the applied migrations in order.
func (db *DB) Versions() ([]string, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
