package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite initializes the local SQLite database and creates the schemas
// for the farm toggles, colony settings and the event ledger.
func InitSQLite(dbPath string, maxOpenConns int) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	// Create tables
	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS colonists (
			colonist_id TEXT PRIMARY KEY,
			colony_id TEXT NOT NULL,
			name TEXT,
			faction TEXT NOT NULL,
			genes TEXT NOT NULL DEFAULT '',
			shouldFarmHemogen BOOLEAN NOT NULL DEFAULT 0,
			last_updated DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			last_updated DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			colony_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			tick INTEGER NOT NULL,
			game_day INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_colonists_colony_id ON colonists(colony_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_colony_id ON events(colony_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_target_id ON events(target_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_game_day ON events(game_day);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
