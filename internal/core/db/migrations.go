package db

import (
	"fmt"
)

// runMigrations applies database migrations for existing databases
func (db *DB) runMigrations() error {
	// Migration 1: tombstone column so deletes can survive a failed directory purge
	if err := db.migration001AddDeletedAt(); err != nil {
		return fmt.Errorf("migration 001: %w", err)
	}

	// Migration 2: seed the session counter from rows created before it existed
	if err := db.migration002SeedSessionCounter(); err != nil {
		return fmt.Errorf("migration 002: %w", err)
	}

	return nil
}

// migration001AddDeletedAt adds sessions.deleted_at if it doesn't exist
func (db *DB) migration001AddDeletedAt() error {
	var hasDeletedAt bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('sessions')
		WHERE name='deleted_at'
	`).Scan(&hasDeletedAt)
	if err != nil {
		return err
	}

	if !hasDeletedAt {
		_, err = db.conn.Exec(`
			ALTER TABLE sessions ADD COLUMN deleted_at INTEGER;
			CREATE INDEX IF NOT EXISTS idx_sessions_deleted_at ON sessions(deleted_at);
		`)
		if err != nil {
			return fmt.Errorf("add deleted_at column: %w", err)
		}
	}

	return nil
}

// migration002SeedSessionCounter creates the session counter row once
func (db *DB) migration002SeedSessionCounter() error {
	_, err := db.conn.Exec(`
		INSERT INTO counters (name, value)
		SELECT ?, COUNT(*) FROM sessions
		WHERE true
		ON CONFLICT(name) DO NOTHING
	`, sessionCounter)
	return err
}
