package db

func (db *DB) initSchema() error {
	schema := `
	-- Finalized capture sessions
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY NOT NULL,
		name TEXT NOT NULL,
		age INTEGER NOT NULL DEFAULT 0,
		timestamp INTEGER NOT NULL,
		image_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_timestamp ON sessions(timestamp);

	-- Monotonic sequences (session identifiers)
	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY NOT NULL,
		value INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}
