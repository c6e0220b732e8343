package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neilberkman/oralvis/internal/core/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sessionCounter = "session"

var (
	// ErrDuplicateSession is returned when inserting an identifier that already exists
	ErrDuplicateSession = errors.New("session already exists")
	// ErrSessionNotFound is returned by updates that match no live record
	ErrSessionNotFound = errors.New("session not found")
)

// SessionFilter narrows ListSessions and Watch results. The zero value matches everything.
type SessionFilter struct {
	NameContains string
	After        time.Time
	Before       time.Time
	Limit        int
}

// ListSessions returns live sessions in insertion order. A limit keeps the
// most recently inserted sessions.
func (db *DB) ListSessions(ctx context.Context, filter SessionFilter) ([]models.Session, error) {
	where := "deleted_at IS NULL"
	args := []any{}
	if filter.NameContains != "" {
		where += " AND name LIKE ?"
		args = append(args, "%"+filter.NameContains+"%")
	}
	if !filter.After.IsZero() {
		where += " AND timestamp >= ?"
		args = append(args, filter.After.UnixMilli())
	}
	if !filter.Before.IsZero() {
		where += " AND timestamp < ?"
		args = append(args, filter.Before.UnixMilli())
	}

	query := `
		SELECT session_id, name, age, timestamp, image_count
		FROM sessions
		WHERE ` + where + `
		ORDER BY rowid ASC`
	if filter.Limit > 0 {
		// Keep the newest rows, still returned oldest first
		query = `
		SELECT session_id, name, age, timestamp, image_count FROM (
			SELECT rowid AS seq, session_id, name, age, timestamp, image_count
			FROM sessions
			WHERE ` + where + `
			ORDER BY rowid DESC
			LIMIT ?
		)
		ORDER BY seq ASC`
		args = append(args, filter.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.SessionID, &s.Name, &s.Age, &s.Timestamp, &s.ImageCount); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// GetSession returns the live session with the given identifier, or nil if there is none
func (db *DB) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var s models.Session
	err := db.conn.QueryRowContext(ctx, `
		SELECT session_id, name, age, timestamp, image_count
		FROM sessions
		WHERE session_id = ? AND deleted_at IS NULL
	`, sessionID).Scan(&s.SessionID, &s.Name, &s.Age, &s.Timestamp, &s.ImageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// InsertSession adds a new record. Identifiers held by tombstoned rows are still taken.
func (db *DB) InsertSession(ctx context.Context, s models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sessions (session_id, name, age, timestamp, image_count)
		VALUES (?, ?, ?, ?, ?)
	`, s.SessionID, s.Name, s.Age, s.Timestamp, s.ImageCount)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateSession, s.SessionID)
		}
		return fmt.Errorf("insert session %s: %w", s.SessionID, err)
	}

	db.notify()
	return nil
}

// UpdateSession replaces every attribute of the record with the same identifier
func (db *DB) UpdateSession(ctx context.Context, s models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, `
		UPDATE sessions
		SET name = ?, age = ?, timestamp = ?, image_count = ?
		WHERE session_id = ? AND deleted_at IS NULL
	`, s.Name, s.Age, s.Timestamp, s.ImageCount, s.SessionID)
	if err != nil {
		return fmt.Errorf("update session %s: %w", s.SessionID, err)
	}

	return db.afterUpdate(res, s.SessionID)
}

// UpdateImageCount sets only the image count of a record
func (db *DB) UpdateImageCount(ctx context.Context, sessionID string, imageCount int) error {
	if imageCount < 0 {
		return fmt.Errorf("invalid image count %d", imageCount)
	}

	res, err := db.conn.ExecContext(ctx, `
		UPDATE sessions SET image_count = ?
		WHERE session_id = ? AND deleted_at IS NULL
	`, imageCount, sessionID)
	if err != nil {
		return fmt.Errorf("update image count for %s: %w", sessionID, err)
	}

	return db.afterUpdate(res, sessionID)
}

func (db *DB) afterUpdate(res sql.Result, sessionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	db.notify()
	return nil
}

// CountSessions returns the number of stored records, tombstoned ones included
func (db *DB) CountSessions(ctx context.Context) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}

// ReserveSessionID atomically takes the next identifier. The counter never
// falls behind the row count, and identifiers already present are skipped.
func (db *DB) ReserveSessionID(ctx context.Context) (string, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for {
		var value int64
		err := tx.QueryRowContext(ctx, `
			UPDATE counters
			SET value = MAX(value, (SELECT COUNT(*) FROM sessions)) + 1
			WHERE name = ?
			RETURNING value
		`, sessionCounter).Scan(&value)
		if err != nil {
			return "", fmt.Errorf("advance session counter: %w", err)
		}

		id := models.NextSessionID(value - 1)

		var taken int
		err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions WHERE session_id = ?", id).Scan(&taken)
		if err != nil {
			return "", fmt.Errorf("check session id %s: %w", id, err)
		}
		if taken == 0 {
			if err := tx.Commit(); err != nil {
				return "", fmt.Errorf("commit session counter: %w", err)
			}
			return id, nil
		}
	}
}

// MarkDeleted tombstones a record so it is hidden from reads until DeleteSession removes it
func (db *DB) MarkDeleted(ctx context.Context, sessionID string) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE sessions SET deleted_at = ?
		WHERE session_id = ? AND deleted_at IS NULL
	`, time.Now().UnixMilli(), sessionID)
	if err != nil {
		return fmt.Errorf("tombstone session %s: %w", sessionID, err)
	}

	return db.afterUpdate(res, sessionID)
}

// DeleteSession removes the record by identifier. Session files are untouched.
func (db *DB) DeleteSession(ctx context.Context, s models.Session) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", s.SessionID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", s.SessionID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		db.notify()
	}
	return nil
}

// ListTombstoned returns identifiers whose deletion has not been completed
func (db *DB) ListTombstoned(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT session_id FROM sessions
		WHERE deleted_at IS NOT NULL
		ORDER BY deleted_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return strings.Contains(err.Error(), "constraint failed")
}
