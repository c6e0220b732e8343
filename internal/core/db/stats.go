package db

import (
	"context"
	"database/sql"
	"time"
)

// Stats represents database statistics
type Stats struct {
	TotalSessions    int
	TotalImages      int
	PendingDeletes   int
	OldestSession    time.Time
	NewestSession    time.Time
	AverageAge       float64
	LargestSessionID string
	LargestImages    int
}

// GetStats returns aggregate figures over live sessions
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var oldest, newest sql.NullInt64
	var avgAge sql.NullFloat64
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(image_count), 0), MIN(timestamp), MAX(timestamp), AVG(age)
		FROM sessions
		WHERE deleted_at IS NULL
	`).Scan(&stats.TotalSessions, &stats.TotalImages, &oldest, &newest, &avgAge)
	if err != nil {
		return nil, err
	}

	if oldest.Valid {
		stats.OldestSession = time.UnixMilli(oldest.Int64)
	}
	if newest.Valid {
		stats.NewestSession = time.UnixMilli(newest.Int64)
	}
	if avgAge.Valid {
		stats.AverageAge = avgAge.Float64
	}

	err = db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE deleted_at IS NOT NULL").Scan(&stats.PendingDeletes)
	if err != nil {
		return nil, err
	}

	if stats.TotalSessions > 0 {
		err = db.conn.QueryRowContext(ctx, `
			SELECT session_id, image_count
			FROM sessions
			WHERE deleted_at IS NULL
			ORDER BY image_count DESC, rowid ASC
			LIMIT 1
		`).Scan(&stats.LargestSessionID, &stats.LargestImages)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
	}

	return stats, nil
}
