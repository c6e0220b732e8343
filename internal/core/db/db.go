package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultPollInterval is how often Watch checks for commits made by other processes
const DefaultPollInterval = 500 * time.Millisecond

// DB wraps a SQLite database connection
type DB struct {
	conn         *sql.DB
	pollInterval time.Duration

	mu          sync.Mutex
	subscribers map[chan struct{}]struct{}
}

// New creates a new database connection and initializes schema
func New(dbPath string) (*DB, error) {
	// Ensure parent directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open with WAL mode for concurrent reads
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	conn.SetMaxOpenConns(1) // SQLite only supports one writer
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{
		conn:         conn,
		pollInterval: DefaultPollInterval,
		subscribers:  make(map[chan struct{}]struct{}),
	}

	// Initialize schema
	if err := db.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Run migrations for existing databases
	if err := db.runMigrations(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// SetPollInterval changes how often Watch looks for external commits
func (db *DB) SetPollInterval(d time.Duration) {
	if d > 0 {
		db.pollInterval = d
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// QueryRow executes a query that returns a single row
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// subscribe registers a change listener. The returned channel has a buffer of
// one so bursts of writes collapse into a single wakeup.
func (db *DB) subscribe() (chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	db.mu.Lock()
	db.subscribers[ch] = struct{}{}
	db.mu.Unlock()

	return ch, func() {
		db.mu.Lock()
		delete(db.subscribers, ch)
		db.mu.Unlock()
	}
}

// notify wakes every subscriber after a committed write
func (db *DB) notify() {
	db.mu.Lock()
	defer db.mu.Unlock()
	for ch := range db.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// dataVersion changes whenever another connection commits to the database
func (db *DB) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	err := db.conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}
