package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so TEXT ordering equals chronological ordering.
// Rows written by older builds with CURRENT_TIMESTAMP ("2006-01-02 15:04:05")
// still sort correctly against it.
const timeLayout = "2006-01-02 15:04:05.000000000"

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes every read-modify-write (pool draws, toggles)
	// across the watcher goroutine and request handlers.
	conn.SetMaxOpenConns(1)

	tables := []struct{ name, ddl string }{
		{"scores", createScoresTable},
		{"remarks", createRemarksTable},
		{"reviews", createReviewsTable},
		{"random_pools", createPoolsTable},
	}
	for _, t := range tables {
		if _, err := conn.Exec(t.ddl); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create %s schema: %w", t.name, err)
		}
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.migrateScores(); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(createScoresIndex); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create scores index: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// SetClock replaces the time source used for created_at values
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

func (db *DB) timestamp() string {
	return db.now().UTC().Format(timeLayout)
}

// migrateScores adds columns missing from databases created by older builds
func (db *DB) migrateScores() error {
	rows, err := db.conn.Query(`PRAGMA table_info(scores)`)
	if err != nil {
		return fmt.Errorf("failed to inspect scores table: %w", err)
	}
	defer rows.Close()

	have := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("failed to scan column info: %w", err)
		}
		have[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read column info: %w", err)
	}
	rows.Close()

	for _, col := range scoreColumnMigrations {
		if have[col.name] {
			continue
		}
		if _, err := db.conn.Exec(col.ddl); err != nil {
			return fmt.Errorf("failed to add scores.%s: %w", col.name, err)
		}
	}
	return nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
