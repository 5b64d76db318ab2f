package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backup snapshots the database into dir as <name>_YYYYMMDD_HHMMSS.db.
// VACUUM INTO reads through SQLite, so commits still in the -wal file are
// included. It returns "" without error when the database does not exist yet.
func Backup(dbPath, dir string, now time.Time) (string, error) {
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("failed to stat database: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	// Generate backup filename with timestamp
	baseName := strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath))
	backupPath := filepath.Join(dir, fmt.Sprintf("%s_%s.db", baseName, now.Format("20060102_150405")))

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(`VACUUM INTO ?`, backupPath); err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}

	return backupPath, nil
}
