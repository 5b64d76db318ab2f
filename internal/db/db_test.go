package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// newTestDB opens a fresh database in a temp dir with a clock that advances
// one second per call
func newTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := New(filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	clock := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	database.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	return database
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

var ctx = context.Background()
