package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func at(day, hour int) time.Time {
	return time.Date(2025, 9, day, hour, 0, 0, 0, time.Local)
}

func TestWriteFormat(t *testing.T) {
	s := NewStore(t.TempDir(), "")
	b, err := s.Write([]string{"11111", "22222"}, time.Date(2025, 9, 2, 8, 30, 5, 0, time.Local))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if b.Filename != "jianshang_codes_20250902_083005.txt" {
		t.Errorf("Filename = %q", b.Filename)
	}
	data, err := os.ReadFile(b.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "11111\n22222\n" {
		t.Errorf("contents = %q", data)
	}
}

func TestWriteKeepsExistingBatch(t *testing.T) {
	s := NewStore(t.TempDir(), "")
	now := time.Date(2025, 9, 2, 8, 30, 5, 0, time.Local)
	first, err := s.Write([]string{"11111"}, now)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	_, err = s.Write([]string{"22222"}, now)
	if !errors.Is(err, os.ErrExist) {
		t.Errorf("second Write() error = %v, want os.ErrExist", err)
	}
	data, err := os.ReadFile(first.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "11111\n" {
		t.Errorf("contents = %q, want first batch kept", data)
	}
}

func TestLatestPolicy(t *testing.T) {
	now := at(10, 18)

	tests := []struct {
		name    string
		written []time.Time
		want    string
		wantErr error
	}{
		{
			name:    "none",
			wantErr: ErrNoBatch,
		},
		{
			name:    "only today falls back to newest today",
			written: []time.Time{at(10, 9), at(10, 12)},
			want:    "jianshang_codes_20250910_120000.txt",
		},
		{
			name:    "older beats today",
			written: []time.Time{at(8, 9), at(9, 9), at(10, 12)},
			want:    "jianshang_codes_20250909_090000.txt",
		},
		{
			name:    "newest older",
			written: []time.Time{at(9, 23), at(9, 1), at(3, 12)},
			want:    "jianshang_codes_20250909_230000.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(t.TempDir(), "")
			for i, w := range tt.written {
				if _, err := s.Write([]string{"1000" + string(rune('0'+i))}, w); err != nil {
					t.Fatal(err)
				}
			}

			got, err := s.Latest(now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Latest() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Latest() error = %v", err)
			}
			if got.Filename != tt.want {
				t.Errorf("Latest() = %q, want %q", got.Filename, tt.want)
			}
		})
	}
}

func TestLatestIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, "")

	for _, name := range []string{"notes.txt", "jianshang_codes_latest.txt", "other_20250901_000000.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("99999\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Latest(at(10, 0)); !errors.Is(err, ErrNoBatch) {
		t.Errorf("Latest() error = %v, want ErrNoBatch", err)
	}

	if _, err := s.Write([]string{"12345", "12345", "67890"}, at(1, 0)); err != nil {
		t.Fatal(err)
	}
	got, err := s.Latest(at(10, 0))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"12345", "67890"}, got.Codes); diff != "" {
		t.Errorf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestLatestMissingDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope"), "")
	if _, err := s.Latest(time.Now()); !errors.Is(err, ErrNoBatch) {
		t.Errorf("Latest() error = %v, want ErrNoBatch", err)
	}
}
