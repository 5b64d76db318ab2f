// Package batch stores scraped code sets as timestamped text files and picks
// the "latest" one for the UI.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/thesavant42/scorekeeper/internal/codes"
)

// DefaultPrefix names gallery scrape batches
const DefaultPrefix = "jianshang_codes"

const stampLayout = "20060102_150405"

var ErrNoBatch = errors.New("no batch file found")

// Batch is one batch file and the codes read from it
type Batch struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	Codes     []string  `json:"codes"`
}

// Store reads and writes batch files in one directory
type Store struct {
	dir     string
	prefix  string
	pattern *regexp.Regexp
}

// NewStore creates a store for dir. An empty prefix means DefaultPrefix.
func NewStore(dir, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		dir:     dir,
		prefix:  prefix,
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `_(\d{8}_\d{6})\.txt$`),
	}
}

// Dir returns the directory batches are written to
func (s *Store) Dir() string {
	return s.dir
}

// Filename returns the file name a batch written at t gets
func (s *Store) Filename(t time.Time) string {
	return fmt.Sprintf("%s_%s.txt", s.prefix, t.Format(stampLayout))
}

// Write saves codes one per line to a new file named for now. It fails with
// an error wrapping os.ErrExist if that file is already there.
func (s *Store) Write(list []string, now time.Time) (*Batch, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create batch directory: %w", err)
	}

	name := s.Filename(now)
	path := filepath.Join(s.dir, name)

	var b strings.Builder
	for _, code := range list {
		b.WriteString(code)
		b.WriteByte('\n')
	}
	// Two runs in the same second must not replace each other's file
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch file: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write batch file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close batch file: %w", err)
	}

	return &Batch{
		Filename:  name,
		Path:      path,
		CreatedAt: now.Truncate(time.Second),
		Codes:     append([]string{}, list...),
	}, nil
}

type candidate struct {
	name string
	at   time.Time
}

// Latest returns the newest batch not dated today, falling back to today's
// newest only when no older batch exists. A batch written today therefore
// does not become "latest" until tomorrow.
func (s *Store) Latest(now time.Time) (*Batch, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoBatch
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list batch directory: %w", err)
	}

	var older, today *candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := s.pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		at, err := time.ParseInLocation(stampLayout, m[1], now.Location())
		if err != nil {
			continue
		}

		c := &candidate{name: e.Name(), at: at}
		if sameDay(at, now) {
			if today == nil || c.at.After(today.at) {
				today = c
			}
		} else if older == nil || c.at.After(older.at) {
			older = c
		}
	}

	pick := older
	if pick == nil {
		pick = today
	}
	if pick == nil {
		return nil, ErrNoBatch
	}
	return s.read(pick)
}

func (s *Store) read(c *candidate) (*Batch, error) {
	path := filepath.Join(s.dir, c.name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return &Batch{
		Filename:  c.name,
		Path:      path,
		CreatedAt: c.at,
		Codes:     codes.Extract(string(data)),
	}, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
