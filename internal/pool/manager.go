// Package pool manages named random-draw pools: persisted code sets that
// shrink on every draw and can be refiltered or reset to their origin.
package pool

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/scorekeeper/internal/codes"
	"github.com/thesavant42/scorekeeper/internal/models"
)

var (
	ErrEmptyName = errors.New("pool name is required")
	ErrPoolEmpty = errors.New("pool is empty")
)

// Store is the persistence the manager needs. *db.DB satisfies it.
type Store interface {
	InsertPool(ctx context.Context, name string, filter models.PoolFilter, codes []string) (*models.RandomPool, error)
	GetPool(ctx context.Context, id int64) (*models.RandomPool, error)
	ListPools(ctx context.Context) ([]models.RandomPool, error)
	DeletePool(ctx context.Context, id int64) error
	ReplacePoolCodes(ctx context.Context, id int64, filter models.PoolFilter, codes []string) (*models.RandomPool, error)
	ResetPool(ctx context.Context, id int64) (*models.RandomPool, error)
	DrawFromPool(ctx context.Context, id int64, pick func(codes []string) (int, error)) (string, int, error)
	MatchingCodes(ctx context.Context, filter models.PoolFilter) ([]string, error)
	FilterCodes(ctx context.Context, filter models.PoolFilter, candidates []string) ([]string, error)
}

// CreateRequest describes a new pool. When Codes is non-nil the pool is built
// from it (invalid and duplicate entries dropped) and Filter is only recorded.
type CreateRequest struct {
	Name   string            `json:"name"`
	Filter models.PoolFilter `json:"filter"`
	Codes  []string          `json:"score_codes,omitempty"`
}

// FilterRequest recomputes a pool's codes. Override replaces origin_codes as
// the candidate list when non-nil.
type FilterRequest struct {
	Filter   models.PoolFilter `json:"filter"`
	Override []string          `json:"score_codes,omitempty"`
}

// Manager implements the pool operations on top of a Store
type Manager struct {
	store  Store
	logger *log.Logger
	pick   func(n int) int
}

// NewManager creates a manager drawing uniformly at random
func NewManager(store Store, logger *log.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger.WithPrefix("pool"),
		pick:   rand.IntN,
	}
}

// Create builds and persists a pool; origin and working codes start equal
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*models.RandomPool, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	var (
		initial []string
		err     error
	)
	if req.Codes != nil {
		initial = codes.Dedupe(req.Codes)
	} else {
		initial, err = m.store.MatchingCodes(ctx, req.Filter)
		if err != nil {
			return nil, fmt.Errorf("failed to select codes for pool: %w", err)
		}
	}

	p, err := m.store.InsertPool(ctx, name, req.Filter, initial)
	if err != nil {
		return nil, err
	}
	m.logger.Info("pool created", "id", p.ID, "name", p.Name, "codes", len(p.Codes))
	return p, nil
}

// Get returns a pool or an error wrapping models.ErrNotFound
func (m *Manager) Get(ctx context.Context, id int64) (*models.RandomPool, error) {
	return m.store.GetPool(ctx, id)
}

// List returns pool summaries, newest first
func (m *Manager) List(ctx context.Context) ([]models.PoolSummary, error) {
	pools, err := m.store.ListPools(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.PoolSummary, 0, len(pools))
	for _, p := range pools {
		summaries = append(summaries, Summarize(p))
	}
	return summaries, nil
}

// Summarize reduces a pool to its list view
func Summarize(p models.RandomPool) models.PoolSummary {
	return models.PoolSummary{
		ID:          p.ID,
		Name:        p.Name,
		Filter:      p.Filter,
		Remaining:   len(p.Codes),
		OriginCount: len(p.OriginCodes),
		CreatedAt:   p.CreatedAt,
	}
}

// Draw removes and returns one code chosen uniformly at random.
// An empty pool returns ErrPoolEmpty and is left untouched.
func (m *Manager) Draw(ctx context.Context, id int64) (models.DrawResult, error) {
	code, remaining, err := m.store.DrawFromPool(ctx, id, func(list []string) (int, error) {
		if len(list) == 0 {
			return 0, ErrPoolEmpty
		}
		return m.pick(len(list)), nil
	})
	if err != nil {
		return models.DrawResult{PoolID: id, Remaining: remaining}, err
	}

	m.logger.Debug("drew code", "pool", id, "code", code, "remaining", remaining)
	return models.DrawResult{PoolID: id, ScoreCode: code, Remaining: remaining}, nil
}

// Filter recomputes the working codes from origin_codes (or the override)
// against the current score state. An empty filter with no override is a
// plain reset to origin_codes.
func (m *Manager) Filter(ctx context.Context, id int64, req FilterRequest) (*models.RandomPool, error) {
	if req.Filter.IsEmpty() && req.Override == nil {
		return m.store.ResetPool(ctx, id)
	}

	candidates := req.Override
	if candidates == nil {
		p, err := m.store.GetPool(ctx, id)
		if err != nil {
			return nil, err
		}
		candidates = p.OriginCodes
	} else {
		candidates = codes.Dedupe(candidates)
	}

	filtered, err := m.store.FilterCodes(ctx, req.Filter, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to filter pool %d: %w", id, err)
	}

	p, err := m.store.ReplacePoolCodes(ctx, id, req.Filter, filtered)
	if err != nil {
		return nil, err
	}
	m.logger.Info("pool filtered", "id", id, "candidates", len(candidates), "codes", len(filtered))
	return p, nil
}

// Reset restores the working codes to origin_codes
func (m *Manager) Reset(ctx context.Context, id int64) (*models.RandomPool, error) {
	return m.store.ResetPool(ctx, id)
}

// Delete removes a pool
func (m *Manager) Delete(ctx context.Context, id int64) error {
	if err := m.store.DeletePool(ctx, id); err != nil {
		return err
	}
	m.logger.Info("pool deleted", "id", id)
	return nil
}
