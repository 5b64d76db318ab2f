package models

import "time"

// PoolFilter is the predicate used to build and refilter random pools.
// Nil fields are unconstrained; Favorite is a tri-state (nil = either).
type PoolFilter struct {
	MinCompletion *int  `json:"min_completion,omitempty"`
	MaxCompletion *int  `json:"max_completion,omitempty"`
	Favorite      *bool `json:"favorite,omitempty"`
}

// IsEmpty reports whether the filter has no constraints at all
func (f PoolFilter) IsEmpty() bool {
	return f.MinCompletion == nil && f.MaxCompletion == nil && f.Favorite == nil
}

// Matches evaluates the filter against a code's current state. A code with no
// record has no completion, so any completion bound rejects it, and it counts
// as not favorited.
func (f PoolFilter) Matches(s ScoreStatus) bool {
	if f.MinCompletion != nil || f.MaxCompletion != nil {
		if s.Completion == nil {
			return false
		}
		if f.MinCompletion != nil && *s.Completion < *f.MinCompletion {
			return false
		}
		if f.MaxCompletion != nil && *s.Completion > *f.MaxCompletion {
			return false
		}
	}
	if f.Favorite != nil && s.IsFavorite != *f.Favorite {
		return false
	}
	return true
}

// RandomPool is a named draw-without-replacement set of codes. OriginCodes is
// fixed at creation; Codes shrinks on draw and is rebuilt by filter or reset.
type RandomPool struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Filter      PoolFilter `json:"filter"`
	OriginCodes []string   `json:"origin_codes"`
	Codes       []string   `json:"codes"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PoolSummary is the list view of a pool
type PoolSummary struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Filter      PoolFilter `json:"filter"`
	Remaining   int        `json:"remaining"`
	OriginCount int        `json:"origin_count"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DrawResult is returned by a successful draw
type DrawResult struct {
	PoolID    int64  `json:"pool_id"`
	ScoreCode string `json:"score_code"`
	Remaining int    `json:"remaining"`
}
