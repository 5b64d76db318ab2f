package models

import "time"

// ScoreRecord is one row of completion data for a score code. Several rows may
// share a code; the one with the newest CreatedAt is the current record.
type ScoreRecord struct {
	ID         int64     `json:"id"`
	ScoreCode  string    `json:"score_code"`
	Completion int       `json:"completion"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
	Remark     string    `json:"remark,omitempty"`
}

// ScoreStatus is the current state of a code as seen by the UI. Completion is
// nil when no record exists.
type ScoreStatus struct {
	ScoreCode  string `json:"score_code"`
	Exists     bool   `json:"exists"`
	Completion *int   `json:"completion"`
	IsFavorite bool   `json:"is_favorite"`
	HasReview  bool   `json:"has_review"`
	Remark     string `json:"remark,omitempty"`
}

// ScoreStats summarizes the scores table
type ScoreStats struct {
	TotalRecords  int `json:"total_records"`
	UniqueSongs   int `json:"unique_songs"`
	FavoriteSongs int `json:"favorite_songs"`
}

// BatchQuery narrows a set of codes by exclusion, predicate and remark text.
// An empty ScoreCodes list means "all known codes".
type BatchQuery struct {
	ScoreCodes    []string   `json:"score_codes"`
	ExcludeCodes  []string   `json:"exclude_codes"`
	Filter        PoolFilter `json:"filter"`
	IncludeRemark string     `json:"include_remark"`
	ExcludeRemark string     `json:"exclude_remark"`
}

// Remark is the single free-text note attached to a code
type Remark struct {
	ScoreCode string    `json:"score_code"`
	Text      string    `json:"remark"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RemarkBatchResult reports which codes a batch remark update touched
type RemarkBatchResult struct {
	Updated   []Remark `json:"updates"`
	Unchanged []string `json:"skipped"`
}
