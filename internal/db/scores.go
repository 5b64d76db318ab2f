package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/thesavant42/scorekeeper/internal/models"
)

// currentScore returns the newest row for a code, or nil if there is none
func (db *DB) currentScore(ctx context.Context, q querier, code string) (*models.ScoreRecord, error) {
	var (
		rec       = models.ScoreRecord{ScoreCode: code}
		createdAt string
	)
	err := q.QueryRowContext(ctx, selectCurrentScore, code).Scan(&rec.ID, &rec.Completion, &rec.IsFavorite, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query current score for %s: %w", code, err)
	}
	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}

// CurrentScore returns the current record for a code, or nil if it has never been saved
func (db *DB) CurrentScore(ctx context.Context, code string) (*models.ScoreRecord, error) {
	return db.currentScore(ctx, db.conn, code)
}

// ScoreStatus returns the current completion, favorite flag, review flag and
// remark for a code. A code with no record comes back with Exists false.
func (db *DB) ScoreStatus(ctx context.Context, code string) (models.ScoreStatus, error) {
	status := models.ScoreStatus{ScoreCode: code}

	rec, err := db.currentScore(ctx, db.conn, code)
	if err != nil {
		return status, err
	}
	if rec != nil {
		completion := rec.Completion
		status.Exists = true
		status.Completion = &completion
		status.IsFavorite = rec.IsFavorite
	}

	if err := db.conn.QueryRowContext(ctx, selectHasReview, code).Scan(&status.HasReview); err != nil {
		return status, fmt.Errorf("failed to check review for %s: %w", code, err)
	}

	remark, err := db.GetRemark(ctx, code)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return status, err
	}
	status.Remark = remark.Text

	return status, nil
}

// SaveCompletion records a completion for a code. An existing code gets a
// fresh row that keeps its favorite flag, so the write becomes current.
func (db *DB) SaveCompletion(ctx context.Context, code string, completion int) (*models.ScoreRecord, error) {
	return db.writeScore(ctx, code, func(cur *models.ScoreRecord) (int, bool) {
		if cur == nil {
			return completion, false
		}
		return completion, cur.IsFavorite
	})
}

// ToggleFavorite flips the favorite flag of a code. A code with no record is
// created as a favorite with completion 0.
func (db *DB) ToggleFavorite(ctx context.Context, code string) (*models.ScoreRecord, error) {
	return db.writeScore(ctx, code, func(cur *models.ScoreRecord) (int, bool) {
		if cur == nil {
			return 0, true
		}
		return cur.Completion, !cur.IsFavorite
	})
}

// writeScore reads the current record and inserts its successor in one transaction
func (db *DB) writeScore(ctx context.Context, code string, next func(cur *models.ScoreRecord) (int, bool)) (*models.ScoreRecord, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cur, err := db.currentScore(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	completion, favorite := next(cur)
	createdAt := db.timestamp()

	result, err := tx.ExecContext(ctx, insertScore, code, completion, favorite, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert score for %s: %w", code, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read score id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.ScoreRecord{
		ID:         id,
		ScoreCode:  code,
		Completion: completion,
		IsFavorite: favorite,
		CreatedAt:  parseTime(createdAt),
	}, nil
}

// ListScores returns the current record of every code matching filter,
// newest first, with remarks attached
func (db *DB) ListScores(ctx context.Context, filter models.PoolFilter) ([]models.ScoreRecord, error) {
	return db.listScores(ctx, db.conn, filter)
}

func (db *DB) listScores(ctx context.Context, q querier, filter models.PoolFilter) ([]models.ScoreRecord, error) {
	rows, err := q.QueryContext(ctx, selectCurrentScores,
		filter.MinCompletion, filter.MinCompletion,
		filter.MaxCompletion, filter.MaxCompletion,
		filter.Favorite, filter.Favorite,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	var records []models.ScoreRecord
	for rows.Next() {
		var (
			r         models.ScoreRecord
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.ScoreCode, &r.Completion, &r.IsFavorite, &createdAt, &r.Remark); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.CreatedAt = parseTime(createdAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scores: %w", err)
	}

	return records, nil
}

// MatchingCodes returns the distinct current codes matching filter
func (db *DB) MatchingCodes(ctx context.Context, filter models.PoolFilter) ([]string, error) {
	records, err := db.ListScores(ctx, filter)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(records))
	for _, r := range records {
		codes = append(codes, r.ScoreCode)
	}
	return codes, nil
}

// ScoreHistory returns every row ever written for a code, newest first
func (db *DB) ScoreHistory(ctx context.Context, code string) ([]models.ScoreRecord, error) {
	rows, err := db.conn.QueryContext(ctx, selectScoreHistory, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query score history: %w", err)
	}
	defer rows.Close()

	var records []models.ScoreRecord
	for rows.Next() {
		var (
			r         models.ScoreRecord
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.ScoreCode, &r.Completion, &r.IsFavorite, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.CreatedAt = parseTime(createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Stats returns row and code counts for the scores table
func (db *DB) Stats(ctx context.Context) (models.ScoreStats, error) {
	var s models.ScoreStats
	err := db.conn.QueryRowContext(ctx, selectScoreStats).Scan(&s.TotalRecords, &s.UniqueSongs, &s.FavoriteSongs)
	if err != nil {
		return s, fmt.Errorf("failed to query stats: %w", err)
	}
	return s, nil
}

// statusIndex loads the current state of every known code keyed by code
func (db *DB) statusIndex(ctx context.Context) (map[string]models.ScoreStatus, error) {
	records, err := db.listScores(ctx, db.conn, models.PoolFilter{})
	if err != nil {
		return nil, err
	}

	index := make(map[string]models.ScoreStatus, len(records))
	for _, r := range records {
		completion := r.Completion
		index[r.ScoreCode] = models.ScoreStatus{
			ScoreCode:  r.ScoreCode,
			Exists:     true,
			Completion: &completion,
			IsFavorite: r.IsFavorite,
			Remark:     r.Remark,
		}
	}

	// Remarks and reviews may exist for codes that were never scored
	remarks, err := db.allRemarks(ctx)
	if err != nil {
		return nil, err
	}
	for code, text := range remarks {
		s := index[code]
		s.ScoreCode = code
		s.Remark = text
		index[code] = s
	}

	rows, err := db.conn.QueryContext(ctx, selectReviewedCodes)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviewed codes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		s := index[code]
		s.ScoreCode = code
		s.HasReview = true
		index[code] = s
	}
	return index, rows.Err()
}

func lookup(index map[string]models.ScoreStatus, code string) models.ScoreStatus {
	if s, ok := index[code]; ok {
		return s
	}
	return models.ScoreStatus{ScoreCode: code}
}

// BatchLookup returns the current status of each code in input order.
// Unknown codes come back with a nil completion and favorite false.
func (db *DB) BatchLookup(ctx context.Context, codes []string) ([]models.ScoreStatus, error) {
	index, err := db.statusIndex(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.ScoreStatus, 0, len(codes))
	for _, code := range codes {
		results = append(results, lookup(index, code))
	}
	return results, nil
}

// FilterCodes keeps the candidates whose current state matches filter,
// preserving candidate order
func (db *DB) FilterCodes(ctx context.Context, filter models.PoolFilter, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return []string{}, nil
	}

	index, err := db.statusIndex(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(candidates))
	for _, code := range candidates {
		if filter.Matches(lookup(index, code)) {
			out = append(out, code)
		}
	}
	return out, nil
}

// BatchQuery resolves a batch query. With no explicit codes it starts from
// every known code, newest first.
func (db *DB) BatchQuery(ctx context.Context, q models.BatchQuery) ([]models.ScoreStatus, error) {
	index, err := db.statusIndex(ctx)
	if err != nil {
		return nil, err
	}

	candidates := q.ScoreCodes
	if len(candidates) == 0 {
		candidates, err = db.MatchingCodes(ctx, models.PoolFilter{})
		if err != nil {
			return nil, err
		}
	}

	excluded := make(map[string]struct{}, len(q.ExcludeCodes))
	for _, code := range q.ExcludeCodes {
		excluded[code] = struct{}{}
	}

	include := strings.TrimSpace(q.IncludeRemark)
	exclude := strings.TrimSpace(q.ExcludeRemark)

	results := make([]models.ScoreStatus, 0, len(candidates))
	for _, code := range candidates {
		if _, skip := excluded[code]; skip {
			continue
		}
		s := lookup(index, code)
		if !q.Filter.Matches(s) {
			continue
		}
		if include != "" && !strings.Contains(s.Remark, include) {
			continue
		}
		if exclude != "" && strings.Contains(s.Remark, exclude) {
			continue
		}
		results = append(results, s)
	}
	return results, nil
}
