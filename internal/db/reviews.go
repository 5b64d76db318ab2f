package db

import (
	"context"
	"fmt"

	"github.com/thesavant42/scorekeeper/internal/models"
)

// InsertReview stores a review and returns it with its id and timestamp set
func (db *DB) InsertReview(ctx context.Context, r models.Review) (models.Review, error) {
	createdAt := db.timestamp()
	result, err := db.conn.ExecContext(ctx, insertReview, r.ScoreCode, r.Rating, r.Comment, r.VideoType, r.VideoURL, createdAt)
	if err != nil {
		return r, fmt.Errorf("failed to insert review: %w", err)
	}
	if r.ID, err = result.LastInsertId(); err != nil {
		return r, fmt.Errorf("failed to read review id: %w", err)
	}
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

// Reviews returns every review for a code, newest first
func (db *DB) Reviews(ctx context.Context, code string) ([]models.Review, error) {
	rows, err := db.conn.QueryContext(ctx, selectReviews, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var (
			r         models.Review
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.ScoreCode, &r.Rating, &r.Comment, &r.VideoType, &r.VideoURL, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.CreatedAt = parseTime(createdAt)
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// LatestReview returns the newest review for a code or models.ErrNotFound
func (db *DB) LatestReview(ctx context.Context, code string) (models.Review, error) {
	reviews, err := db.Reviews(ctx, code)
	if err != nil {
		return models.Review{}, err
	}
	if len(reviews) == 0 {
		return models.Review{}, models.ErrNotFound
	}
	return reviews[0], nil
}
