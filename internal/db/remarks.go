package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/thesavant42/scorekeeper/internal/models"
)

// GetRemark returns the remark for a code or models.ErrNotFound
func (db *DB) GetRemark(ctx context.Context, code string) (models.Remark, error) {
	r := models.Remark{ScoreCode: code}
	var updatedAt string
	err := db.conn.QueryRowContext(ctx, selectRemark, code).Scan(&r.Text, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, models.ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("failed to query remark: %w", err)
	}
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}

// SetRemark stores the remark for a code; blank text removes it
func (db *DB) SetRemark(ctx context.Context, code, text string) (models.Remark, error) {
	text = strings.TrimSpace(text)
	r := models.Remark{ScoreCode: code, Text: text}

	if text == "" {
		if _, err := db.conn.ExecContext(ctx, deleteRemark, code); err != nil {
			return r, fmt.Errorf("failed to delete remark: %w", err)
		}
		return r, nil
	}

	updatedAt := db.timestamp()
	if _, err := db.conn.ExecContext(ctx, upsertRemark, code, text, updatedAt); err != nil {
		return r, fmt.Errorf("failed to save remark: %w", err)
	}
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}

// SetRemarks applies one remark to many codes in a single transaction.
// Codes whose remark already equals text are reported as unchanged.
func (db *DB) SetRemarks(ctx context.Context, codes []string, text string) (models.RemarkBatchResult, error) {
	text = strings.TrimSpace(text)
	result := models.RemarkBatchResult{Updated: []models.Remark{}, Unchanged: []string{}}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	updatedAt := db.timestamp()
	for _, code := range codes {
		var current string
		err := tx.QueryRowContext(ctx, selectRemark, code).Scan(&current, new(string))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return result, fmt.Errorf("failed to query remark for %s: %w", code, err)
		}
		if current == text {
			result.Unchanged = append(result.Unchanged, code)
			continue
		}

		if text == "" {
			_, err = tx.ExecContext(ctx, deleteRemark, code)
		} else {
			_, err = tx.ExecContext(ctx, upsertRemark, code, text, updatedAt)
		}
		if err != nil {
			return result, fmt.Errorf("failed to save remark for %s: %w", code, err)
		}
		result.Updated = append(result.Updated, models.Remark{ScoreCode: code, Text: text, UpdatedAt: parseTime(updatedAt)})
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

func (db *DB) allRemarks(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT score_code, remark FROM remarks`)
	if err != nil {
		return nil, fmt.Errorf("failed to query remarks: %w", err)
	}
	defer rows.Close()

	remarks := make(map[string]string)
	for rows.Next() {
		var code, text string
		if err := rows.Scan(&code, &text); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		remarks[code] = text
	}
	return remarks, rows.Err()
}
