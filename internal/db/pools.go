package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/thesavant42/scorekeeper/internal/models"
)

// codeList stores an ordered []string as a JSON array column
type codeList []string

func (c codeList) Value() (driver.Value, error) {
	if c == nil {
		c = codeList{}
	}
	b, err := json.Marshal([]string(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *codeList) Scan(src any) error {
	raw, err := columnBytes(src)
	if err != nil {
		return err
	}
	list := []string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &list); err != nil {
			return fmt.Errorf("failed to decode code list: %w", err)
		}
	}
	*c = list
	return nil
}

// filterColumn stores a models.PoolFilter as a JSON object column
type filterColumn models.PoolFilter

func (f filterColumn) Value() (driver.Value, error) {
	b, err := json.Marshal(models.PoolFilter(f))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *filterColumn) Scan(src any) error {
	raw, err := columnBytes(src)
	if err != nil {
		return err
	}
	var filter models.PoolFilter
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &filter); err != nil {
			return fmt.Errorf("failed to decode pool filter: %w", err)
		}
	}
	*f = filterColumn(filter)
	return nil
}

func columnBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", src)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPool(row rowScanner) (*models.RandomPool, error) {
	var (
		p         models.RandomPool
		filter    filterColumn
		origin    codeList
		codes     codeList
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &filter, &origin, &codes, &createdAt); err != nil {
		return nil, err
	}
	p.Filter = models.PoolFilter(filter)
	p.OriginCodes = origin
	p.Codes = codes
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func (db *DB) getPool(ctx context.Context, q querier, id int64) (*models.RandomPool, error) {
	p, err := scanPool(q.QueryRowContext(ctx, selectPool, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pool %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pool %d: %w", id, err)
	}
	return p, nil
}

// InsertPool creates a pool whose origin and working codes are both codes
func (db *DB) InsertPool(ctx context.Context, name string, filter models.PoolFilter, codes []string) (*models.RandomPool, error) {
	createdAt := db.timestamp()
	result, err := db.conn.ExecContext(ctx, insertPool, name, filterColumn(filter), codeList(codes), codeList(codes), createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pool: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read pool id: %w", err)
	}
	return db.GetPool(ctx, id)
}

// GetPool returns a pool by id or an error wrapping models.ErrNotFound
func (db *DB) GetPool(ctx context.Context, id int64) (*models.RandomPool, error) {
	return db.getPool(ctx, db.conn, id)
}

// ListPools returns every pool, newest first
func (db *DB) ListPools(ctx context.Context) ([]models.RandomPool, error) {
	rows, err := db.conn.QueryContext(ctx, selectPools)
	if err != nil {
		return nil, fmt.Errorf("failed to query pools: %w", err)
	}
	defer rows.Close()

	var pools []models.RandomPool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pool: %w", err)
		}
		pools = append(pools, *p)
	}
	return pools, rows.Err()
}

// DeletePool removes a pool
func (db *DB) DeletePool(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, deletePool, id)
	if err != nil {
		return fmt.Errorf("failed to delete pool: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("pool %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// ReplacePoolCodes overwrites the working codes and active filter of a pool.
// origin_codes is never touched.
func (db *DB) ReplacePoolCodes(ctx context.Context, id int64, filter models.PoolFilter, codes []string) (*models.RandomPool, error) {
	result, err := db.conn.ExecContext(ctx, updatePoolFilterAndCodes, filterColumn(filter), codeList(codes), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update pool: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("pool %d: %w", id, models.ErrNotFound)
	}
	return db.GetPool(ctx, id)
}

// ResetPool restores the working codes to the origin snapshot
func (db *DB) ResetPool(ctx context.Context, id int64) (*models.RandomPool, error) {
	result, err := db.conn.ExecContext(ctx, resetPoolCodes, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reset pool: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("pool %d: %w", id, models.ErrNotFound)
	}
	return db.GetPool(ctx, id)
}

// DrawFromPool removes one code chosen by pick from the pool's working set
// and returns it with the number left. pick sees the current codes and
// returns an index or an error (which aborts without writing). The read and
// the write happen in one transaction so concurrent draws never lose updates.
func (db *DB) DrawFromPool(ctx context.Context, id int64, pick func(codes []string) (int, error)) (string, int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := db.getPool(ctx, tx, id)
	if err != nil {
		return "", 0, err
	}

	i, err := pick(p.Codes)
	if err != nil {
		return "", len(p.Codes), err
	}
	if i < 0 || i >= len(p.Codes) {
		return "", len(p.Codes), fmt.Errorf("pick index %d out of range [0,%d)", i, len(p.Codes))
	}

	drawn := p.Codes[i]
	// Swap-remove: order of the remaining codes is not significant
	remaining := append(codeList{}, p.Codes...)
	remaining[i] = remaining[len(remaining)-1]
	remaining = remaining[:len(remaining)-1]

	if _, err := tx.ExecContext(ctx, updatePoolCodes, remaining, id); err != nil {
		return "", 0, fmt.Errorf("failed to update pool codes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return drawn, len(remaining), nil
}
