package db

// Score rows are never deleted; the newest created_at per code is current
const createScoresTable = `
CREATE TABLE IF NOT EXISTS scores (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    score_code TEXT NOT NULL,
    completion INTEGER NOT NULL DEFAULT 0,
    is_favorite BOOLEAN NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Created after migrateScores so legacy tables have created_at first
const createScoresIndex = `
CREATE INDEX IF NOT EXISTS idx_scores_code_created ON scores(score_code, created_at);
`

var scoreColumnMigrations = []struct {
	name string
	ddl  string
}{
	{"completion", `ALTER TABLE scores ADD COLUMN completion INTEGER NOT NULL DEFAULT 0`},
	{"is_favorite", `ALTER TABLE scores ADD COLUMN is_favorite BOOLEAN NOT NULL DEFAULT 0`},
	{"created_at", `ALTER TABLE scores ADD COLUMN created_at TEXT NOT NULL DEFAULT '1970-01-01 00:00:00'`},
}

const selectCurrentScore = `
SELECT id, completion, is_favorite, created_at
FROM scores
WHERE score_code = ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`

const insertScore = `
INSERT INTO scores (score_code, completion, is_favorite, created_at)
VALUES (?, ?, ?, ?)
`

// Current record per code with optional completion bounds and favorite flag.
// Each bound is passed twice: once for the IS NULL check, once for the comparison.
const selectCurrentScores = `
WITH ranked AS (
    SELECT id, score_code, completion, is_favorite, created_at,
           ROW_NUMBER() OVER (PARTITION BY score_code ORDER BY created_at DESC, id DESC) AS rn
    FROM scores
)
SELECT r.id, r.score_code, r.completion, r.is_favorite, r.created_at, COALESCE(m.remark, '')
FROM ranked r
LEFT JOIN remarks m ON m.score_code = r.score_code
WHERE r.rn = 1
  AND (? IS NULL OR r.completion >= ?)
  AND (? IS NULL OR r.completion <= ?)
  AND (? IS NULL OR r.is_favorite = ?)
ORDER BY r.created_at DESC, r.id DESC
`

const selectScoreHistory = `
SELECT id, score_code, completion, is_favorite, created_at
FROM scores
WHERE score_code = ?
ORDER BY created_at DESC, id DESC
`

const selectScoreStats = `
WITH ranked AS (
    SELECT score_code, is_favorite,
           ROW_NUMBER() OVER (PARTITION BY score_code ORDER BY created_at DESC, id DESC) AS rn
    FROM scores
)
SELECT
    (SELECT COUNT(*) FROM scores),
    (SELECT COUNT(*) FROM ranked WHERE rn = 1),
    (SELECT COUNT(*) FROM ranked WHERE rn = 1 AND is_favorite = 1)
`

// One remark per code
const createRemarksTable = `
CREATE TABLE IF NOT EXISTS remarks (
    score_code TEXT PRIMARY KEY,
    remark TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

const selectRemark = `
SELECT remark, updated_at FROM remarks WHERE score_code = ?
`

const upsertRemark = `
INSERT INTO remarks (score_code, remark, updated_at) VALUES (?, ?, ?)
ON CONFLICT(score_code) DO UPDATE SET remark = excluded.remark, updated_at = excluded.updated_at
`

const deleteRemark = `
DELETE FROM remarks WHERE score_code = ?
`

const createReviewsTable = `
CREATE TABLE IF NOT EXISTS reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    score_code TEXT NOT NULL,
    rating INTEGER NOT NULL DEFAULT 5,
    comment TEXT NOT NULL DEFAULT '',
    video_type TEXT NOT NULL DEFAULT '',
    video_url TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reviews_code ON reviews(score_code);
`

const insertReview = `
INSERT INTO reviews (score_code, rating, comment, video_type, video_url, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const selectReviews = `
SELECT id, score_code, rating, comment, video_type, video_url, created_at
FROM reviews
WHERE score_code = ?
ORDER BY created_at DESC, id DESC
`

const selectReviewedCodes = `
SELECT DISTINCT score_code FROM reviews
`

const selectHasReview = `
SELECT EXISTS(SELECT 1 FROM reviews WHERE score_code = ?)
`

// filter_json, origin_codes_json and codes_json hold JSON encoded
// models.PoolFilter and []string values
const createPoolsTable = `
CREATE TABLE IF NOT EXISTS random_pools (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    filter_json TEXT NOT NULL DEFAULT '{}',
    origin_codes_json TEXT NOT NULL DEFAULT '[]',
    codes_json TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL
);
`

const insertPool = `
INSERT INTO random_pools (name, filter_json, origin_codes_json, codes_json, created_at)
VALUES (?, ?, ?, ?, ?)
`

const selectPool = `
SELECT id, name, filter_json, origin_codes_json, codes_json, created_at
FROM random_pools
WHERE id = ?
`

const selectPools = `
SELECT id, name, filter_json, origin_codes_json, codes_json, created_at
FROM random_pools
ORDER BY created_at DESC, id DESC
`

const updatePoolCodes = `
UPDATE random_pools SET codes_json = ? WHERE id = ?
`

const updatePoolFilterAndCodes = `
UPDATE random_pools SET filter_json = ?, codes_json = ? WHERE id = ?
`

const resetPoolCodes = `
UPDATE random_pools SET codes_json = origin_codes_json WHERE id = ?
`

const deletePool = `
DELETE FROM random_pools WHERE id = ?
`
