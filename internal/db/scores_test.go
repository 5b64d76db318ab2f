package db

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/thesavant42/scorekeeper/internal/models"
)

func TestSaveThenFavoriteBecomesCurrent(t *testing.T) {
	database := newTestDB(t)

	saved, err := database.SaveCompletion(ctx, "123456", 42)
	if err != nil {
		t.Fatalf("SaveCompletion() error = %v", err)
	}
	if saved.Completion != 42 || saved.IsFavorite {
		t.Fatalf("saved = %+v, want completion 42 and not favorite", saved)
	}

	fav, err := database.ToggleFavorite(ctx, "123456")
	if err != nil {
		t.Fatalf("ToggleFavorite() error = %v", err)
	}
	if !fav.IsFavorite {
		t.Errorf("ToggleFavorite() IsFavorite = false, want true")
	}
	if !fav.CreatedAt.After(saved.CreatedAt) {
		t.Errorf("created_at did not advance: %v -> %v", saved.CreatedAt, fav.CreatedAt)
	}

	cur, err := database.CurrentScore(ctx, "123456")
	if err != nil {
		t.Fatalf("CurrentScore() error = %v", err)
	}
	if cur.ID != fav.ID || !cur.IsFavorite || cur.Completion != 42 {
		t.Errorf("CurrentScore() = %+v, want the favorited row %+v", cur, fav)
	}

	history, err := database.ScoreHistory(ctx, "123456")
	if err != nil {
		t.Fatalf("ScoreHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2 (older rows are kept)", len(history))
	}
}

func TestToggleFavoriteOnUnknownCode(t *testing.T) {
	database := newTestDB(t)

	rec, err := database.ToggleFavorite(ctx, "55555")
	if err != nil {
		t.Fatalf("ToggleFavorite() error = %v", err)
	}
	if !rec.IsFavorite || rec.Completion != 0 {
		t.Errorf("ToggleFavorite() = %+v, want favorite with completion 0", rec)
	}

	rec, err = database.ToggleFavorite(ctx, "55555")
	if err != nil {
		t.Fatalf("ToggleFavorite() error = %v", err)
	}
	if rec.IsFavorite {
		t.Errorf("second toggle should clear favorite")
	}
}

func TestSaveCompletionKeepsFavorite(t *testing.T) {
	database := newTestDB(t)

	if _, err := database.ToggleFavorite(ctx, "77777"); err != nil {
		t.Fatal(err)
	}
	rec, err := database.SaveCompletion(ctx, "77777", 88)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.IsFavorite || rec.Completion != 88 {
		t.Errorf("SaveCompletion() = %+v, want favorite kept and completion 88", rec)
	}
}

func TestScoreStatus(t *testing.T) {
	database := newTestDB(t)

	status, err := database.ScoreStatus(ctx, "99999")
	if err != nil {
		t.Fatalf("ScoreStatus() error = %v", err)
	}
	if status.Exists || status.Completion != nil || status.IsFavorite || status.HasReview {
		t.Errorf("unknown code status = %+v, want zero state", status)
	}

	if _, err := database.SaveCompletion(ctx, "99999", 70); err != nil {
		t.Fatal(err)
	}
	if _, err := database.InsertReview(ctx, models.Review{ScoreCode: "99999", Rating: 4}); err != nil {
		t.Fatal(err)
	}

	status, err = database.ScoreStatus(ctx, "99999")
	if err != nil {
		t.Fatalf("ScoreStatus() error = %v", err)
	}
	if !status.Exists || status.Completion == nil || *status.Completion != 70 || !status.HasReview {
		t.Errorf("status = %+v, want exists, completion 70, has review", status)
	}
}

func TestListScoresFilters(t *testing.T) {
	database := newTestDB(t)

	mustSave(t, database, "11111", 10)
	mustSave(t, database, "22222", 50)
	mustSave(t, database, "33333", 90)
	if _, err := database.ToggleFavorite(ctx, "22222"); err != nil {
		t.Fatal(err)
	}
	// Superseded row must not leak into results
	mustSave(t, database, "11111", 95)

	tests := []struct {
		name   string
		filter models.PoolFilter
		want   []string
	}{
		{"all newest first", models.PoolFilter{}, []string{"11111", "22222", "33333"}},
		{"min", models.PoolFilter{MinCompletion: intPtr(50)}, []string{"11111", "22222", "33333"}},
		{"max", models.PoolFilter{MaxCompletion: intPtr(60)}, []string{"22222"}},
		{"range", models.PoolFilter{MinCompletion: intPtr(60), MaxCompletion: intPtr(92)}, []string{"33333"}},
		{"favorites", models.PoolFilter{Favorite: boolPtr(true)}, []string{"22222"}},
		{"non favorites", models.PoolFilter{Favorite: boolPtr(false)}, []string{"11111", "33333"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := database.MatchingCodes(ctx, tt.filter)
			if err != nil {
				t.Fatalf("MatchingCodes() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MatchingCodes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStats(t *testing.T) {
	database := newTestDB(t)

	mustSave(t, database, "11111", 10)
	mustSave(t, database, "11111", 20)
	mustSave(t, database, "22222", 30)
	if _, err := database.ToggleFavorite(ctx, "22222"); err != nil {
		t.Fatal(err)
	}

	stats, err := database.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	want := models.ScoreStats{TotalRecords: 4, UniqueSongs: 2, FavoriteSongs: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

func TestBatchLookupPreservesOrder(t *testing.T) {
	database := newTestDB(t)
	mustSave(t, database, "22222", 64)

	got, err := database.BatchLookup(ctx, []string{"11111", "22222"})
	if err != nil {
		t.Fatalf("BatchLookup() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("BatchLookup() returned %d results, want 2", len(got))
	}
	if got[0].ScoreCode != "11111" || got[0].Exists || got[0].Completion != nil {
		t.Errorf("unknown code = %+v, want absent", got[0])
	}
	if got[1].ScoreCode != "22222" || got[1].Completion == nil || *got[1].Completion != 64 {
		t.Errorf("known code = %+v, want completion 64", got[1])
	}
}

func TestBatchQuery(t *testing.T) {
	database := newTestDB(t)
	mustSave(t, database, "11111", 10)
	mustSave(t, database, "22222", 50)
	mustSave(t, database, "33333", 90)
	if _, err := database.SetRemark(ctx, "33333", "hard stream section"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		query models.BatchQuery
		want  []string
	}{
		{"all known", models.BatchQuery{}, []string{"33333", "22222", "11111"}},
		{"exclude", models.BatchQuery{ExcludeCodes: []string{"22222"}}, []string{"33333", "11111"}},
		{"explicit with unknown", models.BatchQuery{ScoreCodes: []string{"44444", "11111"}}, []string{"44444", "11111"}},
		{"bounded drops unknown", models.BatchQuery{ScoreCodes: []string{"44444", "11111"}, Filter: models.PoolFilter{MinCompletion: intPtr(0)}}, []string{"11111"}},
		{"include remark", models.BatchQuery{IncludeRemark: "stream"}, []string{"33333"}},
		{"exclude remark", models.BatchQuery{ExcludeRemark: "stream"}, []string{"22222", "11111"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := database.BatchQuery(ctx, tt.query)
			if err != nil {
				t.Fatalf("BatchQuery() error = %v", err)
			}
			got := make([]string, 0, len(results))
			for _, r := range results {
				got = append(got, r.ScoreCode)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BatchQuery() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func mustSave(t *testing.T, database *DB, code string, completion int) {
	t.Helper()
	if _, err := database.SaveCompletion(ctx, code, completion); err != nil {
		t.Fatalf("SaveCompletion(%s) error = %v", code, err)
	}
}
