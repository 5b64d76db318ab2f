package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/thesavant42/scorekeeper/internal/api"
	"github.com/thesavant42/scorekeeper/internal/batch"
	"github.com/thesavant42/scorekeeper/internal/db"
	"github.com/thesavant42/scorekeeper/internal/events"
	"github.com/thesavant42/scorekeeper/internal/models"
	"github.com/thesavant42/scorekeeper/internal/pool"
)

type fakeCrawler struct {
	result  models.CrawlResult
	started chan struct{}
	release chan struct{}
}

func (f *fakeCrawler) Crawl(ctx context.Context, _ api.CrawlOptions) models.CrawlResult {
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.result
}

type testEnv struct {
	srv     *Server
	handler http.Handler
	db      *db.DB
	hub     *events.Hub
	events  *events.Client
	batches *batch.Store
	crawler *fakeCrawler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := log.New(io.Discard)

	database, err := db.New(filepath.Join(dir, "scores.db"))
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	hub := events.NewHub(logger)
	client := hub.Subscribe()
	t.Cleanup(func() { hub.Unsubscribe(client) })

	batches := batch.NewStore(filepath.Join(dir, "batches"), "")
	crawler := &fakeCrawler{}
	job := NewScrapeJob(crawler, batches, api.CrawlOptions{}, hub, logger)

	srv := New(database, pool.NewManager(database, logger), hub, batches, job,
		Options{UploadDir: filepath.Join(dir, "uploads")}, logger)

	return &testEnv{
		srv:     srv,
		handler: srv.Handler(),
		db:      database,
		hub:     hub,
		events:  client,
		batches: batches,
		crawler: crawler,
	}
}

// do sends a request and decodes the JSON body
func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: invalid JSON response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, out
}

func (e *testEnv) nextEvent(t *testing.T) models.Event {
	t.Helper()
	select {
	case ev := <-e.events.Outbound:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
		return models.Event{}
	}
}

func TestSaveAndToggleFavorite(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/scores/save", map[string]any{"score_code": "123456", "completion": 42})
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("save status = %d body = %v", status, body)
	}
	if ev := env.nextEvent(t); ev.Type != models.EventCompletionUpdate {
		t.Errorf("event = %s, want completion_update", ev.Type)
	}

	status, body = env.do(t, http.MethodPost, "/api/scores/123456/favorite", nil)
	if status != http.StatusOK || body["is_favorite"] != true {
		t.Fatalf("favorite status = %d body = %v", status, body)
	}
	ev := env.nextEvent(t)
	if ev.Type != models.EventFavoriteUpdate {
		t.Errorf("event = %s, want favorite_update", ev.Type)
	}

	_, body = env.do(t, http.MethodGet, "/api/scores/123456", nil)
	st := body["status"].(map[string]any)
	if st["completion"] != float64(42) || st["is_favorite"] != true || st["exists"] != true {
		t.Errorf("status = %v", st)
	}
	if n := len(body["history"].([]any)); n != 2 {
		t.Errorf("history length = %d, want 2", n)
	}
}

func TestSaveValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"short code", map[string]any{"score_code": "1234", "completion": 10}},
		{"completion too high", map[string]any{"score_code": "12345", "completion": 101}},
		{"completion negative", map[string]any{"score_code": "12345", "completion": "-1"}},
		{"completion text", map[string]any{"score_code": "12345", "completion": "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, "/api/scores/save", tt.body)
			if status != http.StatusBadRequest || body["success"] != false {
				t.Errorf("status = %d body = %v, want 400", status, body)
			}
		})
	}

	status, _ := env.do(t, http.MethodPost, "/api/scores/save", map[string]any{"score_code": "12345", "completion": "100"})
	if status != http.StatusOK {
		t.Errorf("string completion status = %d, want 200", status)
	}
}

func TestListScoresQuery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for code, c := range map[string]int{"11111": 10, "22222": 60, "33333": 90} {
		if _, err := env.db.SaveCompletion(ctx, code, c); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := env.db.ToggleFavorite(ctx, "33333"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		query string
		want  int
		code  int
	}{
		{"", 3, http.StatusOK},
		{"?min_completion=50", 2, http.StatusOK},
		{"?min_completion=50&favorite=2", 1, http.StatusOK},
		{"?favorite=1", 1, http.StatusOK},
		{"?max_completion=200", 0, http.StatusBadRequest},
		{"?favorite=yes", 0, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			status, body := env.do(t, http.MethodGet, "/api/scores"+tt.query, nil)
			if status != tt.code {
				t.Fatalf("status = %d, want %d (%v)", status, tt.code, body)
			}
			if tt.code == http.StatusOK && body["count"] != float64(tt.want) {
				t.Errorf("count = %v, want %d", body["count"], tt.want)
			}
		})
	}
}

func TestBatchLookupAndQuery(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.db.SaveCompletion(context.Background(), "22222", 75); err != nil {
		t.Fatal(err)
	}

	_, body := env.do(t, http.MethodPost, "/api/scores/lookup", map[string]any{"text": "11111, 22222\n11111"})
	results := body["results"].([]any)
	if len(results) != 2 || body["found"] != float64(1) {
		t.Fatalf("lookup body = %v", body)
	}
	first := results[0].(map[string]any)
	if first["score_code"] != "11111" || first["completion"] != nil {
		t.Errorf("first result = %v, want unknown 11111", first)
	}

	_, body = env.do(t, http.MethodPost, "/api/scores/batch", map[string]any{
		"score_codes":   []string{"11111", "22222"},
		"exclude_codes": []string{"11111"},
	})
	if body["total"] != float64(1) {
		t.Errorf("batch body = %v", body)
	}
}

func TestRemarkRoutes(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodGet, "/api/scores/11111/remark", nil)
	if body["remark"] != "" {
		t.Errorf("empty remark = %v", body["remark"])
	}

	env.do(t, http.MethodPost, "/api/scores/11111/remark", map[string]any{"remark": "tricky"})
	if ev := env.nextEvent(t); ev.Type != models.EventRemarkUpdate {
		t.Errorf("event = %s", ev.Type)
	}

	_, body = env.do(t, http.MethodPost, "/api/scores/remarks/batch", map[string]any{
		"score_codes": []string{"11111", "22222"},
		"remark":      "tricky",
	})
	if body["updated_count"] != float64(1) {
		t.Errorf("batch remark body = %v", body)
	}
	if diff := cmp.Diff([]any{"11111"}, body["skipped"]); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestPoolRoutes(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/pools", map[string]any{"name": ""})
	if status != http.StatusBadRequest {
		t.Errorf("empty name status = %d", status)
	}

	status, body = env.do(t, http.MethodPost, "/api/pools", map[string]any{"name": "one", "score_codes": []string{"11111"}})
	if status != http.StatusCreated {
		t.Fatalf("create status = %d body = %v", status, body)
	}
	id := int64(body["pool"].(map[string]any)["id"].(float64))
	base := "/api/pools/" + strconv.FormatInt(id, 10)

	_, body = env.do(t, http.MethodPost, base+"/draw", nil)
	if body["score_code"] != "11111" || body["remaining"] != float64(0) {
		t.Errorf("draw body = %v", body)
	}

	status, _ = env.do(t, http.MethodPost, base+"/draw", nil)
	if status != http.StatusConflict {
		t.Errorf("draw on empty pool status = %d, want 409", status)
	}

	_, body = env.do(t, http.MethodPost, base+"/filter", nil)
	if diff := cmp.Diff([]any{"11111"}, body["codes"]); diff != "" {
		t.Errorf("empty filter codes mismatch (-want +got):\n%s", diff)
	}

	status, _ = env.do(t, http.MethodDelete, base, nil)
	if status != http.StatusOK {
		t.Errorf("delete status = %d", status)
	}
	status, _ = env.do(t, http.MethodGet, base, nil)
	if status != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", status)
	}
	status, _ = env.do(t, http.MethodGet, "/api/pools/abc", nil)
	if status != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", status)
	}
}

func TestCreateReviewUpload(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("score_code", "12345")
	mw.WriteField("rating", "4")
	mw.WriteField("comment", "clean run")
	mw.WriteField("video_source", "upload")
	fw, err := mw.CreateFormFile("video", "run.MP4")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("not really a video"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/reviews", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Review models.Review `json:"review"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(body.Review.VideoURL, "/uploads/") || !strings.HasSuffix(body.Review.VideoURL, ".mp4") {
		t.Errorf("VideoURL = %q", body.Review.VideoURL)
	}
	saved := filepath.Join(env.srv.opts.UploadDir, strings.TrimPrefix(body.Review.VideoURL, "/uploads/"))
	if data, err := os.ReadFile(saved); err != nil || string(data) != "not really a video" {
		t.Errorf("uploaded file = %q, %v", data, err)
	}

	_, got := env.do(t, http.MethodGet, "/api/reviews/12345", nil)
	if got["has_review"] != true {
		t.Errorf("review body = %v", got)
	}
}

func TestCreateReviewRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"bad code", map[string]string{"score_code": "12"}},
		{"bad rating", map[string]string{"score_code": "12345", "rating": "9"}},
		{"external without url", map[string]string{"score_code": "12345", "video_source": "external", "video_url": "ftp://x"}},
		{"upload without file", map[string]string{"score_code": "12345", "video_source": "upload"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			for k, v := range tt.fields {
				mw.WriteField(k, v)
			}
			mw.Close()

			req := httptest.NewRequest(http.MethodPost, "/api/reviews", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestScrapeSyncWritesBatch(t *testing.T) {
	env := newTestEnv(t)
	env.crawler.result = models.CrawlResult{Codes: []string{"11111", "22222"}, Pages: 1}

	status, body := env.do(t, http.MethodPost, "/api/gallery/scrape/sync", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d body = %v", status, body)
	}
	if body["extracted_count"] != float64(2) {
		t.Errorf("extracted_count = %v", body["extracted_count"])
	}
	if ev := env.nextEvent(t); ev.Type != models.EventScrapeDone {
		t.Errorf("event = %s, want scrape_done", ev.Type)
	}

	// Written today, so it is still returned when nothing older exists
	_, body = env.do(t, http.MethodGet, "/api/gallery/latest", nil)
	name, _ := body["filename"].(string)
	if !strings.HasPrefix(name, "jianshang_codes_") || body["extracted_count"] != float64(2) {
		t.Errorf("latest body = %v", body)
	}
}

func TestScrapeSyncPartialResults(t *testing.T) {
	env := newTestEnv(t)
	env.crawler.result = models.CrawlResult{Codes: []string{"11111"}, Pages: 1, Err: &api.APIError{RetCode: -1, Message: "limited"}}

	status, body := env.do(t, http.MethodPost, "/api/gallery/scrape/sync", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d body = %v", status, body)
	}
	if _, ok := body["warning"]; !ok {
		t.Errorf("expected a warning for a crawl that stopped early: %v", body)
	}
}

func TestScrapeSyncEmptyRunStillWritesBatch(t *testing.T) {
	env := newTestEnv(t)
	env.crawler.result = models.CrawlResult{Pages: 1}

	status, body := env.do(t, http.MethodPost, "/api/gallery/scrape/sync", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d body = %v", status, body)
	}
	if body["extracted_count"] != float64(0) {
		t.Errorf("extracted_count = %v", body["extracted_count"])
	}
	name, _ := body["filename"].(string)
	if _, err := os.Stat(filepath.Join(env.srv.batches.Dir(), name)); name == "" || err != nil {
		t.Errorf("batch file %q not written: %v", name, err)
	}
	if st := env.srv.scrape.Status(); st.Error != "" {
		t.Errorf("status error = %q, want none", st.Error)
	}
}

func TestScrapeSyncFailedRunWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.crawler.result = models.CrawlResult{Err: &api.APIError{RetCode: -1, Message: "limited"}}

	status, _ := env.do(t, http.MethodPost, "/api/gallery/scrape/sync", nil)
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
	entries, _ := os.ReadDir(env.srv.batches.Dir())
	if len(entries) != 0 {
		t.Errorf("batch dir has %d files, want 0", len(entries))
	}
}

func TestScrapeAsyncConflict(t *testing.T) {
	env := newTestEnv(t)
	env.crawler.result = models.CrawlResult{Codes: []string{"11111"}, Pages: 1}
	env.crawler.started = make(chan struct{})
	env.crawler.release = make(chan struct{})

	status, _ := env.do(t, http.MethodPost, "/api/gallery/scrape", nil)
	if status != http.StatusAccepted {
		t.Fatalf("start status = %d, want 202", status)
	}
	<-env.crawler.started

	status, _ = env.do(t, http.MethodPost, "/api/gallery/scrape", nil)
	if status != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", status)
	}

	_, body := env.do(t, http.MethodGet, "/api/gallery/scrape", nil)
	if body["status"].(map[string]any)["running"] != true {
		t.Errorf("status body = %v", body)
	}

	close(env.crawler.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := env.srv.scrape.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	st := env.srv.scrape.Status()
	if st.Running || st.Codes != 1 || st.Filename == "" {
		t.Errorf("final status = %+v", st)
	}
}

func TestLatestBatchNotFound(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, http.MethodGet, "/api/gallery/latest", nil)
	if status != http.StatusNotFound || body["success"] != false {
		t.Errorf("status = %d body = %v", status, body)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{badRequest("x"), http.StatusBadRequest},
		{pool.ErrEmptyName, http.StatusBadRequest},
		{models.ErrNotFound, http.StatusNotFound},
		{batch.ErrNoBatch, http.StatusNotFound},
		{pool.ErrPoolEmpty, http.StatusConflict},
		{errScrapeRunning, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "EventSource") {
		t.Errorf("index status = %d", rec.Code)
	}
}

