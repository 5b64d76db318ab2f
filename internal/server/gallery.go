package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/scorekeeper/internal/api"
	"github.com/thesavant42/scorekeeper/internal/batch"
	"github.com/thesavant42/scorekeeper/internal/models"
)

var errScrapeRunning = errors.New("a gallery scrape is already running")

// Crawler walks the gallery. *api.GalleryClient satisfies it.
type Crawler interface {
	Crawl(ctx context.Context, opts api.CrawlOptions) models.CrawlResult
}

// Publisher receives job completion events
type Publisher interface {
	Publish(models.Event)
}

// ScrapeJob runs at most one gallery crawl at a time and writes each run's
// codes to a batch file
type ScrapeJob struct {
	crawler   Crawler
	batches   *batch.Store
	opts      api.CrawlOptions
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time

	mu     sync.Mutex
	status models.ScrapeStatus
	done   chan struct{}
}

// NewScrapeJob creates an idle job
func NewScrapeJob(crawler Crawler, batches *batch.Store, opts api.CrawlOptions, publisher Publisher, logger *log.Logger) *ScrapeJob {
	return &ScrapeJob{
		crawler:   crawler,
		batches:   batches,
		opts:      opts,
		publisher: publisher,
		logger:    logger.WithPrefix("scrape"),
		now:       time.Now,
	}
}

// Status returns a snapshot of the current or last run
func (j *ScrapeJob) Status() models.ScrapeStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// begin marks the job running or reports that it already is
func (j *ScrapeJob) begin() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Running {
		return errScrapeRunning
	}
	j.status = models.ScrapeStatus{Running: true, StartedAt: j.now()}
	j.done = make(chan struct{})
	return nil
}

// Start launches a crawl in the background. ctx bounds the crawl, not the caller.
func (j *ScrapeJob) Start(ctx context.Context) error {
	if err := j.begin(); err != nil {
		return err
	}
	go j.run(ctx)
	return nil
}

// Run crawls inline and returns the written batch. A crawl that stopped
// early still produces a batch when it found any codes.
func (j *ScrapeJob) Run(ctx context.Context) (*batch.Batch, models.CrawlResult, error) {
	if err := j.begin(); err != nil {
		return nil, models.CrawlResult{}, err
	}
	return j.run(ctx)
}

// Wait blocks until the current run finishes or ctx is done
func (j *ScrapeJob) Wait(ctx context.Context) error {
	j.mu.Lock()
	done := j.done
	j.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *ScrapeJob) run(ctx context.Context) (*batch.Batch, models.CrawlResult, error) {
	j.logger.Info("gallery scrape started", "max_pages", j.opts.MaxPages)

	res := j.crawler.Crawl(ctx, j.opts)

	var (
		b   *batch.Batch
		err error
	)
	// A failed crawl with nothing gathered leaves no file; any other run
	// gets exactly one, even when the gallery had no codes
	if len(res.Codes) == 0 && res.Err != nil {
		err = res.Err
	} else {
		b, err = j.batches.Write(res.Codes, j.now())
		if err != nil {
			err = fmt.Errorf("failed to write batch: %w", err)
		}
	}

	j.mu.Lock()
	j.status.Running = false
	j.status.FinishedAt = j.now()
	j.status.Pages = res.Pages
	j.status.Codes = len(res.Codes)
	if b != nil {
		j.status.Filename = b.Filename
	}
	switch {
	case err != nil:
		j.status.Error = err.Error()
	case res.Err != nil:
		j.status.Error = "stopped early: " + res.Err.Error()
	}
	status := j.status
	close(j.done)
	j.mu.Unlock()

	if err != nil {
		j.logger.Error("gallery scrape failed", "err", err, "pages", res.Pages)
	} else {
		j.logger.Info("gallery scrape finished", "pages", res.Pages, "codes", len(res.Codes), "file", status.Filename)
	}
	j.publisher.Publish(models.Event{Type: models.EventScrapeDone, Data: status})

	return b, res, err
}

// handleScrapeStatus handles GET /api/gallery/scrape
func (s *Server) handleScrapeStatus(w http.ResponseWriter, r *http.Request) {
	if s.scrape == nil {
		s.writeError(w, r, errNoScraper)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": s.scrape.Status()})
}

var errNoScraper = fmt.Errorf("gallery scraping is not configured: %w", models.ErrNotFound)

// handleStartScrape handles POST /api/gallery/scrape
func (s *Server) handleStartScrape(w http.ResponseWriter, r *http.Request) {
	if s.scrape == nil {
		s.writeError(w, r, errNoScraper)
		return
	}
	// The crawl outlives the request
	if err := s.scrape.Start(context.WithoutCancel(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": s.scrape.Status()})
}

// handleScrapeSync handles POST /api/gallery/scrape/sync: crawl, write the
// batch, and return each code's current status
func (s *Server) handleScrapeSync(w http.ResponseWriter, r *http.Request) {
	if s.scrape == nil {
		s.writeError(w, r, errNoScraper)
		return
	}

	b, res, err := s.scrape.Run(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	results, err := s.db.BatchLookup(r.Context(), b.Codes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body := map[string]any{
		"results":         results,
		"filename":        b.Filename,
		"extracted_count": len(b.Codes),
		"pages":           res.Pages,
	}
	if res.Err != nil {
		body["warning"] = "stopped early: " + res.Err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

// handleLatestBatch handles GET /api/gallery/latest
func (s *Server) handleLatestBatch(w http.ResponseWriter, r *http.Request) {
	b, err := s.batches.Latest(s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename":        b.Filename,
		"codes":           b.Codes,
		"extracted_count": len(b.Codes),
	})
}
