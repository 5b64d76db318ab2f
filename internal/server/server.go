// Package server exposes the score store, pools, reviews and gallery scrape
// over HTTP, plus the live event stream the browser UI subscribes to.
package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/thesavant42/scorekeeper/internal/batch"
	"github.com/thesavant42/scorekeeper/internal/db"
	"github.com/thesavant42/scorekeeper/internal/events"
	"github.com/thesavant42/scorekeeper/internal/pool"
)

// Options configures a Server
type Options struct {
	UploadDir string
	// MaxUpload caps a review upload in bytes
	MaxUpload int64
}

// Server holds the dependencies shared by every handler
type Server struct {
	db      *db.DB
	pools   *pool.Manager
	hub     *events.Hub
	batches *batch.Store
	scrape  *ScrapeJob
	opts    Options
	logger  *log.Logger
	now     func() time.Time
}

// New creates a server. scrape may be nil, which disables the gallery routes.
func New(database *db.DB, pools *pool.Manager, hub *events.Hub, batches *batch.Store, scrape *ScrapeJob, opts Options, logger *log.Logger) *Server {
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = 200 << 20
	}
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads"
	}
	return &Server{
		db:      database,
		pools:   pools,
		hub:     hub,
		batches: batches,
		scrape:  scrape,
		opts:    opts,
		logger:  logger.WithPrefix("http"),
		now:     time.Now,
	}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.withLogging)

	r.Get("/", s.handleIndex)
	r.Handle("/events", s.hub)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.opts.UploadDir))))

	r.Route("/api", func(r chi.Router) {
		r.Route("/scores", func(r chi.Router) {
			r.Get("/", s.handleListScores)
			r.Post("/save", s.handleSaveCompletion)
			r.Get("/stats", s.handleStats)
			r.Post("/batch", s.handleBatchQuery)
			r.Post("/lookup", s.handleBatchLookup)
			r.Post("/remarks/batch", s.handleBatchRemarks)
			r.Get("/{code}", s.handleGetScore)
			r.Post("/{code}/favorite", s.handleToggleFavorite)
			r.Get("/{code}/remark", s.handleGetRemark)
			r.Post("/{code}/remark", s.handleSetRemark)
		})

		r.Post("/reviews", s.handleCreateReview)
		r.Get("/reviews/{code}", s.handleGetReview)

		r.Route("/pools", func(r chi.Router) {
			r.Get("/", s.handleListPools)
			r.Post("/", s.handleCreatePool)
			r.Get("/{id}", s.handleGetPool)
			r.Delete("/{id}", s.handleDeletePool)
			r.Post("/{id}/draw", s.handleDrawPool)
			r.Post("/{id}/filter", s.handleFilterPool)
			r.Post("/{id}/reset", s.handleResetPool)
		})

		r.Route("/gallery", func(r chi.Router) {
			r.Get("/latest", s.handleLatestBatch)
			r.Get("/scrape", s.handleScrapeStatus)
			r.Post("/scrape", s.handleStartScrape)
			r.Post("/scrape/sync", s.handleScrapeSync)
		})
	})

	return r
}

// withLogging logs each request once it completes
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// The event stream stays open for the life of the tab
		if r.URL.Path == "/events" {
			s.logger.Debug("event stream closed", "remote", r.RemoteAddr, "duration", time.Since(start))
			return
		}
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}
