package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/thesavant42/scorekeeper/internal/api"
	"github.com/thesavant42/scorekeeper/internal/batch"
	"github.com/thesavant42/scorekeeper/internal/clipboard"
	"github.com/thesavant42/scorekeeper/internal/config"
	"github.com/thesavant42/scorekeeper/internal/db"
	"github.com/thesavant42/scorekeeper/internal/events"
	"github.com/thesavant42/scorekeeper/internal/pool"
	"github.com/thesavant42/scorekeeper/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "scorekeeper.yaml", "Path to YAML config file")
	listen := flag.String("listen", "", "Listen address (overrides config)")
	dbPath := flag.String("db", "", "Path to SQLite database file (overrides config)")
	noClipboard := flag.Bool("no-clipboard", false, "Disable the clipboard watcher")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *dbPath != "" {
		cfg.Storage.Database = *dbPath
	}
	if *noClipboard {
		cfg.Clipboard.Enabled = false
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           cfg.Level(),
		ReportTimestamp: true,
		Prefix:          "scorekeeper",
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backup, err := db.Backup(cfg.Storage.Database, cfg.Storage.BackupDir, time.Now())
	if err != nil {
		logger.Warn("database backup failed", "err", err)
	} else if backup != "" {
		logger.Info("database backed up", "path", backup)
	}

	database, err := db.New(cfg.Storage.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	hub := events.NewHub(logger)
	pools := pool.NewManager(database, logger)
	batches := batch.NewStore(cfg.Storage.BatchDir, batch.DefaultPrefix)

	var scrape *server.ScrapeJob
	if cfg.Gallery.BaseURL != "" {
		client := api.NewGalleryClient(cfg.Gallery.ClientConfig(), logger)
		scrape = server.NewScrapeJob(client, batches, cfg.Gallery.CrawlOptions(), hub, logger)
	}

	srv := server.New(database, pools, hub, batches, scrape, server.Options{
		UploadDir: cfg.Storage.UploadDir,
		MaxUpload: cfg.Server.MaxUpload << 20,
	}, logger)

	if cfg.Clipboard.Enabled {
		if clipboard.Available() {
			watcher := clipboard.NewWatcher(nil, database, hub, logger, cfg.Clipboard.WatcherOptions())
			go func() {
				if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("clipboard watcher stopped", "err", err)
				}
			}()
		} else {
			logger.Warn("no system clipboard, watcher disabled")
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	url := localURL(cfg.Server.Listen)
	logger.Info("listening", "url", url)
	if cfg.Server.CopyURL && clipboard.Available() {
		if err := clipboard.WriteAll(url); err != nil {
			logger.Warn("could not copy url", "err", err)
		} else {
			logger.Info("url copied to clipboard")
		}
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if scrape != nil {
		if err := scrape.Wait(shutdownCtx); err != nil {
			logger.Warn("scrape still running at exit", "err", err)
		}
	}
	return nil
}

// localURL turns a listen address like ":5005" into a browsable URL
func localURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	host = strings.Replace(host, "0.0.0.0", "127.0.0.1", 1)
	return "http://" + host + "/"
}
