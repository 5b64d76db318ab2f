// One-shot gallery scrape that writes a batch file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/thesavant42/scorekeeper/internal/api"
	"github.com/thesavant42/scorekeeper/internal/batch"
	"github.com/thesavant42/scorekeeper/internal/config"
	"github.com/thesavant42/scorekeeper/internal/models"
	"github.com/thesavant42/scorekeeper/internal/ui"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "scorekeeper.yaml", "Path to YAML config file")
	maxPages := flag.Int("pages", 0, "Maximum pages to fetch (overrides config)")
	outDir := flag.String("out", "", "Batch directory (overrides config)")
	verbose := flag.Bool("v", false, "Log each request")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		ui.PrintError("Failed to load config: %v", err)
		os.Exit(1)
	}
	if *maxPages > 0 {
		cfg.Gallery.MaxPages = *maxPages
	}
	if *outDir != "" {
		cfg.Storage.BatchDir = *outDir
	}

	// The spinner owns the terminal, so logs are off unless asked for
	logger := log.New(io.Discard)
	if *verbose {
		logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.DebugLevel, ReportTimestamp: true})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := api.NewGalleryClient(cfg.Gallery.ClientConfig(), logger)
	opts := cfg.Gallery.CrawlOptions()

	var res models.CrawlResult
	crawl := func(progress func(string)) error {
		opts.OnPage = func(page, works, codes int) {
			progress(fmt.Sprintf("Page %d/%d: %d works, %d codes so far", page, opts.MaxPages, works, codes))
		}
		res = client.Crawl(ctx, opts)
		return nil
	}

	if *verbose {
		_ = crawl(func(s string) { logger.Info(s) })
	} else if err := ui.RunWithSpinner("Crawling gallery...", crawl); err != nil {
		ui.PrintError("%v", err)
		os.Exit(1)
	}

	if res.Err != nil {
		if len(res.Codes) == 0 {
			ui.PrintError("Crawl failed: %v", res.Err)
			os.Exit(1)
		}
		ui.PrintInfo("Stopped early: %v", res.Err)
	}
	if len(res.Codes) == 0 {
		ui.PrintInfo("No codes found in %d pages", res.Pages)
	}

	b, err := batch.NewStore(cfg.Storage.BatchDir, batch.DefaultPrefix).Write(res.Codes, time.Now())
	if err != nil {
		ui.PrintError("Failed to write batch: %v", err)
		os.Exit(1)
	}
	ui.PrintSuccess("%d codes from %d pages written to %s", len(b.Codes), res.Pages, b.Path)

	if errors.Is(res.Err, context.Canceled) {
		os.Exit(130)
	}
}
