// Debug tool to fetch one gallery page directly
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/thesavant42/scorekeeper/internal/api"
	"github.com/thesavant42/scorekeeper/internal/codes"
	"github.com/thesavant42/scorekeeper/internal/config"
)

func main() {
	_ = godotenv.Load()

	page := flag.Int("page", 1, "Page number")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           log.DebugLevel,
		ReportTimestamp: true,
	})

	// Defaults plus GALLERY_* environment overrides
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Fetching page %d from %s\n", *page, cfg.Gallery.BaseURL)
	fmt.Printf("Query: %s\n", api.BuildGalleryQuery(*page, cfg.Gallery.PageSize))

	client := api.NewGalleryClient(cfg.Gallery.ClientConfig(), logger)
	resp, err := client.FetchPage(context.Background(), *page, cfg.Gallery.PageSize)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Works: %d\n", len(resp.Works))

	fmt.Println("\nShare codes:")
	valid := 0
	for i, w := range resp.Works {
		mark := "skip"
		if codes.IsScoreCode(w.ShareCode) {
			mark = "ok"
			valid++
		}
		fmt.Printf("  %2d. %-10s %s\n", i+1, w.ShareCode, mark)
	}
	fmt.Printf("\n%d of %d are valid score codes\n", valid, len(resp.Works))
}
