package models

import "time"

// GalleryWork is the subset of a gallery work entry the crawler reads
type GalleryWork struct {
	WorkID    string `json:"work_id"`
	ShareCode string `json:"share_code"`
	Title     string `json:"title"`
	Region    string `json:"region"`
}

// GalleryPage is one page of gallery works
type GalleryPage struct {
	Page  int
	Works []GalleryWork
}

// CrawlResult is the outcome of a multi-page crawl. Err is set when the crawl
// stopped early on a failing page; Codes still holds everything gathered before it.
type CrawlResult struct {
	Codes []string
	Pages int
	Err   error
}

// ScrapeStatus describes the background scrape job
type ScrapeStatus struct {
	Running    bool      `json:"running"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Pages      int       `json:"pages"`
	Codes      int       `json:"codes"`
	Filename   string    `json:"filename,omitempty"`
	Error      string    `json:"error,omitempty"`
}
