package config

import (
	"github.com/charmbracelet/log"
	"github.com/thesavant42/scorekeeper/internal/api"
	"github.com/thesavant42/scorekeeper/internal/clipboard"
	"github.com/thesavant42/scorekeeper/internal/retry"
)

// ClientConfig returns the HTTP settings for the gallery client
func (g GalleryConfig) ClientConfig() api.GalleryConfig {
	return api.GalleryConfig{
		BaseURL:   g.BaseURL,
		Cookie:    g.Cookie,
		Referer:   g.Referer,
		UserAgent: g.UserAgent,
		Timeout:   g.Timeout,
	}
}

// CrawlOptions returns the crawl bounds. Retries counts extra attempts per page.
func (g GalleryConfig) CrawlOptions() api.CrawlOptions {
	return api.CrawlOptions{
		StartPage: 1,
		PageSize:  g.PageSize,
		MaxPages:  g.MaxPages,
		Delay:     g.Delay,
		Retry:     retry.Policy{MaxAttempts: g.Retries + 1, Delay: g.Delay},
	}
}

// WatcherOptions returns the clipboard polling settings
func (c ClipboardConfig) WatcherOptions() clipboard.Options {
	return clipboard.Options{
		Interval: c.Interval,
		Retry:    retry.Policy{MaxAttempts: c.MaxRetries, Delay: c.RetryDelay},
		Cooldown: c.Cooldown,
	}
}

// Level parses LogLevel, falling back to info
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
