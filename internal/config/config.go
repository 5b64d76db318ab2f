// Package config loads scorekeeper settings from defaults, an optional YAML
// file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/thesavant42/scorekeeper/internal/api"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Clipboard ClipboardConfig `yaml:"clipboard"`
	Gallery   GalleryConfig   `yaml:"gallery"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Listen    string `yaml:"listen"`
	CopyURL   bool   `yaml:"copy_url"`
	MaxUpload int64  `yaml:"max_upload_mb"`
}

// StorageConfig holds on-disk locations
type StorageConfig struct {
	Database  string `yaml:"database"`
	BackupDir string `yaml:"backup_dir"`
	BatchDir  string `yaml:"batch_dir"`
	UploadDir string `yaml:"upload_dir"`
}

// ClipboardConfig tunes the watcher loop
type ClipboardConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	MaxRetries int           `yaml:"max_retries"`
	Cooldown   time.Duration `yaml:"cooldown"`
}

// GalleryConfig holds the scrape target and crawl bounds
type GalleryConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Cookie    string        `yaml:"cookie"`
	Referer   string        `yaml:"referer"`
	UserAgent string        `yaml:"user_agent"`
	PageSize  int           `yaml:"page_size"`
	MaxPages  int           `yaml:"max_pages"`
	Delay     time.Duration `yaml:"delay"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:    ":5005",
			CopyURL:   true,
			MaxUpload: 200,
		},
		Storage: StorageConfig{
			Database:  "scores.db",
			BackupDir: "backups",
			BatchDir:  "batches",
			UploadDir: "uploads",
		},
		Clipboard: ClipboardConfig{
			Enabled:    true,
			Interval:   500 * time.Millisecond,
			RetryDelay: time.Second,
			MaxRetries: 3,
			Cooldown:   2 * time.Second,
		},
		Gallery: GalleryConfig{
			BaseURL:  api.DefaultGalleryURL,
			PageSize: 30,
			MaxPages: 50,
			Delay:    300 * time.Millisecond,
			Timeout:  12 * time.Second,
			Retries:  1,
		},
		LogLevel: "info",
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SCOREKEEPER_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("SCOREKEEPER_COPY_URL"); v != "" {
		c.Server.CopyURL = v == "true"
	}
	if v := os.Getenv("SCOREKEEPER_DB"); v != "" {
		c.Storage.Database = v
	}
	if v := os.Getenv("SCOREKEEPER_BACKUP_DIR"); v != "" {
		c.Storage.BackupDir = v
	}
	if v := os.Getenv("SCOREKEEPER_BATCH_DIR"); v != "" {
		c.Storage.BatchDir = v
	}
	if v := os.Getenv("SCOREKEEPER_UPLOAD_DIR"); v != "" {
		c.Storage.UploadDir = v
	}
	if v := os.Getenv("SCOREKEEPER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SCOREKEEPER_CLIPBOARD"); v != "" {
		c.Clipboard.Enabled = v == "true"
	}
	if v := os.Getenv("SCOREKEEPER_CLIPBOARD_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SCOREKEEPER_CLIPBOARD_INTERVAL value: %w", err)
		}
		c.Clipboard.Interval = d
	}
	if v := os.Getenv("GALLERY_URL"); v != "" {
		c.Gallery.BaseURL = v
	}
	if v := os.Getenv("GALLERY_COOKIE"); v != "" {
		c.Gallery.Cookie = v
	}
	if v := os.Getenv("GALLERY_REFERER"); v != "" {
		c.Gallery.Referer = v
	}
	if v := os.Getenv("GALLERY_MAX_PAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GALLERY_MAX_PAGES value: %w", err)
		}
		c.Gallery.MaxPages = n
	}
	if v := os.Getenv("GALLERY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid GALLERY_DELAY value: %w", err)
		}
		c.Gallery.Delay = d
	}
	return nil
}

// Validate rejects settings the components cannot run with
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return errors.New("server.listen must not be empty")
	}
	if c.Storage.Database == "" {
		return errors.New("storage.database must not be empty")
	}
	if c.Clipboard.Interval <= 0 {
		return fmt.Errorf("clipboard.interval must be positive, got %s", c.Clipboard.Interval)
	}
	if c.Clipboard.MaxRetries < 1 {
		return fmt.Errorf("clipboard.max_retries must be at least 1, got %d", c.Clipboard.MaxRetries)
	}
	if c.Gallery.PageSize < 1 || c.Gallery.MaxPages < 1 {
		return fmt.Errorf("gallery.page_size and gallery.max_pages must be at least 1")
	}
	return nil
}
