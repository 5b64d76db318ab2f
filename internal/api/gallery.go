package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/scorekeeper/internal/codes"
	"github.com/thesavant42/scorekeeper/internal/models"
	"github.com/thesavant42/scorekeeper/internal/retry"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	DefaultGalleryURL = "https://act-hk4e-api.miyoushe.com/event/musicugc/v1/second_page"
	DefaultOrigin     = "https://act.miyoushe.com"
	DefaultReferer    = "https://act.miyoushe.com/ys/event/ugc-music-stable/index.html?mhy_presentation_style=fullscreen&mhy_auth_required=true&game_biz=hk4e_cn"
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"

	DefaultPageSize = 30
	DefaultMaxPages = 50
	DefaultDelay    = 300 * time.Millisecond
	DefaultTimeout  = 12 * time.Second
)

// APIError is an application-level failure reported inside a 200 response
type APIError struct {
	RetCode int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gallery API error: retcode=%d message=%s", e.RetCode, e.Message)
}

// GalleryConfig holds the opaque request settings for the gallery endpoint
type GalleryConfig struct {
	BaseURL   string
	Cookie    string
	Referer   string
	UserAgent string
	Timeout   time.Duration
}

// GalleryClient fetches pages of user-made charts from the gallery API
type GalleryClient struct {
	httpClient *http.Client
	cfg        GalleryConfig
	logger     *log.Logger
}

// NewGalleryClient creates a client. Zero config fields take the defaults.
func NewGalleryClient(cfg GalleryConfig, logger *log.Logger) *GalleryClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGalleryURL
	}
	if cfg.Referer == "" {
		cfg.Referer = DefaultReferer
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	// Session cookies set by the API (SERVERID etc.) are kept across pages
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &GalleryClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

type galleryResponse struct {
	RetCode int    `json:"retcode"`
	Message string `json:"message"`
	Data    struct {
		Slide struct {
			WorkList []struct {
				WorkID    flexString `json:"work_id"`
				ShareCode flexString `json:"share_code"`
				Title     string     `json:"title"`
				Region    string     `json:"region"`
			} `json:"work_list"`
		} `json:"slide"`
	} `json:"data"`
}

// BuildGalleryQuery returns the query string for one page
func BuildGalleryQuery(page, pageSize int) string {
	q := url.Values{}
	q.Set("key", "Button_Jianshang")
	q.Set("is_from_button", "true")
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	q.Set("lang", "zh-cn")
	q.Set("game_biz", "hk4e_cn")
	q.Set("is_mobile", "false")
	return q.Encode()
}

// FetchPage fetches and decodes one page. A non-zero retcode is returned as *APIError.
func (c *GalleryClient) FetchPage(ctx context.Context, page, pageSize int) (*models.GalleryPage, error) {
	rawURL := c.cfg.BaseURL + "?" + BuildGalleryQuery(page, pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", DefaultOrigin)
	req.Header.Set("Referer", c.cfg.Referer)
	if c.cfg.Cookie != "" {
		req.Header.Set("Cookie", c.cfg.Cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gallery API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var payload galleryResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if payload.RetCode != 0 {
		return nil, &APIError{RetCode: payload.RetCode, Message: payload.Message}
	}

	result := &models.GalleryPage{
		Page:  page,
		Works: make([]models.GalleryWork, 0, len(payload.Data.Slide.WorkList)),
	}
	for _, w := range payload.Data.Slide.WorkList {
		result.Works = append(result.Works, models.GalleryWork{
			WorkID:    string(w.WorkID),
			ShareCode: string(w.ShareCode),
			Title:     w.Title,
			Region:    w.Region,
		})
	}

	if c.logger != nil {
		c.logger.Debug("fetched gallery page", "page", page, "works", len(result.Works))
	}
	return result, nil
}

// CrawlOptions bounds a multi-page crawl
type CrawlOptions struct {
	StartPage int
	PageSize  int
	MaxPages  int
	Delay     time.Duration
	// Retry applies per page; application errors are never retried
	Retry retry.Policy
	// OnPage is called after each page with the running totals
	OnPage func(page, works, codes int)
}

func (o *CrawlOptions) applyDefaults() {
	if o.StartPage < 1 {
		o.StartPage = 1
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
}

// Crawl walks pages from StartPage and returns every distinct valid share
// code in first-seen order. It stops after a short page, after MaxPages, or
// on the first page that fails; in the last case the codes gathered so far
// are returned with Err set.
func (c *GalleryClient) Crawl(ctx context.Context, opts CrawlOptions) models.CrawlResult {
	opts.applyDefaults()

	// A zero delay yields an unlimited limiter
	limiter := rate.NewLimiter(rate.Every(opts.Delay), 1)

	result := models.CrawlResult{Codes: []string{}}
	seen := make(map[string]struct{})

	for i := 0; i < opts.MaxPages; i++ {
		page := opts.StartPage + i

		if err := limiter.Wait(ctx); err != nil {
			result.Err = err
			break
		}

		var gp *models.GalleryPage
		err := retry.Do(ctx, opts.Retry, func() error {
			var err error
			gp, err = c.FetchPage(ctx, page, opts.PageSize)
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return retry.Permanent(err)
			}
			return err
		}, func(attempt int, err error, wait time.Duration) {
			if c.logger != nil {
				c.logger.Warn("gallery page failed, retrying", "page", page, "attempt", attempt, "err", err)
			}
		})
		if err != nil {
			if c.logger != nil {
				c.logger.Error("crawl stopped early", "page", page, "err", err, "codes", len(result.Codes))
			}
			result.Err = fmt.Errorf("page %d: %w", page, err)
			break
		}

		result.Pages++
		for _, w := range gp.Works {
			if !codes.IsScoreCode(w.ShareCode) {
				continue
			}
			if _, ok := seen[w.ShareCode]; ok {
				continue
			}
			seen[w.ShareCode] = struct{}{}
			result.Codes = append(result.Codes, w.ShareCode)
		}

		if opts.OnPage != nil {
			opts.OnPage(page, len(gp.Works), len(result.Codes))
		}

		if len(gp.Works) < opts.PageSize {
			break
		}
	}

	if c.logger != nil {
		c.logger.Info("crawl finished", "pages", result.Pages, "codes", len(result.Codes))
	}
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
