// Package clipboard polls the system clipboard and announces newly copied
// score codes on the live event channel.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/thesavant42/scorekeeper/internal/codes"
	"github.com/thesavant42/scorekeeper/internal/models"
	"github.com/thesavant42/scorekeeper/internal/retry"
)

// Reader returns the current clipboard text
type Reader interface {
	ReadAll() (string, error)
}

// StatusStore looks up the current state of a code
type StatusStore interface {
	ScoreStatus(ctx context.Context, code string) (models.ScoreStatus, error)
}

// Publisher receives clipboard events
type Publisher interface {
	Publish(models.Event)
}

// SystemReader reads the OS clipboard
type SystemReader struct{}

func (SystemReader) ReadAll() (string, error) {
	return clipboard.ReadAll()
}

// Options tune the polling loop
type Options struct {
	Interval time.Duration
	Retry    retry.Policy
	Cooldown time.Duration
}

// DefaultOptions polls twice a second, retries a failing tick three times a
// second apart, then backs off for two seconds
func DefaultOptions() Options {
	return Options{
		Interval: 500 * time.Millisecond,
		Retry:    retry.Policy{MaxAttempts: 3, Delay: time.Second},
		Cooldown: 2 * time.Second,
	}
}

// Watcher owns the clipboard state. Use one Watcher per process.
type Watcher struct {
	reader    Reader
	store     StatusStore
	publisher Publisher
	logger    *log.Logger
	opts      Options

	lastContent string
	currentCode string
}

// NewWatcher creates a watcher. A nil reader means the system clipboard.
func NewWatcher(reader Reader, store StatusStore, publisher Publisher, logger *log.Logger, opts Options) *Watcher {
	if reader == nil {
		reader = SystemReader{}
	}
	return &Watcher{
		reader:    reader,
		store:     store,
		publisher: publisher,
		logger:    logger.WithPrefix("clipboard"),
		opts:      opts,
	}
}

// CurrentCode returns the last valid score code seen. Only safe to call from
// the goroutine running Run, or after it returns.
func (w *Watcher) CurrentCode() string {
	return w.currentCode
}

// Run polls until ctx is cancelled. Errors never stop the loop: a failing
// tick is retried per the retry policy and, once that is exhausted, the
// watcher sleeps for the cooldown before polling again.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching clipboard", "interval", w.opts.Interval)

	for {
		err := retry.Do(ctx, w.opts.Retry, func() error {
			return w.Poll(ctx)
		}, func(attempt int, err error, wait time.Duration) {
			w.logger.Warn("clipboard poll failed, retrying", "attempt", attempt, "max", w.opts.Retry.MaxAttempts, "err", err)
		})

		wait := w.opts.Interval
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("clipboard poll failed, cooling down", "err", err, "cooldown", w.opts.Cooldown)
			wait = w.opts.Cooldown
		}

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Poll performs one read-compare-publish step. It publishes at most one event
// and only when the clipboard holds new, non-empty text that is a score code.
func (w *Watcher) Poll(ctx context.Context) error {
	content, err := w.reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read clipboard: %w", err)
	}
	if content == "" || content == w.lastContent {
		return nil
	}

	if !codes.IsScoreCode(content) {
		w.lastContent = content
		return nil
	}

	status, err := w.store.ScoreStatus(ctx, content)
	if err != nil {
		// lastContent stays stale so the retry looks the code up again
		return fmt.Errorf("failed to look up %s: %w", content, err)
	}

	w.lastContent = content
	w.currentCode = content
	w.logger.Debug("score code detected", "code", content, "exists", status.Exists)

	w.publisher.Publish(models.Event{
		Type: models.EventClipboardUpdate,
		Data: models.NewClipboardCode(status),
	})
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ErrUnavailable is returned by readers with no clipboard to read
var ErrUnavailable = errors.New("clipboard unavailable")

// Available reports whether the system clipboard can be used on this host
func Available() bool {
	return !clipboard.Unsupported
}

// WriteAll replaces the system clipboard text
func WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	return clipboard.WriteAll(text)
}
