// Package retry runs transient I/O operations under a bounded constant
// backoff. The clipboard watcher and the gallery crawler share it.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retry loop. MaxAttempts counts the first try; values
// below one are treated as one.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Notify is called after a failed attempt, before waiting wait
type Notify func(attempt int, err error, wait time.Duration)

// Permanent wraps err so Do returns it immediately without retrying
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls fn until it succeeds, returns a Permanent error, the policy runs
// out of attempts, or ctx is done. The last error from fn is returned
// (unwrapped if it was Permanent); ctx.Err() is returned on cancellation.
func Do(ctx context.Context, p Policy, fn func() error, notify Notify) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return fn()
	}, b, func(err error, wait time.Duration) {
		if notify != nil {
			notify(attempt, err, wait)
		}
	})
}
