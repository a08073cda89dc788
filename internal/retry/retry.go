// Package retry implements the two retry shapes the gas pool core
// depends on throughout: retrying forever (coin return, expiration
// reconciliation, chain reads) and retrying up to a fixed attempt
// count (signing, transaction submission). Both back off
// exponentially with jitter and never grow past a capped ceiling; once
// the ceiling is reached, pacing is handed off to a token-bucket
// limiter so a stuck dependency is polled at a steady, bounded rate
// instead of busy-looping.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// ErrMaxAttemptsExceeded is returned by Forever's sibling, WithMaxAttempts,
// when every attempt has failed.
var ErrMaxAttemptsExceeded = errors.New("retry: max attempts exceeded")

// Forever calls fn until it succeeds, sleeping with capped exponential
// backoff and jitter between attempts. It only returns when fn returns
// a nil error, or when ctx is cancelled. Callers use this for paths the
// spec requires to never surface a failure to the user: coin return,
// expiration-id reconciliation, and all chain-client reads.
func Forever(ctx context.Context, fn func() error) error {
	backoff := initialBackoff
	limiter := rate.NewLimiter(rate.Every(maxBackoff), 1)
	for attempt := 0; ; attempt++ {
		if err := fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if backoff >= maxBackoff {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			continue
		}
		if err := sleep(ctx, jitter(backoff)); err != nil {
			return err
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// WithMaxAttempts calls fn up to maxAttempts times, backing off between
// attempts the same way Forever does. It returns the last error
// observed, wrapped in ErrMaxAttemptsExceeded, if every attempt fails.
func WithMaxAttempts(ctx context.Context, maxAttempts int, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts-1 {
			break
		}
		if err := sleep(ctx, jitter(backoff)); err != nil {
			return err
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return errors.Join(ErrMaxAttemptsExceeded, lastErr)
}

func jitter(d time.Duration) time.Duration {
	// +/- 25% jitter keeps many callers from synchronizing their retries.
	delta := time.Duration(rand.Int63n(int64(d) / 2))
	return d*3/4 + delta
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
