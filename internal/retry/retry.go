package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"subtrans/internal/llm"
	"subtrans/pkg/log"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 60 * time.Second
)

// Sleeper waits for the given duration or until the context is done.
// Injectable so tests can observe delays without sleeping.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy bounds retries of a single batch's request cycle.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Sleep       Sleeper
}

// DefaultPolicy returns the stock policy: 3 attempts, 2s base delay.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Do runs op up to MaxAttempts times, sleeping between attempts on
// transient failures. It returns the number of attempts made and the
// final error. Non-transient errors and parent-context cancellation
// stop the loop immediately.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := p.delay(attempt, lastErr)
			log.Warn("transient failure (attempt %d/%d), retrying in %s: %v",
				attempt-1, maxAttempts, delay, lastErr)
			if err := p.sleep(ctx, delay); err != nil {
				return attempt - 1, lastErr
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, lastErr
		}
		if !IsTransient(lastErr) {
			return attempt, lastErr
		}
	}

	return maxAttempts, lastErr
}

// delay picks the wait before the given attempt (1-indexed, ≥2):
// BaseDelay * 2^(attempt-2), capped at MaxDelay. A server-provided
// Retry-After hint takes precedence over the computed backoff.
func (p Policy) delay(attempt int, err error) time.Duration {
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return p.cap(statusErr.RetryAfter)
	}

	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	delay := base
	for i := 2; i < attempt; i++ {
		delay *= 2
		if maxDelay := p.maxDelay(); delay >= maxDelay {
			return maxDelay
		}
	}
	return p.cap(delay)
}

func (p Policy) maxDelay() time.Duration {
	if p.MaxDelay <= 0 {
		return DefaultMaxDelay
	}
	return p.MaxDelay
}

func (p Policy) cap(d time.Duration) time.Duration {
	if maxDelay := p.maxDelay(); d > maxDelay {
		return maxDelay
	}
	return d
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsTransient classifies an error as worth retrying: request timeouts,
// connection failures, and rate-limit or server-error statuses.
// Cancellation, auth failures and malformed responses are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	// per-request deadline hit while the parent context is still live
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return false
}
