package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrans/internal/llm"
)

// recordingSleeper captures requested delays without actually waiting.
type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func testPolicy(s *recordingSleeper) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
		Sleep:       s.sleep,
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestDoSucceedsFirstAttempt(t *testing.T) {
	sleeper := &recordingSleeper{}
	policy := testPolicy(sleeper)

	calls := 0
	attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	sleeper := &recordingSleeper{}
	policy := testPolicy(sleeper)

	calls := 0
	attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return timeoutErr{}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.delays)
}

func TestDoExhaustsAttempts(t *testing.T) {
	sleeper := &recordingSleeper{}
	policy := testPolicy(sleeper)

	wantErr := timeoutErr{}
	attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
		return wantErr
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, wantErr, err)
	// exponential: 2s before attempt 2, 4s before attempt 3
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.delays)
}

func TestDoStopsOnNonTransient(t *testing.T) {
	sleeper := &recordingSleeper{}
	policy := testPolicy(sleeper)

	wantErr := errors.New("invalid model")
	calls := 0
	attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	sleeper := &recordingSleeper{}
	policy := testPolicy(sleeper)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := policy.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return timeoutErr{}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDelayHonorsRetryAfter(t *testing.T) {
	policy := DefaultPolicy()
	err := &llm.StatusError{StatusCode: 429, RetryAfter: 7 * time.Second}
	assert.Equal(t, 7*time.Second, policy.delay(2, err))
}

func TestDelayCapped(t *testing.T) {
	policy := Policy{MaxAttempts: 10, BaseDelay: 2 * time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, 2*time.Second, policy.delay(2, nil))
	assert.Equal(t, 4*time.Second, policy.delay(3, nil))
	assert.Equal(t, 5*time.Second, policy.delay(4, nil))
	assert.Equal(t, 5*time.Second, policy.delay(9, nil))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "status 408", err: &llm.StatusError{StatusCode: 408}, want: true},
		{name: "status 429", err: &llm.StatusError{StatusCode: 429}, want: true},
		{name: "status 500", err: &llm.StatusError{StatusCode: 500}, want: true},
		{name: "status 503", err: &llm.StatusError{StatusCode: 503}, want: true},
		{name: "status 400", err: &llm.StatusError{StatusCode: 400}, want: false},
		{name: "status 401", err: &llm.StatusError{StatusCode: 401}, want: false},
		{name: "status 404", err: &llm.StatusError{StatusCode: 404}, want: false},
		{name: "wrapped status", err: fmt.Errorf("chat completion failed: %w", &llm.StatusError{StatusCode: 502}), want: true},
		{name: "net timeout", err: timeoutErr{}, want: true},
		{name: "url timeout", err: &url.Error{Op: "Post", URL: "http://x", Err: timeoutErr{}}, want: true},
		{name: "connection refused", err: &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}}, want: true},
		{name: "request deadline", err: &url.Error{Op: "Post", URL: "http://x", Err: context.DeadlineExceeded}, want: true},
		{name: "cancelled", err: context.Canceled, want: false},
		{name: "wrapped cancelled", err: &url.Error{Op: "Post", URL: "http://x", Err: context.Canceled}, want: false},
		{name: "api error", err: &llm.Error{Message: "invalid key", Type: "authentication_error"}, want: false},
		{name: "bad scheme", err: &url.Error{Op: "Post", URL: "ht!tp://x", Err: errors.New("unsupported protocol scheme")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
