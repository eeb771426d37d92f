package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) StatusCode() int { return int(s) }

func TestRetry_Do_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(t.Context(), DefaultConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_Do_RetriesTransientThenSucceeds(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	calls := 0
	err := Do(t.Context(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_Do_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("invalid argument")
	calls := 0
	err := Do(t.Context(), DefaultConfig(), func() error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetry_Do_ExhaustsAttempts(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	calls := 0
	err := Do(t.Context(), cfg, func() error {
		calls++
		return errors.New("timeout waiting for response")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestRetry_Do_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 5, BaseBackoff: time.Hour, MaxBackoff: time.Hour}
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Do(ctx, cfg, func() error {
		calls++
		return errors.New("timeout")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetry_IsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"net timeout", &net.DNSError{IsTimeout: true}, true},
		{"connection reset", errors.New("read tcp: connection reset"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"rate limit", errors.New("rate limit exceeded"), true},
		{"status 503", statusErr(503), true},
		{"status 429", statusErr(429), true},
		{"status 400", statusErr(400), false},
		{"plain error", errors.New("invalid input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestRetry_BackoffIsCappedAtMax(t *testing.T) {
	base := 100 * time.Millisecond
	maxBackoff := 300 * time.Millisecond
	for attempt := 1; attempt <= 10; attempt++ {
		got := calculateBackoff(base, maxBackoff, attempt)
		assert.LessOrEqual(t, got, maxBackoff)
	}
}
