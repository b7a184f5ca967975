package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestLimiter_Allow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewLimiter(10 * time.Second)
	limiter.SetClock(clock.Now)

	// First call for a fresh user is allowed.
	ok, retryAfter := limiter.Allow("user-1")
	require.True(t, ok)
	assert.Zero(t, retryAfter)

	// An immediate second call is rejected with the full window left.
	ok, retryAfter = limiter.Allow("user-1")
	require.False(t, ok)
	assert.Equal(t, 10, retryAfter)

	// Another user is unaffected.
	ok, _ = limiter.Allow("user-2")
	assert.True(t, ok)

	// Partway through the window the remaining wait shrinks.
	clock.Advance(4 * time.Second)
	ok, retryAfter = limiter.Allow("user-1")
	require.False(t, ok)
	assert.Equal(t, 6, retryAfter)

	// After the window passes the user is allowed again.
	clock.Advance(7 * time.Second)
	ok, retryAfter = limiter.Allow("user-1")
	require.True(t, ok)
	assert.Zero(t, retryAfter)
}

func TestLimiter_SlidingWindow(t *testing.T) {
	// The window restarts from the most recent allowed call, not a
	// fixed schedule.
	clock := &fakeClock{now: time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewLimiter(10 * time.Second)
	limiter.SetClock(clock.Now)

	ok, _ := limiter.Allow("user-1")
	require.True(t, ok)

	clock.Advance(11 * time.Second)
	ok, _ = limiter.Allow("user-1")
	require.True(t, ok)

	// Only 9s since the second allowed call, so this is rejected even
	// though 20s passed since the first.
	clock.Advance(9 * time.Second)
	ok, retryAfter := limiter.Allow("user-1")
	require.False(t, ok)
	assert.Equal(t, 1, retryAfter)
}

func TestLimiter_Cleanup(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewLimiter(10 * time.Second)
	limiter.SetClock(clock.Now)

	limiter.Allow("stale-user")
	clock.Advance(25 * time.Second) // older than 2x window
	limiter.Allow("fresh-user")

	require.Equal(t, 2, limiter.Len())
	limiter.Cleanup()
	assert.Equal(t, 1, limiter.Len())

	// The fresh user survives the sweep and stays tracked.
	ok, _ := limiter.Allow("fresh-user")
	assert.False(t, ok)
}

func TestLimiter_SweepStopsOnCancel(t *testing.T) {
	limiter := NewLimiter(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.Sweep(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop after context cancellation")
	}
}
