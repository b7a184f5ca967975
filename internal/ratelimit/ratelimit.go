package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Limiter enforces a sliding per-user cooldown: each allowed call
// restarts the window from that call, so a user can never be served
// faster than once per window.
type Limiter struct {
	mu       sync.Mutex
	window   time.Duration
	lastSeen map[string]time.Time
	now      func() time.Time
}

func NewLimiter(window time.Duration) *Limiter {
	return &Limiter{
		window:   window,
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// SetClock overrides the limiter's clock for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Allow reports whether the user may be served now. When rejected, the
// second return value is the whole number of seconds to wait. The
// check-then-set runs under one lock so two near-simultaneous calls
// from the same user cannot both pass.
func (l *Limiter) Allow(userID string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.lastSeen[userID]; ok {
		elapsed := now.Sub(last)
		if elapsed < l.window {
			retryAfter := int(math.Ceil((l.window - elapsed).Seconds()))
			return false, retryAfter
		}
	}

	l.lastSeen[userID] = now
	return true, 0
}

// Cleanup drops entries older than twice the window, bounding memory
// for inactive users.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-2 * l.window)
	for userID, last := range l.lastSeen {
		if last.Before(cutoff) {
			delete(l.lastSeen, userID)
		}
	}
}

// Sweep runs Cleanup on a fixed interval until the context is
// cancelled. It is independent of request handling and never blocks it
// beyond the per-call lock.
func (l *Limiter) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// Len reports the number of tracked users.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lastSeen)
}
