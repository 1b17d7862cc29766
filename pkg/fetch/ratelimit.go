package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RateLimiter is a turnstile: it guarantees that the starts of two
// consecutive fetches gated by the same instance are at least `delay`
// apart. It reserves a start slot under the mutex and sleeps outside it,
// so concurrent callers (e.g. batch seeds sharing one limiter) queue up
// without blocking each other's cancellation.
type RateLimiter struct {
	mu    sync.Mutex
	next  time.Time // Earliest time the next Acquire may return
	delay time.Duration
	log   *logrus.Entry
}

// NewRateLimiter creates a RateLimiter enforcing the given minimum spacing.
// A zero or negative delay disables waiting entirely.
func NewRateLimiter(delay time.Duration, log *logrus.Entry) *RateLimiter {
	return &RateLimiter{
		delay: delay,
		log:   log,
	}
}

// Delay returns the configured minimum spacing.
func (rl *RateLimiter) Delay() time.Duration {
	return rl.delay
}

// Acquire blocks until at least the configured delay has elapsed since the
// previous Acquire's slot. The first call never blocks. Returns early with
// the context error if ctx is cancelled while waiting.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	if rl.delay <= 0 {
		return ctx.Err()
	}

	rl.mu.Lock()
	now := time.Now()
	slot := rl.next
	if slot.Before(now) {
		slot = now
	}
	rl.next = slot.Add(rl.delay)
	rl.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return ctx.Err()
	}

	rl.log.WithFields(logrus.Fields{"sleep": wait, "required_delay": rl.delay}).
		Debug("Rate limit applying sleep")

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
