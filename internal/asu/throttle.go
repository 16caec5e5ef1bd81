package asu

import (
	"context"
	"sync"
	"time"
)

// Throttle gates outbound provider calls. Wait blocks until the next call
// is allowed or the context is cancelled.
type Throttle interface {
	Wait(ctx context.Context) error
}

// NewThrottle returns a throttle enforcing a fixed minimum delay between
// consecutive calls. The provider bans clients that query faster than
// roughly once per two seconds.
func NewThrottle(delay time.Duration) Throttle {
	return &fixedDelay{delay: delay}
}

type fixedDelay struct {
	mu   sync.Mutex
	last time.Time

	delay time.Duration
}

func (t *fixedDelay) Wait(ctx context.Context) error {
	t.mu.Lock()
	now := time.Now()
	next := t.last.Add(t.delay)
	if next.Before(now) {
		next = now
	}
	t.last = next
	t.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoThrottle skips the delay entirely. Used in tests.
type NoThrottle struct{}

func (NoThrottle) Wait(context.Context) error { return nil }
