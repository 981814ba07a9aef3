package budget

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a minimum-spacing gate for analysis calls: the next call
// may not start until delay has elapsed since the previous call completed.
// It also serializes calls — at most one holder at a time — so budget
// accounting observes calls strictly in order. Not a token bucket.
type RateLimiter struct {
	delay time.Duration

	slot     sync.Mutex
	lastDone time.Time
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

func NewRateLimiter(delay time.Duration) *RateLimiter {
	return &RateLimiter{
		delay: delay,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Acquire blocks until the spacing window has passed, then holds the single
// call slot. Every successful Acquire must be paired with Release.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	l.slot.Lock()
	if !l.lastDone.IsZero() {
		if wait := l.delay - l.now().Sub(l.lastDone); wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				l.slot.Unlock()
				return err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		l.slot.Unlock()
		return err
	}
	return nil
}

// Release marks the in-flight call complete; spacing for the next call is
// measured from this moment, not from when the call started.
func (l *RateLimiter) Release() {
	l.lastDone = l.now()
	l.slot.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
