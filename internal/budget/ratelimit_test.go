package budget

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_SpacesCallsFromCompletion(t *testing.T) {
	now := time.Unix(1000, 0)
	var slept []time.Duration
	l := NewRateLimiter(200 * time.Millisecond)
	l.now = func() time.Time { return now }
	l.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}

	ctx := context.Background()

	// First call goes straight through.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	now = now.Add(500 * time.Millisecond) // call runtime
	l.Release()
	if len(slept) != 0 {
		t.Fatalf("first call must not wait, slept %v", slept)
	}

	// Immediate follow-up waits the full spacing window, measured from
	// the previous completion rather than its start.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	l.Release()
	if len(slept) != 1 || slept[0] != 200*time.Millisecond {
		t.Fatalf("expected one 200ms wait, got %v", slept)
	}

	// A call arriving after the window passes does not wait.
	now = now.Add(300 * time.Millisecond)
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	l.Release()
	if len(slept) != 1 {
		t.Fatalf("expected no extra waits, got %v", slept)
	}
}

func TestRateLimiter_CancelledContext(t *testing.T) {
	l := NewRateLimiter(time.Hour)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The slot must be free again after a failed acquire.
	l.lastDone = time.Time{}
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after failed acquire: %v", err)
	}
	l.Release()
}
