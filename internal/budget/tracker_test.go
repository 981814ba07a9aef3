package budget

import (
	"math"
	"sync"
	"testing"
)

func TestReserve_RejectsOverCap(t *testing.T) {
	tr := NewTracker(1.0)
	tr.Seed(0.95, 3, 1200)

	res, ok := tr.Reserve(0.10)
	if ok || res != nil {
		t.Fatalf("expected reservation to be rejected")
	}
	if got := tr.Snapshot().Spent; got != 0.95 {
		t.Fatalf("spent changed on rejected reservation: %v", got)
	}

	// A smaller estimate can still fit in the remaining headroom.
	res, ok = tr.Reserve(0.05)
	if !ok {
		t.Fatalf("expected small reservation to fit")
	}
	res.Release()
}

func TestCommit_ReconcilesActualCost(t *testing.T) {
	tr := NewTracker(10)

	res, ok := tr.Reserve(0.50)
	if !ok {
		t.Fatalf("reserve failed")
	}
	res.Commit(0.30, 800)

	snap := tr.Snapshot()
	if math.Abs(snap.Spent-0.30) > 1e-9 {
		t.Fatalf("expected spent 0.30 after reconcile, got %v", snap.Spent)
	}
	if snap.RequestCount != 1 || snap.Tokens != 800 {
		t.Fatalf("unexpected counters: %+v", snap)
	}

	// Actual above estimate may push spend over the cap at commit time;
	// that is surfaced, not rejected.
	tr2 := NewTracker(1.0)
	res2, _ := tr2.Reserve(0.90)
	res2.Commit(1.20, 100)
	if got := tr2.Snapshot().Spent; math.Abs(got-1.20) > 1e-9 {
		t.Fatalf("expected spent 1.20, got %v", got)
	}
}

func TestRelease_ReturnsEstimate(t *testing.T) {
	tr := NewTracker(5)
	res, _ := tr.Reserve(1.25)
	res.Release()

	snap := tr.Snapshot()
	if snap.Spent != 0 {
		t.Fatalf("expected spent 0 after release, got %v", snap.Spent)
	}
	if snap.RequestCount != 0 {
		t.Fatalf("released reservation must not count as a request")
	}

	// Double-finish is a no-op.
	res.Release()
	res.Commit(9, 9)
	if got := tr.Snapshot().Spent; got != 0 {
		t.Fatalf("double finish mutated state: %v", got)
	}
}

func TestReset_StartsNewEpoch(t *testing.T) {
	tr := NewTracker(2)
	res, _ := tr.Reserve(1.5)
	res.Commit(1.5, 500)
	tr.Reset()

	snap := tr.Snapshot()
	if snap.Spent != 0 || snap.RequestCount != 0 || snap.Tokens != 0 {
		t.Fatalf("expected zeroed state after reset, got %+v", snap)
	}
	if snap.Cap != 2 {
		t.Fatalf("reset must keep the cap, got %v", snap.Cap)
	}
}

func TestReserve_AtomicUnderContention(t *testing.T) {
	tr := NewTracker(1.0)

	var wg sync.WaitGroup
	granted := make(chan *Reservation, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res, ok := tr.Reserve(0.1); ok {
				granted <- res
			}
		}()
	}
	wg.Wait()
	close(granted)

	n := 0
	for res := range granted {
		n++
		res.Commit(0.1, 10)
	}
	if n != 10 {
		t.Fatalf("expected exactly 10 grants under a 1.0 cap, got %d", n)
	}
	if got := tr.Snapshot().Spent; math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected spent 1.0, got %v", got)
	}
}

func TestSnapshot_Remaining(t *testing.T) {
	if got := (Snapshot{Cap: 1, Spent: 0.4}).Remaining(); math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("remaining = %v", got)
	}
	if got := (Snapshot{Cap: 1, Spent: 1.3}).Remaining(); got != 0 {
		t.Fatalf("overspent remaining must clamp to 0, got %v", got)
	}
}
