// Package budget guards external-analysis spend against a daily cap and
// enforces minimum spacing between analysis calls. One Tracker instance is
// shared by every video processed in the running process.
package budget

import "sync"

// Snapshot is the read-only observability view of tracker state.
type Snapshot struct {
	Cap          float64 `json:"cap"`
	Spent        float64 `json:"spent"`
	RequestCount int     `json:"request_count"`
	Tokens       int     `json:"total_tokens"`
}

// Remaining reports headroom under the cap, never negative.
func (s Snapshot) Remaining() float64 {
	if s.Spent >= s.Cap {
		return 0
	}
	return s.Cap - s.Spent
}

// Tracker accumulates spend for one budget epoch. Reserve-then-record is a
// small transaction: the check-and-increment in Reserve is atomic under the
// mutex, and every successful reservation must be finished with exactly one
// Commit or Release.
type Tracker struct {
	mu     sync.Mutex
	cap    float64
	spent  float64
	count  int
	tokens int
}

func NewTracker(capUSD float64) *Tracker {
	return &Tracker{cap: capUSD}
}

// Seed restores persisted epoch state, replacing current counters.
func (t *Tracker) Seed(spent float64, requests, tokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spent = spent
	t.count = requests
	t.tokens = tokens
}

// Reserve holds estimate against the cap. It succeeds only while
// spent + estimate stays within the cap; on failure state is unchanged and a
// later, smaller reservation may still succeed.
func (t *Tracker) Reserve(estimate float64) (*Reservation, bool) {
	if estimate < 0 {
		estimate = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spent+estimate > t.cap {
		return nil, false
	}
	t.spent += estimate
	return &Reservation{tracker: t, estimate: estimate}, true
}

// Reset zeroes spend and counters, starting a new epoch. Callers decide when
// a new day begins; the tracker never resets on its own.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spent = 0
	t.count = 0
	t.tokens = 0
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{Cap: t.cap, Spent: t.spent, RequestCount: t.count, Tokens: t.tokens}
}

// Reservation is one in-flight hold on the budget.
type Reservation struct {
	tracker  *Tracker
	estimate float64
	done     bool
}

// Commit finalizes the reservation with the real cost. Actual cost above the
// estimate may push spend past the cap; that is accepted and surfaced via
// Snapshot rather than rejected after the fact.
func (r *Reservation) Commit(actual float64, tokens int) {
	if r == nil || r.done {
		return
	}
	r.done = true
	t := r.tracker
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spent += actual - r.estimate
	if t.spent < 0 {
		t.spent = 0
	}
	t.count++
	t.tokens += tokens
}

// Release returns the held estimate for a call that never happened.
func (r *Reservation) Release() {
	if r == nil || r.done {
		return
	}
	r.done = true
	t := r.tracker
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spent -= r.estimate
	if t.spent < 0 {
		t.spent = 0
	}
}
