package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fifteenfame/viralcut/internal/budget"
	"github.com/fifteenfame/viralcut/internal/ports"
	"github.com/fifteenfame/viralcut/internal/types"
)

type fakeClient struct {
	calls   int
	results []func() (types.Analysis, error)
}

func (f *fakeClient) Analyze(_ context.Context, _ string, _ ports.AnalysisHints) (types.Analysis, error) {
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i]()
}

type flatPricing struct{ cost float64 }

func (p flatPricing) EstimateCost(int) float64    { return p.cost }
func (p flatPricing) EstimateTokens(s string) int { return len(s) }

func newAnalyzer(client ports.AnalysisClient, tracker *budget.Tracker, cost float64) *Analyzer {
	return New(client, tracker, budget.NewRateLimiter(0), flatPricing{cost: cost})
}

func okAnalysis() (types.Analysis, error) {
	return types.Analysis{
		Scores: types.AIScores{
			ViralPotential:     8,
			EmotionalIntensity: 12, // out of range on purpose
			Controversy:        -2,
			Relatability:       6,
			EducationalValue:   4,
			Entertainment:      7,
		},
		Reasoning: "engaging moment",
		Tokens:    900,
		Cost:      0.02,
	}, nil
}

func TestAnalyze_SuccessClampsAndCommits(t *testing.T) {
	tracker := budget.NewTracker(1.0)
	a := newAnalyzer(&fakeClient{results: []func() (types.Analysis, error){okAnalysis}}, tracker, 0.05)

	an, err := a.Analyze(context.Background(), "a funny transcript", ports.AnalysisHints{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if an.Scores.EmotionalIntensity != 10 {
		t.Fatalf("expected 12 clamped to 10, got %v", an.Scores.EmotionalIntensity)
	}
	if an.Scores.Controversy != 0 {
		t.Fatalf("expected -2 clamped to 0, got %v", an.Scores.Controversy)
	}

	snap := tracker.Snapshot()
	if snap.RequestCount != 1 || snap.Tokens != 900 {
		t.Fatalf("usage not recorded: %+v", snap)
	}
	if snap.Spent != 0.02 {
		t.Fatalf("expected reconciled spend 0.02, got %v", snap.Spent)
	}
}

func TestAnalyze_BudgetExhausted(t *testing.T) {
	tracker := budget.NewTracker(1.0)
	tracker.Seed(0.98, 5, 100)
	client := &fakeClient{results: []func() (types.Analysis, error){okAnalysis}}
	a := newAnalyzer(client, tracker, 0.05)

	_, err := a.Analyze(context.Background(), "some transcript", ports.AnalysisHints{})
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("no call may happen once reserve fails, got %d calls", client.calls)
	}
	if got := tracker.Snapshot().Spent; got != 0.98 {
		t.Fatalf("spent changed by rejected reservation: %v", got)
	}
}

func TestAnalyze_TransientRetriedOnce(t *testing.T) {
	tracker := budget.NewTracker(1.0)
	client := &fakeClient{results: []func() (types.Analysis, error){
		func() (types.Analysis, error) { return types.Analysis{}, Transient(errors.New("status 503")) },
		okAnalysis,
	}}
	a := newAnalyzer(client, tracker, 0.05)

	if _, err := a.Analyze(context.Background(), "transcript", ports.AnalysisHints{}); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", client.calls)
	}
}

func TestAnalyze_TransientFailsAfterOneRetry(t *testing.T) {
	tracker := budget.NewTracker(1.0)
	client := &fakeClient{results: []func() (types.Analysis, error){
		func() (types.Analysis, error) { return types.Analysis{}, Transient(context.DeadlineExceeded) },
	}}
	a := newAnalyzer(client, tracker, 0.05)

	_, err := a.Analyze(context.Background(), "transcript", ports.AnalysisHints{})
	if !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("expected ErrAIUnavailable, got %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected exactly one retry (2 calls), got %d", client.calls)
	}
	if got := tracker.Snapshot().Spent; got != 0 {
		t.Fatalf("reservation not released on failure: spent %v", got)
	}
}

func TestAnalyze_MalformedResponseNotRetried(t *testing.T) {
	tracker := budget.NewTracker(1.0)
	client := &fakeClient{results: []func() (types.Analysis, error){
		func() (types.Analysis, error) { return types.Analysis{}, errors.New("schema violation: missing viral_score") },
	}}
	a := newAnalyzer(client, tracker, 0.05)

	_, err := a.Analyze(context.Background(), "transcript", ports.AnalysisHints{})
	if !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("expected ErrAIUnavailable, got %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("schema violations must not be retried, got %d calls", client.calls)
	}
}

func TestAnalyze_EmptyTranscriptSkipsBudget(t *testing.T) {
	tracker := budget.NewTracker(1.0)
	client := &fakeClient{results: []func() (types.Analysis, error){okAnalysis}}
	a := newAnalyzer(client, tracker, 0.05)

	_, err := a.Analyze(context.Background(), "   ", ports.AnalysisHints{})
	if !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("expected ErrAIUnavailable, got %v", err)
	}
	if client.calls != 0 || tracker.Snapshot().Spent != 0 {
		t.Fatalf("empty transcript must not reach the API or the budget")
	}
}

func TestAnalyze_RateLimiterSpacing(t *testing.T) {
	tracker := budget.NewTracker(1.0)
	client := &fakeClient{results: []func() (types.Analysis, error){okAnalysis}}
	a := New(client, tracker, budget.NewRateLimiter(30*time.Millisecond), flatPricing{cost: 0.01})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := a.Analyze(context.Background(), "transcript", ports.AnalysisHints{}); err != nil {
			t.Fatalf("analyze %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Fatalf("three calls with 30ms spacing finished in %v", elapsed)
	}
}
