// Package analyzer runs the cost-bounded AI scoring path. Each segment takes
// exactly one of two routes: a successful analysis, or fallback to the
// rule-based score. A transient failure earns one retry; after that the
// segment falls back permanently.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/fifteenfame/viralcut/internal/budget"
	"github.com/fifteenfame/viralcut/internal/ports"
	"github.com/fifteenfame/viralcut/internal/types"
)

var (
	// ErrAIUnavailable means this segment could not be analyzed; the caller
	// must use the rule-based score for it.
	ErrAIUnavailable = errors.New("ai analysis unavailable")

	// ErrBudgetExhausted means the daily cap blocked the reservation. Not a
	// failure: the caller latches fallback mode for the rest of the video.
	ErrBudgetExhausted = errors.New("analysis budget exhausted")
)

// TransientError marks a failure worth one retry (timeout, transport error,
// retryable HTTP status). Adapters wrap such failures with Transient.
type TransientError struct{ Err error }

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Pricing converts an expected token volume into an estimated cost before
// the call is made.
type Pricing interface {
	EstimateCost(tokens int) float64
	EstimateTokens(transcript string) int
}

type Analyzer struct {
	client  ports.AnalysisClient
	tracker *budget.Tracker
	limiter *budget.RateLimiter
	pricing Pricing
}

func New(client ports.AnalysisClient, tracker *budget.Tracker, limiter *budget.RateLimiter, pricing Pricing) *Analyzer {
	return &Analyzer{client: client, tracker: tracker, limiter: limiter, pricing: pricing}
}

// Analyze attempts the AI path for one segment. The reservation taken here
// is always reconciled: committed with real usage on success, released on
// any failure, including caller abort.
func (a *Analyzer) Analyze(ctx context.Context, transcript string, hints ports.AnalysisHints) (types.Analysis, error) {
	if strings.TrimSpace(transcript) == "" {
		return types.Analysis{}, ErrAIUnavailable
	}

	estimate := a.pricing.EstimateCost(a.pricing.EstimateTokens(transcript))
	res, ok := a.tracker.Reserve(estimate)
	if !ok {
		return types.Analysis{}, ErrBudgetExhausted
	}

	an, err := a.callWithRetry(ctx, transcript, hints)
	if err != nil {
		res.Release()
		if errors.Is(err, context.Canceled) {
			return types.Analysis{}, err
		}
		return types.Analysis{}, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	an.Scores = clampScores(an.Scores)
	res.Commit(an.Cost, an.Tokens)
	return an, nil
}

func (a *Analyzer) callWithRetry(ctx context.Context, transcript string, hints ports.AnalysisHints) (types.Analysis, error) {
	an, err := a.call(ctx, transcript, hints)
	if err == nil {
		return an, nil
	}
	if !isTransient(err) || ctx.Err() != nil {
		return types.Analysis{}, err
	}
	// One retry, then permanent fallback for this segment.
	return a.call(ctx, transcript, hints)
}

func (a *Analyzer) call(ctx context.Context, transcript string, hints ports.AnalysisHints) (types.Analysis, error) {
	if err := a.limiter.Acquire(ctx); err != nil {
		return types.Analysis{}, err
	}
	defer a.limiter.Release()
	return a.client.Analyze(ctx, transcript, hints)
}

func isTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// clampScores forces every dimension into [0,10]; out-of-range values from
// the model are clamped, never rejected.
func clampScores(s types.AIScores) types.AIScores {
	s.ViralPotential = clamp(s.ViralPotential)
	s.EmotionalIntensity = clamp(s.EmotionalIntensity)
	s.Controversy = clamp(s.Controversy)
	s.Relatability = clamp(s.Relatability)
	s.EducationalValue = clamp(s.EducationalValue)
	s.Entertainment = clamp(s.Entertainment)
	return s
}

func clamp(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 10 {
		return 10
	}
	return x
}
