package ranking

import (
	"math"
	"testing"

	"github.com/fifteenfame/viralcut/internal/types"
)

func TestCombine_WithoutAIEqualsRuleScore(t *testing.T) {
	for _, rule := range []float64{0, 3.7, 5.0, 10} {
		if got := Combine(rule, nil); got != rule {
			t.Fatalf("Combine(%v, nil) = %v", rule, got)
		}
	}
}

func TestCombine_WeightsSumToOne(t *testing.T) {
	sum := weightRule + weightViral + weightEmotional + weightControversy +
		weightRelatability + weightEducational + weightEntertainment
	if math.Abs(sum-1.0) > 1e-12 {
		t.Fatalf("weights sum to %v", sum)
	}

	// Uniform inputs must pass through unchanged under unit weights.
	ai := &types.AIScores{
		ViralPotential:     7,
		EmotionalIntensity: 7,
		Controversy:        7,
		Relatability:       7,
		EducationalValue:   7,
		Entertainment:      7,
	}
	if got := Combine(7, ai); math.Abs(got-7) > 1e-9 {
		t.Fatalf("uniform combine = %v", got)
	}
}

func TestCombine_Clamped(t *testing.T) {
	if got := Combine(-5, nil); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
	if got := Combine(25, nil); got != 10 {
		t.Fatalf("expected clamp to 10, got %v", got)
	}
}

func TestClipID_Stable(t *testing.T) {
	a := ClipID("video-1", 3)
	b := ClipID("video-1", 3)
	if a != b {
		t.Fatalf("same inputs produced different ids: %s vs %s", a, b)
	}
	if ClipID("video-1", 4) == a || ClipID("video-2", 3) == a {
		t.Fatalf("distinct inputs collided")
	}
}

func TestAssemble_RanksByScoreThenStart(t *testing.T) {
	video := types.Video{ID: "vid", Duration: 45}
	segments := []types.Segment{
		{Index: 0, Start: 0, End: 15},
		{Index: 1, Start: 15, End: 30},
		{Index: 2, Start: 30, End: 45},
	}
	records := []types.ScoreRecord{
		{RuleScore: 6, CombinedScore: 6},
		{RuleScore: 8, CombinedScore: 8},
		{RuleScore: 6, CombinedScore: 6},
	}

	clips := Assemble(video, segments, records)
	if len(clips) != 3 {
		t.Fatalf("expected 3 clips, got %d", len(clips))
	}
	if clips[0].SegmentIndex != 1 {
		t.Fatalf("expected highest score first, got segment %d", clips[0].SegmentIndex)
	}
	// Tie at 6.0: earlier start wins, reproducibly.
	if clips[1].SegmentIndex != 0 || clips[2].SegmentIndex != 2 {
		t.Fatalf("tie-break by start time violated: %d then %d", clips[1].SegmentIndex, clips[2].SegmentIndex)
	}

	again := Assemble(video, segments, records)
	for i := range clips {
		if clips[i].ID != again[i].ID {
			t.Fatalf("ranking not reproducible at position %d", i)
		}
	}
}

func TestAssemble_AIAppliedFlag(t *testing.T) {
	video := types.Video{ID: "vid"}
	segments := []types.Segment{{Index: 0, Start: 0, End: 15}, {Index: 1, Start: 15, End: 30}}
	records := []types.ScoreRecord{
		{RuleScore: 5, CombinedScore: 5},
		{RuleScore: 5, CombinedScore: 6.2, AIScores: &types.AIScores{ViralPotential: 8}},
	}
	clips := Assemble(video, segments, records)
	for _, c := range clips {
		want := c.Score.AIScores != nil
		if c.AIApplied != want {
			t.Fatalf("clip %d: ai_applied=%v, ai_scores present=%v", c.SegmentIndex, c.AIApplied, want)
		}
	}
}
