package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fifteenfame/viralcut/internal/budget"
	"github.com/fifteenfame/viralcut/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "viralcut.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadClips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	video := types.Video{ID: "vid-1", SourceURL: "file:///in.mp4", Title: "demo", Duration: 47}
	if err := s.SaveVideo(ctx, video, "completed"); err != nil {
		t.Fatalf("save video: %v", err)
	}

	clips := []types.Clip{
		{
			ID: "clip-a", VideoID: "vid-1", SegmentIndex: 1, Start: 15, End: 30,
			Transcript: "an amazing moment",
			Score: types.ScoreRecord{
				RuleScore:     6.2,
				CombinedScore: 7.4,
				Reasoning:     []string{"excitement cues x1 (+0.5)"},
				AIScores:      &types.AIScores{ViralPotential: 8, Entertainment: 7},
				Title:         "Big Moment",
				Tokens:        900,
				Cost:          0.02,
			},
			AIApplied: true,
		},
		{
			ID: "clip-b", VideoID: "vid-1", SegmentIndex: 0, Start: 0, End: 15,
			Score: types.ScoreRecord{RuleScore: 4.2, CombinedScore: 4.2, Reasoning: []string{"sparse speech"}},
		},
	}
	if err := s.SaveClips(ctx, "vid-1", clips); err != nil {
		t.Fatalf("save clips: %v", err)
	}

	got, err := s.ClipsByVideo(ctx, "vid-1")
	if err != nil {
		t.Fatalf("load clips: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(got))
	}
	// Ranked order preserved.
	if got[0].ID != "clip-a" || got[1].ID != "clip-b" {
		t.Fatalf("rank order lost: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Score.AIScores == nil || got[0].Score.AIScores.ViralPotential != 8 {
		t.Fatalf("ai scores lost: %+v", got[0].Score.AIScores)
	}
	if !got[0].AIApplied || got[1].AIApplied {
		t.Fatalf("ai_applied flags lost")
	}
	if got[1].Score.AIScores != nil {
		t.Fatalf("fallback clip must have nil ai scores")
	}
	if len(got[0].Score.Reasoning) != 1 || got[0].Score.Reasoning[0] != "excitement cues x1 (+0.5)" {
		t.Fatalf("reasoning lost: %v", got[0].Score.Reasoning)
	}

	// Re-saving replaces, not appends.
	if err := s.SaveClips(ctx, "vid-1", clips[:1]); err != nil {
		t.Fatalf("resave clips: %v", err)
	}
	got, err = s.ClipsByVideo(ctx, "vid-1")
	if err != nil {
		t.Fatalf("reload clips: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected clip replacement, got %d clips", len(got))
	}
}

func TestBudgetEpochRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.LoadBudgetEpoch(ctx, "2026-08-28"); err != nil || ok {
		t.Fatalf("expected no epoch yet, ok=%v err=%v", ok, err)
	}

	snap := budget.Snapshot{Cap: 50, Spent: 1.25, RequestCount: 14, Tokens: 52000}
	if err := s.SaveBudgetEpoch(ctx, "2026-08-28", snap); err != nil {
		t.Fatalf("save epoch: %v", err)
	}

	got, ok, err := s.LoadBudgetEpoch(ctx, "2026-08-28")
	if err != nil || !ok {
		t.Fatalf("load epoch: ok=%v err=%v", ok, err)
	}
	if got != snap {
		t.Fatalf("epoch round trip mismatch: %+v != %+v", got, snap)
	}

	// Upsert overwrites.
	snap.Spent = 2.5
	if err := s.SaveBudgetEpoch(ctx, "2026-08-28", snap); err != nil {
		t.Fatalf("upsert epoch: %v", err)
	}
	got, _, _ = s.LoadBudgetEpoch(ctx, "2026-08-28")
	if got.Spent != 2.5 {
		t.Fatalf("upsert lost: %+v", got)
	}

	// Explicit reset starts the epoch over.
	if err := s.ResetBudgetEpoch(ctx, "2026-08-28"); err != nil {
		t.Fatalf("reset epoch: %v", err)
	}
	if _, ok, _ := s.LoadBudgetEpoch(ctx, "2026-08-28"); ok {
		t.Fatalf("expected epoch gone after reset")
	}
}
