// Package usecase orchestrates scoring one video: segment the timeline,
// extract features and transcripts concurrently, then score each segment
// through the rule engine and, budget permitting, the AI analyzer.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fifteenfame/viralcut/internal/analyzer"
	"github.com/fifteenfame/viralcut/internal/budget"
	"github.com/fifteenfame/viralcut/internal/domain/features"
	"github.com/fifteenfame/viralcut/internal/domain/ranking"
	"github.com/fifteenfame/viralcut/internal/domain/rulescore"
	"github.com/fifteenfame/viralcut/internal/domain/segmenter"
	"github.com/fifteenfame/viralcut/internal/ports"
	"github.com/fifteenfame/viralcut/internal/types"
)

// SegmentAnalyzer is the AI scoring path. A nil analyzer runs the whole
// video in rule-only mode.
type SegmentAnalyzer interface {
	Analyze(ctx context.Context, transcript string, hints ports.AnalysisHints) (types.Analysis, error)
}

type Deps struct {
	Audio       ports.AudioTool
	Transcriber ports.Transcriber
	Analyzer    SegmentAnalyzer
	Tracker     *budget.Tracker
	Logger      *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return Usecase{d: d}
}

type Input struct {
	Video       types.Video
	WindowSec   float64
	MinTailSec  float64
	Concurrency int
	// WorkDir holds per-segment wav files during the run.
	WorkDir string
}

type Result struct {
	// Video echoes the input descriptor with the probed duration filled in.
	Video    types.Video
	Clips    []types.Clip
	Manifest types.Manifest
	// Fallback is set when the budget latched rule-only mode partway through.
	Fallback bool
	Budget   budget.Snapshot
}

// Run scores one video end to end. Transcription and feature failures
// degrade the affected segment, never the run; only source-level failures
// and cancellation abort.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	duration := in.Video.Duration
	if duration <= 0 {
		probed, err := u.d.Audio.ProbeDuration(ctx, in.Video.SourceURL)
		if err != nil {
			return Result{}, fmt.Errorf("probe duration: %w", err)
		}
		duration = probed
		in.Video.Duration = probed
	}

	segments, err := segmenter.Split(duration, in.WindowSec, in.MinTailSec)
	if err != nil {
		return Result{}, err
	}
	u.d.Logger.Info("video segmented",
		"video_id", in.Video.ID, "duration_sec", duration, "segments", len(segments))

	if err := u.prepare(ctx, in, segments); err != nil {
		return Result{}, err
	}

	records, fallback, err := u.score(ctx, segments)
	if err != nil {
		return Result{}, err
	}

	clips := ranking.Assemble(in.Video, segments, records)

	res := Result{Video: in.Video, Clips: clips, Fallback: fallback}
	if u.d.Tracker != nil {
		res.Budget = u.d.Tracker.Snapshot()
	}
	res.Manifest = buildManifest(in.Video, clips, fallback)
	return res, nil
}

// prepare fans out per-segment audio work under a bounded semaphore and
// fills each segment's features and transcript in place.
func (u Usecase) prepare(ctx context.Context, in Input, segments []types.Segment) error {
	concurrency := in.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for i := range segments {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(seg *types.Segment) {
			defer wg.Done()
			defer func() { <-sem }()
			u.prepareSegment(ctx, in, seg)
		}(&segments[i])
	}
	wg.Wait()
	return ctx.Err()
}

func (u Usecase) prepareSegment(ctx context.Context, in Input, seg *types.Segment) {
	log := u.d.Logger.With("video_id", in.Video.ID, "segment", seg.Index)

	samples, rate, err := u.d.Audio.DecodeSegmentPCM(ctx, in.Video.SourceURL, seg.Start, seg.End)
	if err != nil {
		log.Warn("audio decode failed, segment scored without features", "error", err)
	} else {
		seg.Features = features.Extract(samples, rate)
	}

	wav := filepath.Join(in.WorkDir, fmt.Sprintf("seg-%04d.wav", seg.Index))
	if err := u.d.Audio.ExtractSegmentWAV(ctx, in.Video.SourceURL, seg.Start, seg.End, wav); err != nil {
		log.Warn("audio extract failed, segment scored without transcript", "error", err)
		return
	}
	text, truncated, err := u.d.Transcriber.Transcribe(ctx, wav)
	if err != nil {
		log.Warn("transcription failed, segment scored without transcript", "error", err)
		return
	}
	if truncated {
		log.Warn("transcription truncated")
	}
	seg.Transcript = text
	seg.Truncated = truncated
}

// score walks segments in order. The analysis stage is serialized so the
// rate limiter spacing and the budget latch behave deterministically.
func (u Usecase) score(ctx context.Context, segments []types.Segment) ([]types.ScoreRecord, bool, error) {
	records := make([]types.ScoreRecord, len(segments))
	fallback := u.d.Analyzer == nil

	for i := range segments {
		seg := segments[i]
		rule, reasons := rulescore.Score(seg.Transcript, seg.Duration())
		rec := types.ScoreRecord{RuleScore: rule, Reasoning: reasons}

		if !fallback {
			hints := ports.AnalysisHints{StartSec: seg.Start, EndSec: seg.End, Features: seg.Features}
			an, err := u.d.Analyzer.Analyze(ctx, seg.Transcript, hints)
			switch {
			case err == nil:
				scores := an.Scores
				rec.AIScores = &scores
				rec.Title = an.Title
				rec.Caption = an.Caption
				rec.Tokens = an.Tokens
				rec.Cost = an.Cost
				if an.Reasoning != "" {
					rec.Reasoning = append(rec.Reasoning, an.Reasoning)
				}
			case errors.Is(err, analyzer.ErrBudgetExhausted):
				fallback = true
				u.d.Logger.Warn("daily budget exhausted, switching to rule-only scoring", "segment", seg.Index)
			case ctx.Err() != nil:
				return nil, false, ctx.Err()
			default:
				u.d.Logger.Warn("analysis unavailable, segment keeps rule score", "segment", seg.Index, "error", err)
			}
		}

		rec.CombinedScore = ranking.Combine(rec.RuleScore, rec.AIScores)
		records[i] = rec
	}
	return records, fallback && u.d.Analyzer != nil, nil
}

func buildManifest(video types.Video, clips []types.Clip, fallback bool) types.Manifest {
	m := types.Manifest{
		Input:    video.SourceURL,
		VideoID:  video.ID,
		Title:    video.Title,
		Fallback: fallback,
	}
	for rank, c := range clips {
		m.Clips = append(m.Clips, types.ManifestClip{
			ID:            c.ID,
			Rank:          rank + 1,
			StartSec:      c.Start,
			EndSec:        c.End,
			Transcript:    c.Transcript,
			RuleScore:     c.Score.RuleScore,
			AIScores:      c.Score.AIScores,
			CombinedScore: c.Score.CombinedScore,
			Reasoning:     c.Score.Reasoning,
			Title:         c.Score.Title,
			Caption:       c.Score.Caption,
			Tokens:        c.Score.Tokens,
			CostUSD:       c.Score.Cost,
			AIApplied:     c.AIApplied,
		})
	}
	return m
}
