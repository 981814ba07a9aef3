// Package pipeline wires the adapters, the store, and the budget tracker
// into one runnable pass over a video.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/fifteenfame/viralcut/internal/analyzer"
	"github.com/fifteenfame/viralcut/internal/budget"
	"github.com/fifteenfame/viralcut/internal/config"
	"github.com/fifteenfame/viralcut/internal/ports"
	"github.com/fifteenfame/viralcut/internal/ports/adapters/ffmpeg"
	"github.com/fifteenfame/viralcut/internal/ports/adapters/openai"
	"github.com/fifteenfame/viralcut/internal/ports/adapters/whispercpp"
	"github.com/fifteenfame/viralcut/internal/store"
	"github.com/fifteenfame/viralcut/internal/types"
	"github.com/fifteenfame/viralcut/internal/usecase"
)

type Config struct {
	Input  string
	OutDir string
	// RuleOnly skips the AI path even when an API key is configured.
	RuleOnly bool

	Settings config.Config
	Logger   *slog.Logger
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if c.Settings.WhisperModel == "" {
		return fmt.Errorf("whisper model path is required")
	}
	return openai.ValidateBaseURL(c.Settings.BaseURL, c.Settings.AllowedHosts)
}

// Run processes one video: segment, score, rank, persist, and write the run
// manifest. The budget epoch survives across runs through the store.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	set := cfg.Settings

	st, err := store.New(filepath.Join(set.DataDir, "viralcut.db"), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	tracker := budget.NewTracker(set.DailyBudgetUSD)
	day := store.EpochKey(time.Now())
	if snap, ok, err := st.LoadBudgetEpoch(ctx, day); err != nil {
		return err
	} else if ok {
		tracker.Seed(snap.Spent, snap.RequestCount, snap.Tokens)
		logger.Info("budget epoch resumed",
			"day", day, "spent_usd", snap.Spent, "requests", snap.RequestCount)
	}

	audio := ffmpeg.New(set.FFmpegPath, set.FFprobePath)

	deps := usecase.Deps{
		Audio:       audio,
		Transcriber: whispercpp.New(set.WhisperBin, set.WhisperModel),
		Tracker:     tracker,
		Logger:      logger,
	}
	switch {
	case cfg.RuleOnly:
		logger.Info("rule-only mode requested, skipping analysis")
	case set.APIKey == "":
		logger.Warn("no api key configured, scoring with rules only")
	default:
		pricing := openai.DefaultPricing()
		client := openai.New(set.APIKey, set.Model, set.BaseURL, set.RequestTimeout(), pricing)
		limiter := budget.NewRateLimiter(set.RateDelay())
		deps.Analyzer = analyzer.New(client, tracker, limiter, pricing)
	}

	videoID := hash(cfg.Input)
	workDir := filepath.Join(set.DataDir, "runs", videoID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return err
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, cfg.Input, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return err
	}
	logger.Info("run prepared", "video_id", videoID, "work_dir", workDir, "out_dir", runOutDir)

	video := types.Video{
		ID:        videoID,
		SourceURL: cfg.Input,
		Title:     strings.TrimSuffix(filepath.Base(cfg.Input), filepath.Ext(cfg.Input)),
	}
	if err := st.SaveVideo(ctx, video, "processing"); err != nil {
		return err
	}

	res, err := usecase.New(deps).Run(ctx, usecase.Input{
		Video:       video,
		WindowSec:   set.WindowSec,
		MinTailSec:  set.MinTailSec,
		Concurrency: set.Concurrency,
		WorkDir:     workDir,
	})
	if err != nil {
		saveErr := st.SaveVideo(context.WithoutCancel(ctx), video, "failed")
		return errors.Join(err, saveErr)
	}

	if err := st.SaveVideo(ctx, res.Video, "completed"); err != nil {
		return err
	}
	if err := st.SaveClips(ctx, videoID, res.Clips); err != nil {
		return err
	}
	if err := st.SaveBudgetEpoch(ctx, day, tracker.Snapshot()); err != nil {
		return err
	}

	b, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return err
	}

	snap := tracker.Snapshot()
	logger.Info("run complete",
		"clips", len(res.Clips),
		"fallback_mode", res.Fallback,
		"spent_usd", snap.Spent,
		"remaining_usd", snap.Remaining(),
		"manifest", manifestPath)
	return nil
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.AudioTool = (*ffmpeg.Adapter)(nil)
var _ ports.Transcriber = (*whispercpp.Adapter)(nil)
var _ ports.AnalysisClient = (*openai.Adapter)(nil)
