package ports

import (
	"context"

	"github.com/fifteenfame/viralcut/internal/types"
)

// AudioTool decodes source media. Implemented by the ffmpeg adapter.
type AudioTool interface {
	ProbeDuration(ctx context.Context, input string) (float64, error)
	// ExtractSegmentWAV writes mono 16kHz wav audio for [start,end) seconds.
	ExtractSegmentWAV(ctx context.Context, input string, start, end float64, outWav string) error
	// DecodeSegmentPCM returns mono samples in [-1,1] plus the sample rate
	// for [start,end) seconds.
	DecodeSegmentPCM(ctx context.Context, input string, start, end float64) ([]float64, int, error)
}

// Transcriber converts one segment's audio into text. An empty transcript is
// valid; truncated marks a result the engine reported as incomplete.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (text string, truncated bool, err error)
}

// AnalysisHints is the optional context passed alongside a transcript.
type AnalysisHints struct {
	StartSec float64
	EndSec   float64
	Features types.AudioFeatures
}

// AnalysisClient performs one AI scoring call. Implementations must report
// token usage and cost on success and return an error on timeout or any
// response that fails the expected schema.
type AnalysisClient interface {
	Analyze(ctx context.Context, transcript string, hints AnalysisHints) (types.Analysis, error)
}
