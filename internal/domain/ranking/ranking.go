// Package ranking merges rule-based and AI-derived signals into one combined
// score and materializes the final ordered clip list.
package ranking

import (
	"fmt"
	"sort"

	"github.com/fifteenfame/viralcut/internal/types"
	"github.com/google/uuid"
)

// Combined-score weights. The rule score carries 0.30; the six analysis
// dimensions split the remaining 0.70 in the proportions the analysis model
// was calibrated with (viral 25, emotional 20, controversy/relatability/
// entertainment 15 each, educational 10). Weights sum to 1.0.
const (
	weightRule          = 0.30
	weightViral         = 0.175
	weightEmotional     = 0.14
	weightControversy   = 0.105
	weightRelatability  = 0.105
	weightEducational   = 0.07
	weightEntertainment = 0.105
)

// Namespace for deterministic clip identifiers.
var clipNamespace = uuid.MustParse("9f2c1b5e-44a7-4e6b-8b63-2d6f1a9c0e71")

// Combine computes the combined score for one segment. Without AI scores the
// combined score equals the rule score exactly; with them it is the fixed
// weighted average, clamped to [0,10].
func Combine(ruleScore float64, ai *types.AIScores) float64 {
	if ai == nil {
		return clamp(ruleScore, 0, 10)
	}
	combined := ruleScore*weightRule +
		ai.ViralPotential*weightViral +
		ai.EmotionalIntensity*weightEmotional +
		ai.Controversy*weightControversy +
		ai.Relatability*weightRelatability +
		ai.EducationalValue*weightEducational +
		ai.Entertainment*weightEntertainment
	return clamp(combined, 0, 10)
}

// ClipID derives a stable identifier from the owning video and segment
// index: the same inputs always produce the same ID.
func ClipID(videoID string, segmentIndex int) string {
	return uuid.NewSHA1(clipNamespace, []byte(fmt.Sprintf("%s/%d", videoID, segmentIndex))).String()
}

// Assemble binds each segment to its score record and returns the ranked
// clip list: combined score descending, ties broken by earlier start time.
// Ranking is a view over immutable clips, reproducible across runs.
func Assemble(video types.Video, segments []types.Segment, records []types.ScoreRecord) []types.Clip {
	n := len(segments)
	if len(records) < n {
		n = len(records)
	}
	clips := make([]types.Clip, 0, n)
	for i := 0; i < n; i++ {
		seg := segments[i]
		clips = append(clips, types.Clip{
			ID:           ClipID(video.ID, seg.Index),
			VideoID:      video.ID,
			SegmentIndex: seg.Index,
			Start:        seg.Start,
			End:          seg.End,
			Transcript:   seg.Transcript,
			Score:        records[i],
			AIApplied:    records[i].AIScores != nil,
		})
	}
	sort.SliceStable(clips, func(i, j int) bool {
		if clips[i].Score.CombinedScore != clips[j].Score.CombinedScore {
			return clips[i].Score.CombinedScore > clips[j].Score.CombinedScore
		}
		return clips[i].Start < clips[j].Start
	})
	return clips
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
