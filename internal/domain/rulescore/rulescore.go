// Package rulescore is the deterministic content scorer. It is the fallback
// path when AI analysis is unavailable and is always computed regardless.
package rulescore

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	baseScore = 5.0

	// Rough conversational speaking rate used to estimate spoken duration.
	wordsPerSecond = 2.5

	perPositiveHit = 0.5
	positiveCap    = 1.5
	perNegativeHit = 0.4
	negativeCap    = 1.2

	lengthFitDelta = 0.8
	lengthBandLow  = 0.5 // fraction of segment duration
	lengthBandHigh = 1.2

	perExclaim = 0.25
	exclaimCap = 0.75
	perQuest   = 0.3
	questCap   = 0.6
)

type keywordFactor struct {
	name string
	re   *regexp.Regexp
}

// Factor order is fixed: it drives both evaluation and reasoning order.
var (
	positiveFactors = []keywordFactor{
		{"humor", regexp.MustCompile(`(?i)\b(funny|hilarious|joke|laugh|laughing|comedy)\b`)},
		{"excitement", regexp.MustCompile(`(?i)\b(amazing|incredible|wow|crazy|insane|unbelievable)\b`)},
		{"emotional", regexp.MustCompile(`(?i)\b(love|hate|cry|heartbreaking|inspiring|beautiful)\b`)},
		{"controversy", regexp.MustCompile(`(?i)\b(controversial|debate|wrong|worst|best|unpopular)\b`)},
	}
	negativeFactors = []keywordFactor{
		{"filler", regexp.MustCompile(`(?i)\b(um+|uh+|er+|hmm+|basically|you know|i mean)\b`)},
		{"dead air", regexp.MustCompile(`(?i)\[(silence|music|inaudible|applause)\]`)},
	}
)

// Score computes the heuristic content score for a transcript and the
// segment duration it was spoken over. It is a pure function: same inputs,
// same score, same reasoning. The result is clamped to [0,10] and the
// reasoning list holds one phrase per triggered factor, positive factors
// first, in fixed keyword-list order.
func Score(transcript string, durationSec float64) (float64, []string) {
	text := strings.TrimSpace(transcript)
	score := baseScore
	var reasons []string

	for _, f := range positiveFactors {
		hits := len(f.re.FindAllStringIndex(text, -1))
		if hits == 0 {
			continue
		}
		delta := min(float64(hits)*perPositiveHit, positiveCap)
		score += delta
		reasons = append(reasons, fmt.Sprintf("%s cues x%d (+%.1f)", f.name, hits, delta))
	}

	for _, f := range negativeFactors {
		hits := len(f.re.FindAllStringIndex(text, -1))
		if hits == 0 {
			continue
		}
		delta := min(float64(hits)*perNegativeHit, negativeCap)
		score -= delta
		reasons = append(reasons, fmt.Sprintf("%s x%d (-%.1f)", f.name, hits, delta))
	}

	score, reasons = applyLengthFit(text, durationSec, score, reasons)

	if n := strings.Count(text, "!"); n > 0 {
		delta := min(float64(n)*perExclaim, exclaimCap)
		score += delta
		reasons = append(reasons, fmt.Sprintf("exclamation density x%d (+%.2f)", n, delta))
	}
	if n := strings.Count(text, "?"); n > 0 {
		delta := min(float64(n)*perQuest, questCap)
		score += delta
		reasons = append(reasons, fmt.Sprintf("question density x%d (+%.2f)", n, delta))
	}

	return clamp(score, 0, 10), reasons
}

// applyLengthFit rewards transcripts whose estimated spoken duration sits
// inside the clip's target band and penalizes ones far outside it. It always
// contributes a reasoning phrase, including for empty transcripts.
func applyLengthFit(text string, durationSec, score float64, reasons []string) (float64, []string) {
	words := len(strings.Fields(text))
	est := float64(words) / wordsPerSecond
	if durationSec <= 0 {
		durationSec = 1
	}

	switch {
	case est >= durationSec*lengthBandLow && est <= durationSec*lengthBandHigh:
		score += lengthFitDelta
		reasons = append(reasons, fmt.Sprintf("speech fills the clip well (~%.1fs of %.1fs, +%.1f)", est, durationSec, lengthFitDelta))
	case est < durationSec*lengthBandLow:
		score -= lengthFitDelta
		reasons = append(reasons, fmt.Sprintf("sparse speech for the clip (~%.1fs of %.1fs, -%.1f)", est, durationSec, lengthFitDelta))
	default:
		score -= lengthFitDelta
		reasons = append(reasons, fmt.Sprintf("speech overruns the clip (~%.1fs of %.1fs, -%.1f)", est, durationSec, lengthFitDelta))
	}
	return score, reasons
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

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
