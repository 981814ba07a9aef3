// Package segmenter splits a video timeline into contiguous scoring windows.
package segmenter

import (
	"fmt"

	"github.com/fifteenfame/viralcut/internal/types"
)

const (
	DefaultWindowSec  = 15.0
	DefaultMinTailSec = 5.0
)

// InvalidDurationError reports a video duration that cannot be segmented.
type InvalidDurationError struct {
	Duration float64
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("invalid video duration %.3fs: must be > 0", e.Duration)
}

// Split covers [0, duration) with ordered, non-overlapping windows of nominal
// length window. The remainder r = duration mod window becomes its own tail
// segment when r >= minTail; a shorter remainder is merged into the previous
// window instead of producing a sub-threshold clip. A video shorter than one
// window yields exactly one segment regardless of minTail.
func Split(duration, window, minTail float64) ([]types.Segment, error) {
	if duration <= 0 {
		return nil, &InvalidDurationError{Duration: duration}
	}
	if window <= 0 {
		window = DefaultWindowSec
	}
	if minTail < 0 {
		minTail = DefaultMinTailSec
	}

	if duration < window {
		return []types.Segment{{Index: 0, Start: 0, End: duration}}, nil
	}

	full := int(duration / window)
	remainder := duration - float64(full)*window

	segs := make([]types.Segment, 0, full+1)
	for i := 0; i < full; i++ {
		segs = append(segs, types.Segment{
			Index: i,
			Start: float64(i) * window,
			End:   float64(i+1) * window,
		})
	}

	switch {
	case remainder > 0 && remainder >= minTail:
		segs = append(segs, types.Segment{
			Index: full,
			Start: float64(full) * window,
			End:   duration,
		})
	case remainder > 0:
		segs[len(segs)-1].End = duration
	}

	// Float window arithmetic can leave the last boundary a hair short.
	segs[len(segs)-1].End = duration
	return segs, nil
}
