// Package features derives audio-quality and intensity signals from decoded
// PCM samples. Every signal is normalized to [0,10]; extraction never fails
// and is deterministic for identical input audio.
package features

import (
	"math"

	"github.com/fifteenfame/viralcut/internal/types"
)

// Signal names emitted by Extract.
const (
	SignalQuality   = "audio_quality"
	SignalIntensity = "dramatic_intensity"
	SignalClarity   = "speech_clarity"
	SignalVariance  = "loudness_variance"
)

const (
	frameLen = 2048
	hopLen   = 512

	// Below this peak amplitude the segment is treated as silent.
	silenceFloor = 1e-4
)

// Extract computes the named signals for one segment's mono samples, values
// in [-1,1]. Silent or near-silent audio yields a quality signal near 0
// rather than an error.
func Extract(samples []float64, sampleRate int) types.AudioFeatures {
	out := types.AudioFeatures{
		SignalQuality:   0,
		SignalIntensity: 0,
		SignalClarity:   0,
		SignalVariance:  0,
	}
	if len(samples) == 0 || sampleRate <= 0 {
		return out
	}

	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak < silenceFloor {
		return out
	}

	rms := frameRMS(samples)
	mean, variance := meanVar(rms)

	out[SignalQuality] = qualityScore(mean, variance)
	out[SignalIntensity] = intensityScore(rms, mean, variance)
	out[SignalClarity] = clarityScore(samples)
	out[SignalVariance] = clamp(math.Sqrt(variance)/(mean+1e-8)*3, 0, 10)
	return out
}

// frameRMS computes per-frame root-mean-square energy.
func frameRMS(samples []float64) []float64 {
	if len(samples) < frameLen {
		sum := 0.0
		for _, s := range samples {
			sum += s * s
		}
		return []float64{math.Sqrt(sum / float64(len(samples)))}
	}
	n := 1 + (len(samples)-frameLen)/hopLen
	out := make([]float64, 0, n)
	for i := 0; i+frameLen <= len(samples); i += hopLen {
		sum := 0.0
		for _, s := range samples[i : i+frameLen] {
			sum += s * s
		}
		out = append(out, math.Sqrt(sum/frameLen))
	}
	return out
}

// qualityScore approximates an SNR from energy statistics and maps it onto
// [0,10]: steady signal well above the noise floor scores high, noisy or
// erratic energy scores low.
func qualityScore(mean, variance float64) float64 {
	signal := mean * mean
	if variance == 0 {
		return 10
	}
	snr := 10 * math.Log10(signal/variance)
	return clamp((snr+20)/10, 0, 10)
}

// intensityScore follows the dramatic-intensity heuristic: volume variation
// plus peak loudness, weighted and rescaled onto [0,10].
func intensityScore(rms []float64, mean, variance float64) float64 {
	peak := 0.0
	for _, v := range rms {
		if v > peak {
			peak = v
		}
	}
	variation := math.Sqrt(variance) / (mean + 1e-8)
	intensity := variation*0.6 + peak*0.4
	return clamp(intensity*5, 0, 10)
}

// clarityScore uses the zero-crossing rate as a noisiness proxy: clean
// speech crosses zero far less often than broadband noise.
func clarityScore(samples []float64) float64 {
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	zcr := float64(crossings) / float64(len(samples))
	return clamp(10-zcr*40, 0, 10)
}

func meanVar(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	v := 0.0
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	return mean, v / float64(len(xs))
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
