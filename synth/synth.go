// Package synth generates a deterministic stand-in for the audio analysis
// pipeline: a four-on-the-floor beat over slowly drifting band energies.
package synth

import (
	"math"

	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/railfield/features"
)

// Track produces feature frames in the loosely typed map form the audio
// pipeline delivers.
type Track struct {
	BPM   float64
	noise opensimplex.Noise
	prev  [features.NumBands]float64
}

// New creates a synthetic track. bpm <= 0 uses 124.
func New(seed int64, bpm float64) *Track {
	if bpm <= 0 {
		bpm = 124
	}
	return &Track{BPM: bpm, noise: opensimplex.New(seed)}
}

// Frame returns the features at time t in seconds. Keys match
// features.Parse: one per band name plus spectralFlux and onset.
func (s *Track) Frame(t float64) map[string]any {
	beat := t * s.BPM / 60
	_, frac := math.Modf(beat)
	kick := math.Exp(-8 * frac)

	_, offFrac := math.Modf(beat + 0.5)
	hat := 0.6 * math.Exp(-12*offFrac)

	// Four-bar swell.
	swell := 0.5 + 0.5*math.Sin(2*math.Pi*beat/16)

	out := make(map[string]any, features.NumBands+2)
	var flux float64
	for i := 0; i < features.NumBands; i++ {
		tag := features.Tag(i)
		v := 0.2 + 0.25*s.noise.Eval2(t*0.3, float64(i)*1.7) + 0.15*swell
		switch {
		case tag == features.SubBass || tag == features.Bass:
			v += 0.65 * kick
		case tag == features.LowMid:
			v += 0.3 * kick
		case tag == features.Treble || tag == features.Sparkle:
			v += hat
		}
		v = clamp01(v)
		flux += math.Abs(v - s.prev[i])
		s.prev[i] = v
		out[tag.String()] = v
	}
	out["spectralFlux"] = clamp01(flux / 2)
	out["onset"] = kick
	return out
}

// Sample is Frame parsed into a features.Sample.
func (s *Track) Sample(t float64) features.Sample {
	return features.Parse(s.Frame(t))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
