// Package features defines the audio feature bands consumed by the particle field
// and the registry of per-feature visual presets.
package features

import (
	"math"
	"strconv"
)

// Tag identifies the audio band that spawned a particle.
type Tag uint8

const (
	SubBass Tag = iota
	Bass
	LowMid
	Mid
	HighMid
	Treble
	Sparkle
	None
)

// NumBands is the number of real bands (None excluded).
const NumBands = 7

var tagNames = [...]string{"subBass", "bass", "lowMid", "mid", "highMid", "treble", "sparkle", "none"}

// String returns the feature name used in configs and presets.
func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "none"
}

// BassFamily reports whether the tag drives the stronger track pulse.
func (t Tag) BassFamily() bool {
	return t == SubBass || t == Bass || t == LowMid
}

// ParseTag resolves a feature name. Unknown names map to None.
func ParseTag(name string) (Tag, bool) {
	for i, n := range tagNames[:NumBands] {
		if n == name {
			return Tag(i), true
		}
	}
	return None, false
}

// Bands holds normalized band energies indexed by Tag.
type Bands [NumBands]float32

// Get returns the energy for a tag, 0 for None.
func (b Bands) Get(t Tag) float32 {
	if t >= NumBands {
		return 0
	}
	return b[t]
}

// Low returns the mean of the sub-bass and bass energies.
func (b Bands) Low() float32 {
	return (b[SubBass] + b[Bass]) * 0.5
}

// Scaled returns the bands multiplied by boost. Both the band values and the
// boost are clamped to >= 0 before use.
func (b Bands) Scaled(boost float32) Bands {
	if boost < 0 || isNaN32(boost) {
		boost = 0
	}
	var out Bands
	for i, v := range b {
		if v < 0 || isNaN32(v) {
			v = 0
		}
		out[i] = v * boost
	}
	return out
}

// Sample is one frame of audio features.
type Sample struct {
	Bands Bands
	Flux  float32 // Spectral flux, 0..1
	Onset float32 // Onset pulse, 0..1
}

// AudioForce combines flux and onset into the scalar impulse used by the
// simulation and ambient seeding.
func (s Sample) AudioForce() float32 {
	return clamp01(0.6*s.Onset + 0.4*s.Flux)
}

// Parse builds a Sample from a loosely typed feature map, as delivered by the
// audio pipeline. Missing, non-numeric or non-finite values read as zero and
// all values are clamped to [0, 1].
func Parse(raw map[string]any) Sample {
	var s Sample
	for i := 0; i < NumBands; i++ {
		s.Bands[i] = clamp01(number(raw[tagNames[i]]))
	}
	s.Flux = clamp01(number(raw["spectralFlux"]))
	s.Onset = clamp01(number(raw["onset"]))
	return s
}

func number(v any) float32 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return float32(f)
}

func clamp01(v float32) float32 {
	if v < 0 || isNaN32(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isNaN32(v float32) bool {
	return v != v
}
