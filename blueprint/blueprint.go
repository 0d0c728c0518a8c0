// Package blueprint reads the synesthetic section of a ride blueprint and
// turns it into particle field tuning.
//
// Blueprints are JSON documents; they are parsed with the YAML decoder, which
// accepts JSON as a subset.
package blueprint

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/railfield/features"
)

// Blueprint is the subset of a ride blueprint the particle field reads.
type Blueprint struct {
	RideName    string      `yaml:"rideName"`
	Palette     []string    `yaml:"palette"`
	Synesthetic Synesthetic `yaml:"synesthetic"`
	Options     Options     `yaml:"options"`
}

// Synesthetic holds the audio-visual mapping hints.
type Synesthetic struct {
	Particles  Particles  `yaml:"particles"`
	Atmosphere Atmosphere `yaml:"atmosphere"`
}

// Particles are the particle hints. Missing values keep the field defaults.
type Particles struct {
	ConnectionDensity  *float64 `yaml:"connectionDensity"`
	ResonanceThreshold *float64 `yaml:"resonanceThreshold"`
	LifespanSeconds    *float64 `yaml:"lifespanSeconds"`
	Persistence        *float64 `yaml:"persistence"`
}

// Atmosphere holds the hints that affect particle motion.
type Atmosphere struct {
	TurbulenceBias   *float64 `yaml:"turbulenceBias"`
	PassionIntensity *float64 `yaml:"passionIntensity"`
}

// Options are user-selected generation options.
type Options struct {
	DetailLevel string `yaml:"detailLevel"`
}

// Load reads and parses a blueprint file.
func Load(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading blueprint: %w", err)
	}
	return Parse(data)
}

// Parse decodes a blueprint document.
func Parse(data []byte) (*Blueprint, error) {
	var b Blueprint
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing blueprint: %w", err)
	}
	return &b, nil
}

// Reference values at which a hint leaves the field unchanged.
const (
	neutralLifespan  = 3.0
	neutralResonance = 0.3
)

// Tuning is what a blueprint changes in the field.
type Tuning struct {
	Persistence     *float64 // Mapped to velocity damping
	LifespanScale   float32  // Multiplies every preset lifetime
	ThresholdOffset float32  // Added to every trigger threshold
	CurlMultiplier  float32  // Multiplies the configured curl strength
	AmbientBursts   int      // Sparkle bursts per ambient round, -1 = unchanged
	IntensityBoost  float32  // Baseline segment intensity boost
	DetailLevel     string   // Initial quality profile, empty = unchanged
	Patches         map[string]features.Patch
}

// Tuning derives field tuning from the blueprint.
func (b *Blueprint) Tuning() Tuning {
	t := Tuning{
		LifespanScale:  1,
		CurlMultiplier: 1,
		AmbientBursts:  -1,
		IntensityBoost: 1,
		DetailLevel:    strings.ToLower(strings.TrimSpace(b.Options.DetailLevel)),
	}
	p := b.Synesthetic.Particles
	if v, ok := finite(p.Persistence); ok {
		c := clamp(v, 0, 1)
		t.Persistence = &c
	}
	if v, ok := finite(p.LifespanSeconds); ok && v > 0 {
		t.LifespanScale = float32(clamp(v/neutralLifespan, 0.25, 4))
	}
	if v, ok := finite(p.ResonanceThreshold); ok {
		t.ThresholdOffset = float32(clamp((v-neutralResonance)*0.5, -0.25, 0.25))
	}
	if v, ok := finite(p.ConnectionDensity); ok {
		t.AmbientBursts = 1 + int(math.Round(clamp(v, 0, 1)*3))
	}

	a := b.Synesthetic.Atmosphere
	if v, ok := finite(a.TurbulenceBias); ok {
		t.CurlMultiplier = float32(clamp(v, 0, 3))
	}
	if v, ok := finite(a.PassionIntensity); ok {
		t.IntensityBoost = float32(clamp(v, 0, 3))
	}

	// Palette entries tint the bands in order, cycling when short.
	var colors []features.Color
	for _, hex := range b.Palette {
		if c, ok := ParseColor(hex); ok {
			colors = append(colors, c)
		}
	}
	if len(colors) > 0 {
		t.Patches = make(map[string]features.Patch, features.NumBands)
		for i := 0; i < features.NumBands; i++ {
			c := colors[i%len(colors)]
			t.Patches[features.Tag(i).String()] = features.Patch{Color: &c}
		}
	}
	return t
}

// ParseColor parses "#rgb" or "#rrggbb".
func ParseColor(s string) (features.Color, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return features.Color{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return features.Color{}, false
	}
	return features.Color{
		R: float32((v>>16)&0xff) / 255,
		G: float32((v>>8)&0xff) / 255,
		B: float32(v&0xff) / 255,
	}, true
}

func finite(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
