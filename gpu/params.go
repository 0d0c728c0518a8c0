package gpu

import (
	"github.com/pthm-cable/railfield/config"
	"github.com/pthm-cable/railfield/features"
)

// Params are the runtime-tunable simulation parameters. Changing them never
// rebuilds buffers; they are copied into the uniforms on every tick.
type Params struct {
	CurlStrength float32
	NoiseScale   float32
	NoiseSpeed   float32
	Gravity      float32
	Damping      float32
	PulseRate    float32
	ImpulseGain  float32
	Floor        float32
	BandWeights  features.Bands
}

// ParamsFromConfig builds the initial parameters.
func ParamsFromConfig(cfg config.SimulationConfig) Params {
	p := Params{
		CurlStrength: float32(cfg.CurlStrength),
		NoiseScale:   float32(cfg.NoiseScale),
		NoiseSpeed:   float32(cfg.NoiseSpeed),
		Gravity:      float32(cfg.Gravity),
		Damping:      config.DampingFromPersistence(cfg.Persistence),
		PulseRate:    float32(cfg.PulseRate),
		ImpulseGain:  float32(cfg.ImpulseGain),
		Floor:        float32(cfg.Floor),
	}
	for i := 0; i < features.NumBands && i < len(cfg.BandWeights); i++ {
		p.BandWeights[i] = float32(cfg.BandWeights[i])
	}
	return p
}

type paramSetter func(p *Params, v float32)

// buildSetters returns the named parameter dispatch table. Names follow the
// shader uniforms, with persistence and the per-band weights added.
func buildSetters() map[string]paramSetter {
	setters := map[string]paramSetter{
		"curlStrength": func(p *Params, v float32) { p.CurlStrength = nonNegative(v) },
		"noiseScale":   func(p *Params, v float32) { p.NoiseScale = nonNegative(v) },
		"noiseSpeed":   func(p *Params, v float32) { p.NoiseSpeed = v },
		"gravity":      func(p *Params, v float32) { p.Gravity = v },
		"damping":      func(p *Params, v float32) { p.Damping = clampDamping(v) },
		"persistence": func(p *Params, v float32) {
			p.Damping = config.DampingFromPersistence(float64(v))
		},
		"pulseRate":   func(p *Params, v float32) { p.PulseRate = v },
		"impulseGain": func(p *Params, v float32) { p.ImpulseGain = nonNegative(v) },
		"floor":       func(p *Params, v float32) { p.Floor = v },
	}
	for i := 0; i < features.NumBands; i++ {
		band := i
		setters["weight."+features.Tag(i).String()] = func(p *Params, v float32) {
			p.BandWeights[band] = nonNegative(v)
		}
	}
	return setters
}

func nonNegative(v float32) float32 {
	if v < 0 || v != v {
		return 0
	}
	return v
}

// clampDamping keeps damping inside (0.98, 1.0).
func clampDamping(v float32) float32 {
	if v != v || v <= 0.98 {
		return 0.9801
	}
	if v >= 1 {
		return 0.9999
	}
	return v
}
