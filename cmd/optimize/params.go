// Package main provides CMA-ES optimization for spawner and simulation
// parameters that keep the particle field busy without saturating it.
package main

import (
	"github.com/pthm-cable/railfield/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Spawner
			{Name: "ambient_period", Path: "spawner.ambient_period", Min: 0.1, Max: 1.5, Default: 0.45},
			{Name: "spread", Path: "spawner.spread", Min: 0.3, Max: 4.0, Default: 1.5},
			{Name: "pulse_decay", Path: "spawner.pulse_decay", Min: 0.5, Max: 6.0, Default: 2.5},
			// Multiplies every trigger threshold
			{Name: "threshold_scale", Path: "spawner.triggers[*].threshold", Min: 0.6, Max: 1.4, Default: 1.0},
			// Simulation
			{Name: "curl_strength", Path: "simulation.curl_strength", Min: 0.0, Max: 2.5, Default: 0.9},
			{Name: "persistence", Path: "simulation.persistence", Min: 0.0, Max: 1.0, Default: 0.5},
			{Name: "gravity", Path: "simulation.gravity", Min: -4.0, Max: 0.0, Default: -1.6},
			{Name: "impulse_gain", Path: "simulation.impulse_gain", Min: 0.5, Max: 4.0, Default: 2.4},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct. The threshold
// scale multiplies whatever thresholds cfg already holds, so apply it to a
// fresh copy only.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	// Indices follow Specs order
	cfg.Spawner.AmbientPeriod = clamped[0]
	cfg.Spawner.Spread = clamped[1]
	cfg.Spawner.PulseDecay = clamped[2]
	for t := range cfg.Spawner.Triggers {
		cfg.Spawner.Triggers[t].Threshold *= clamped[3]
	}

	cfg.Simulation.CurlStrength = clamped[4]
	cfg.Simulation.Persistence = clamped[5]
	cfg.Simulation.Gravity = clamped[6]
	cfg.Simulation.ImpulseGain = clamped[7]

	cfg.Derived.Damping = config.DampingFromPersistence(cfg.Simulation.Persistence)
}
