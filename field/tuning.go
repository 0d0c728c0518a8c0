package field

import (
	"log/slog"

	"github.com/pthm-cable/railfield/blueprint"
	"github.com/pthm-cable/railfield/features"
)

// RegisterFeature adds or patches a feature preset and returns the result.
// New spawns use it immediately; live particles keep their attributes.
func (f *Field) RegisterFeature(name string, p features.Patch) features.Preset {
	return f.registry.Register(name, p)
}

// SetTurbulence sets the curl-noise parameters. The strength is scaled by the
// blueprint turbulence bias.
func (f *Field) SetTurbulence(strength, scale, speed float32) {
	f.turbulence = [3]float32{strength, scale, speed}
	f.engine.SetTurbulence(strength*f.curlMult, scale, speed)
}

// Turbulence returns the unscaled curl-noise parameters.
func (f *Field) Turbulence() (strength, scale, speed float32) {
	return f.turbulence[0], f.turbulence[1], f.turbulence[2]
}

// SetFeatureLevel sets the impulse weight of one band.
func (f *Field) SetFeatureLevel(tag features.Tag, v float32) {
	f.engine.SetFeatureLevel(tag, v)
}

// ApplyNamedParameter sets a simulation parameter by uniform name.
func (f *Field) ApplyNamedParameter(name string, v float32) bool {
	return f.engine.ApplyNamedParameter(name, v)
}

// ApplyBlueprint applies the tuning derived from a ride blueprint. Fields the
// blueprint left out keep their current values.
func (f *Field) ApplyBlueprint(t blueprint.Tuning) {
	if t.Persistence != nil {
		f.engine.ApplyNamedParameter("persistence", float32(*t.Persistence))
	}
	f.spawner.SetLifespanScale(t.LifespanScale)
	f.spawner.SetThresholdOffset(t.ThresholdOffset)
	f.spawner.SetAmbientBursts(t.AmbientBursts)
	if t.IntensityBoost >= 0 {
		f.boost = t.IntensityBoost
	}
	if t.CurlMultiplier >= 0 {
		f.curlMult = t.CurlMultiplier
		f.SetTurbulence(f.turbulence[0], f.turbulence[1], f.turbulence[2])
	}
	for name, patch := range t.Patches {
		f.registry.Register(name, patch)
	}
	if t.DetailLevel != "" && !f.SelectProfile(t.DetailLevel) {
		slog.Warn("blueprint_unknown_detail_level", "detail_level", t.DetailLevel)
	}
	slog.Info("blueprint_applied",
		"lifespan_scale", t.LifespanScale,
		"threshold_offset", t.ThresholdOffset,
		"curl_multiplier", t.CurlMultiplier,
		"ambient_bursts", t.AmbientBursts,
		"boost", t.IntensityBoost,
	)
}

// SelectProfile switches to the named quality profile and applies it at once.
// It reports false for unknown names.
func (f *Field) SelectProfile(name string) bool {
	if f.disposed {
		return false
	}
	d, ok := f.quality.Select(name)
	if !ok {
		return false
	}
	if d.Changed {
		f.applyDecision(f.now, d)
	}
	return true
}
