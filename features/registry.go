package features

import (
	"github.com/pthm-cable/railfield/config"
)

// Behavior selects how a feature's particles move after spawn.
type Behavior uint8

const (
	Burst Behavior = iota // Radial burst around the origin
	Trail                 // Streams back past the camera
	Flow                  // Drifts upward and sideways
)

// ParseBehavior resolves a behavior name, defaulting to Burst.
func ParseBehavior(name string) Behavior {
	switch name {
	case "trail":
		return Trail
	case "flow":
		return Flow
	default:
		return Burst
	}
}

func (b Behavior) String() string {
	switch b {
	case Trail:
		return "trail"
	case Flow:
		return "flow"
	default:
		return "burst"
	}
}

// Color is a linear RGB triple in 0..1.
type Color struct {
	R, G, B float32
}

// Preset is the visual configuration of one feature.
type Preset struct {
	Color       Color
	Sensitivity float32
	Size        float32
	Lifetime    float32
	Behavior    Behavior
}

// Patch is a partial preset update. Nil fields are left unchanged, and
// non-positive numeric values are ignored so a preset never becomes invalid.
type Patch struct {
	Color       *Color
	Sensitivity *float32
	Size        *float32
	Lifetime    *float32
	Behavior    *Behavior
}

var defaultPreset = Preset{
	Color:       Color{R: 1, G: 1, B: 1},
	Sensitivity: 1,
	Size:        0.5,
	Lifetime:    2,
	Behavior:    Burst,
}

// Registry maps feature names to visual presets.
type Registry struct {
	presets map[string]Preset
}

// NewRegistry creates a registry seeded from config. Entries with missing or
// invalid fields fall back to the built-in default for those fields.
func NewRegistry(cfg map[string]config.FeatureConfig) *Registry {
	r := &Registry{presets: make(map[string]Preset, len(cfg))}
	for name, fc := range cfg {
		p := Patch{}
		if len(fc.Color) >= 3 {
			p.Color = &Color{R: float32(fc.Color[0]), G: float32(fc.Color[1]), B: float32(fc.Color[2])}
		}
		p.Sensitivity = f32ptr(fc.Sensitivity)
		p.Size = f32ptr(fc.Size)
		p.Lifetime = f32ptr(fc.Lifetime)
		if fc.Behavior != "" {
			b := ParseBehavior(fc.Behavior)
			p.Behavior = &b
		}
		r.Register(name, p)
	}
	return r
}

// Register creates or patches the preset for name and returns the result.
func (r *Registry) Register(name string, p Patch) Preset {
	preset, ok := r.presets[name]
	if !ok {
		preset = defaultPreset
	}
	if p.Color != nil {
		preset.Color = *p.Color
	}
	if p.Sensitivity != nil && *p.Sensitivity > 0 {
		preset.Sensitivity = *p.Sensitivity
	}
	if p.Size != nil && *p.Size > 0 {
		preset.Size = *p.Size
	}
	if p.Lifetime != nil && *p.Lifetime > 0 {
		preset.Lifetime = *p.Lifetime
	}
	if p.Behavior != nil {
		preset.Behavior = *p.Behavior
	}
	r.presets[name] = preset
	return preset
}

// Lookup returns the preset for name, or the default preset.
func (r *Registry) Lookup(name string) (Preset, bool) {
	p, ok := r.presets[name]
	if !ok {
		return defaultPreset, false
	}
	return p, true
}

// ForTag returns the preset for a band tag.
func (r *Registry) ForTag(t Tag) Preset {
	p, _ := r.Lookup(t.String())
	return p
}

// Len returns the number of registered presets.
func (r *Registry) Len() int {
	return len(r.presets)
}

func f32ptr(v float64) *float32 {
	f := float32(v)
	return &f
}
