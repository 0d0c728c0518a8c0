// Package config provides configuration loading and access for the particle field.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all particle field configuration parameters.
type Config struct {
	Screen     ScreenConfig             `yaml:"screen"`
	Camera     CameraConfig             `yaml:"camera"`
	Pool       PoolConfig               `yaml:"pool"`
	Simulation SimulationConfig         `yaml:"simulation"`
	Spawner    SpawnerConfig            `yaml:"spawner"`
	Fallback   FallbackConfig           `yaml:"fallback"`
	Quality    QualityConfig            `yaml:"quality"`
	Features   map[string]FeatureConfig `yaml:"features"`
	Telemetry  TelemetryConfig          `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// CameraConfig drives the demo ride camera in the game package. The real track path is
// supplied by the host application.
type CameraConfig struct {
	Speed     float64 `yaml:"speed"`      // World units per second along the ride
	Height    float64 `yaml:"height"`     // Eye height above the track
	LookAhead float64 `yaml:"look_ahead"` // Distance to the look-at target
	Fovy      float64 `yaml:"fovy"`
}

// PoolConfig holds instance pool sizing.
type PoolConfig struct {
	Capacity int `yaml:"capacity"` // Fixed slot count N for the lifetime of a ride
}

// SimulationConfig holds GPU integrator parameters.
type SimulationConfig struct {
	Gravity      float64   `yaml:"gravity"`       // Vertical acceleration (negative = down)
	Persistence  float64   `yaml:"persistence"`   // 0..1, mapped to damping in (0.98, 1.0)
	Floor        float64   `yaml:"floor"`         // Particles below this height are recycled
	HiddenY      float64   `yaml:"hidden_y"`      // Sentinel height for hidden particles
	PulseRate    float64   `yaml:"pulse_rate"`    // Radians per second of the base audio pulse
	ImpulseGain  float64   `yaml:"impulse_gain"`  // Scale of the audio vertical impulse
	BandWeights  []float64 `yaml:"band_weights"`  // Per-band impulse weights (7 entries)
	CurlStrength float64   `yaml:"curl_strength"` // Turbulence magnitude
	NoiseScale   float64   `yaml:"noise_scale"`   // Spatial frequency of the curl field
	NoiseSpeed   float64   `yaml:"noise_speed"`   // Temporal drift of the curl field
	MaxDelta     float64   `yaml:"max_delta"`     // Clamp for the integration step
	MaxTexture   int       `yaml:"max_texture"`   // Largest simulation texture side accepted
}

// TriggerConfig describes one audio feature trigger.
type TriggerConfig struct {
	Feature   string  `yaml:"feature"`
	Threshold float64 `yaml:"threshold"`
	Cooldown  float64 `yaml:"cooldown"` // Seconds between triggers of this feature
	Lateral   float64 `yaml:"lateral"`  // Offset along the camera right vector
	Forward   float64 `yaml:"forward"`  // Offset along the camera forward vector
}

// SpawnerConfig holds audio-reactive spawn parameters.
type SpawnerConfig struct {
	Seed             int64           `yaml:"seed"`
	AmbientPeriod    float64         `yaml:"ambient_period"`    // Seconds between ambient seeding rounds
	AmbientBursts    int             `yaml:"ambient_bursts"`    // Sparkle bursts per ambient round
	AmbientIntensity float64         `yaml:"ambient_intensity"` // Intensity of ambient bursts
	Spread           float64         `yaml:"spread"`            // Positional noise radius
	Jitter           float64         `yaml:"jitter"`            // Trigger origin jitter
	PulseDecay       float64         `yaml:"pulse_decay"`       // Track pulse exponential decay per second
	BassPulseGain    float64         `yaml:"bass_pulse_gain"`
	OtherPulseGain   float64         `yaml:"other_pulse_gain"`
	Triggers         []TriggerConfig `yaml:"triggers"`
}

// FallbackConfig holds CPU fallback renderer parameters.
type FallbackConfig struct {
	VelocityScale float64 `yaml:"velocity_scale"` // 0 keeps CPU particles static after spawn
}

// ProfileConfig describes one quality profile.
type ProfileConfig struct {
	Name              string  `yaml:"name"`
	ParticleBudget    int     `yaml:"particle_budget"`
	SpawnBatchSize    int     `yaml:"spawn_batch_size"`
	GPUUpdateInterval float64 `yaml:"gpu_update_interval"` // Seconds, 0 = every frame
	GPUEnabled        bool    `yaml:"gpu_enabled"`
}

// QualityConfig holds LOD controller parameters.
type QualityConfig struct {
	TargetFPS      float64         `yaml:"target_fps"`      // Above this -> highest profile
	MediumFPS      float64         `yaml:"medium_fps"`      // Above this -> middle profile
	SampleWindow   float64         `yaml:"sample_window"`   // Seconds per FPS evaluation
	DowngradeDelay float64         `yaml:"downgrade_delay"` // Low condition must persist this long
	Initial        string          `yaml:"initial"`
	Profiles       []ProfileConfig `yaml:"profiles"` // Ordered lowest to highest
}

// FeatureConfig holds the visual preset for one audio feature.
type FeatureConfig struct {
	Color       []float64 `yaml:"color"` // RGB 0..1
	Sensitivity float64   `yaml:"sensitivity"`
	Size        float64   `yaml:"size"`
	Lifetime    float64   `yaml:"lifetime"`
	Behavior    string    `yaml:"behavior"` // burst, trail, flow
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow  int     `yaml:"perf_window"`  // Frames in the rolling perf window
	LogInterval float64 `yaml:"log_interval"` // Seconds between perf log lines
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	TextureSide  int            // ceil(sqrt(Pool.Capacity))
	Damping      float32        // From Simulation.Persistence
	ProfileIndex map[string]int // name -> index into Quality.Profiles
	InitialIndex int
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects configurations that cannot build an engine.
func (c *Config) validate() error {
	if c.Pool.Capacity <= 0 {
		return fmt.Errorf("pool.capacity must be positive, got %d", c.Pool.Capacity)
	}
	if len(c.Quality.Profiles) == 0 {
		return errors.New("quality.profiles must not be empty")
	}
	for _, p := range c.Quality.Profiles {
		if p.Name == "" {
			return errors.New("quality profile without a name")
		}
		if p.GPUUpdateInterval < 0 {
			return fmt.Errorf("quality profile %q: gpu_update_interval must be >= 0", p.Name)
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.TextureSide = int(math.Ceil(math.Sqrt(float64(c.Pool.Capacity))))
	c.Derived.Damping = DampingFromPersistence(c.Simulation.Persistence)

	if len(c.Simulation.BandWeights) < 7 {
		weights := make([]float64, 7)
		copy(weights, c.Simulation.BandWeights)
		for i := len(c.Simulation.BandWeights); i < 7; i++ {
			weights[i] = 0.5
		}
		c.Simulation.BandWeights = weights
	}

	// Profile invariant: spawn batch <= budget <= capacity
	for i := range c.Quality.Profiles {
		p := &c.Quality.Profiles[i]
		if p.ParticleBudget <= 0 || p.ParticleBudget > c.Pool.Capacity {
			p.ParticleBudget = c.Pool.Capacity
		}
		if p.SpawnBatchSize <= 0 {
			p.SpawnBatchSize = 1
		}
		if p.SpawnBatchSize > p.ParticleBudget {
			p.SpawnBatchSize = p.ParticleBudget
		}
	}

	c.Derived.ProfileIndex = make(map[string]int, len(c.Quality.Profiles))
	for i, p := range c.Quality.Profiles {
		c.Derived.ProfileIndex[p.Name] = i
	}
	c.Derived.InitialIndex = len(c.Quality.Profiles) - 1
	if idx, ok := c.Derived.ProfileIndex[c.Quality.Initial]; ok {
		c.Derived.InitialIndex = idx
	}

	if c.Features == nil {
		c.Features = make(map[string]FeatureConfig)
	}
}

// DampingFromPersistence maps a 0..1 persistence setting to a per-tick
// velocity damping factor in (0.98, 1.0).
func DampingFromPersistence(persistence float64) float32 {
	if persistence < 0 {
		persistence = 0
	}
	if persistence > 1 {
		persistence = 1
	}
	return float32(0.9801 + 0.0198*persistence)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
