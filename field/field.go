// Package field ties the particle pool, spawner, GPU engine, CPU fallback and
// quality controller into one per-frame update.
package field

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/railfield/config"
	"github.com/pthm-cable/railfield/fallback"
	"github.com/pthm-cable/railfield/features"
	"github.com/pthm-cable/railfield/gpu"
	"github.com/pthm-cable/railfield/pool"
	"github.com/pthm-cable/railfield/quality"
	"github.com/pthm-cable/railfield/spawner"
	"github.com/pthm-cable/railfield/telemetry"
)

// Mode is the simulation path used for a frame.
type Mode uint8

const (
	ModeCPU Mode = iota
	ModeGPU
)

func (m Mode) String() string {
	if m == ModeGPU {
		return "gpu"
	}
	return "cpu"
}

// Options configures a Field.
type Options struct {
	Config  *config.Config // nil = config.Cfg()
	Device  gpu.Device
	Sources gpu.Sources

	LogStats      bool
	Output        *telemetry.OutputManager // nil disables CSV output
	StatsCallback func(telemetry.WindowStats)
	EventCallback func(telemetry.QualityEvent)
}

// Field owns every particle component for one ride.
type Field struct {
	cfg *config.Config

	pool     *pool.Pool
	registry *features.Registry
	attrs    *spawner.Attributes
	engine   *gpu.Engine
	cpu      *fallback.Renderer
	spawner  *spawner.Spawner
	quality  *quality.Controller

	collector     *telemetry.Collector
	perf          *telemetry.PerfCollector
	output        *telemetry.OutputManager
	logStats      bool
	statsCallback func(telemetry.WindowStats)
	eventCallback func(telemetry.QualityEvent)

	// GPU init requested by StartGPU, run at the start of the next frame.
	probeCtx context.Context
	probing  bool

	turbulence [3]float32 // strength, scale, speed before the blueprint multiplier
	curlMult   float32
	boost      float32

	now      float64
	pulse    float32
	disposed bool
}

// New builds a field with the configured capacity and initial quality
// profile. The GPU engine starts disabled; call StartGPU to probe it.
func New(opts Options) (*Field, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	if opts.Device == nil {
		return nil, fmt.Errorf("creating field: nil device")
	}

	p, err := pool.New(cfg.Pool.Capacity)
	if err != nil {
		return nil, fmt.Errorf("creating field: %w", err)
	}
	engine, err := gpu.NewEngine(opts.Device, cfg.Pool.Capacity, cfg.Simulation, opts.Sources)
	if err != nil {
		return nil, fmt.Errorf("creating field: %w", err)
	}

	q := quality.New(cfg.Quality, cfg.Derived.InitialIndex)
	profile := q.Current()

	registry := features.NewRegistry(cfg.Features)
	attrs := spawner.NewAttributes(cfg.Pool.Capacity)
	cpu := fallback.New(cfg.Pool.Capacity, cfg.Fallback, cfg.Simulation.HiddenY)

	// Every seed reaches both paths so either can take over between frames.
	sp := spawner.New(cfg.Spawner, p, registry, attrs, profile.SpawnBatchSize, engine, cpu)

	p.Attach(engine)
	p.Attach(cpu)
	p.Attach(attrs)
	p.SetBudget(profile.ParticleBudget)
	engine.SetUpdateInterval(profile.GPUUpdateInterval)

	f := &Field{
		cfg:           cfg,
		pool:          p,
		registry:      registry,
		attrs:         attrs,
		engine:        engine,
		cpu:           cpu,
		spawner:       sp,
		quality:       q,
		collector:     telemetry.NewCollector(cfg.Telemetry.LogInterval),
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		output:        opts.Output,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
		eventCallback: opts.EventCallback,
		turbulence: [3]float32{
			float32(cfg.Simulation.CurlStrength),
			float32(cfg.Simulation.NoiseScale),
			float32(cfg.Simulation.NoiseSpeed),
		},
		curlMult: 1,
		boost:    1,
	}

	slog.Info("field_created",
		"capacity", cfg.Pool.Capacity,
		"side", engine.Side(),
		"profile", profile.Name,
		"budget", profile.ParticleBudget,
	)
	return f, nil
}

// StartGPU requests a GPU probe. It runs on the frame goroutine at the start
// of the next Tick, since device contexts are bound to the thread that made
// them; until then the field keeps using the CPU path. It reports false when
// the active profile or a latched capability failure forbids the GPU.
func (f *Field) StartGPU(ctx context.Context) bool {
	if f.disposed || !f.quality.GPUAllowed() {
		return false
	}
	if f.engine.Enabled() || f.probing {
		return true
	}
	if ctx == nil {
		ctx = context.Background()
	}
	f.probeCtx = ctx
	f.probing = true
	return true
}

// Probing reports whether a GPU probe is waiting for the next frame.
func (f *Field) Probing() bool { return f.probing }

// Mode returns the active simulation path.
func (f *Field) Mode() Mode {
	if f.engine.Enabled() {
		return ModeGPU
	}
	return ModeCPU
}

// Pool returns the instance pool.
func (f *Field) Pool() *pool.Pool { return f.pool }

// Engine returns the GPU simulation engine.
func (f *Field) Engine() *gpu.Engine { return f.engine }

// Fallback returns the CPU fallback renderer.
func (f *Field) Fallback() *fallback.Renderer { return f.cpu }

// Spawner returns the spawner.
func (f *Field) Spawner() *spawner.Spawner { return f.spawner }

// Quality returns the quality controller.
func (f *Field) Quality() *quality.Controller { return f.quality }

// Registry returns the feature preset registry.
func (f *Field) Registry() *features.Registry { return f.registry }

// Attributes returns the static per-particle attributes.
func (f *Field) Attributes() *spawner.Attributes { return f.attrs }

// Perf returns the frame timing collector.
func (f *Field) Perf() *telemetry.PerfCollector { return f.perf }

// Pulse returns the track pulse of the last frame.
func (f *Field) Pulse() float32 { return f.pulse }

// Dispose releases the GPU targets and clears the pool. Later ticks return an
// empty output.
func (f *Field) Dispose() {
	if f.disposed {
		return
	}
	f.disposed = true
	f.probing = false
	f.engine.Dispose()
	f.pool.Clear()
	f.cpu.Reset()
	slog.Info("field_disposed")
}
