// Package game hosts a particle field on a demo ride: it drives the camera
// along a looping track, feeds synthetic audio features and draws the result.
package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/railfield/blueprint"
	"github.com/pthm-cable/railfield/camera"
	"github.com/pthm-cable/railfield/config"
	"github.com/pthm-cable/railfield/features"
	"github.com/pthm-cable/railfield/field"
	"github.com/pthm-cable/railfield/gpu"
	"github.com/pthm-cable/railfield/renderer"
	"github.com/pthm-cable/railfield/synth"
	"github.com/pthm-cable/railfield/telemetry"
	"github.com/pthm-cable/railfield/ui"
)

// DT is the fixed step of headless runs.
const DT = 1.0 / 60.0

// Options configures a Game.
type Options struct {
	Config    *config.Config // nil = config.Cfg()
	Seed      int64
	LogStats  bool
	OutputDir string
	Headless  bool
	Blueprint string  // Path to a ride blueprint, empty = none
	BPM       float64 // Tempo of the synthetic track, 0 = default

	// FPS reported to the quality controller in headless runs, 0 = 60.
	HeadlessFPS float64

	// StatsCallback receives every flushed telemetry window.
	StatsCallback func(telemetry.WindowStats)

	// Device overrides the simulation device. nil uses the software device
	// when headless and the raylib device otherwise.
	Device gpu.Device
}

// Game holds the ride state.
type Game struct {
	cfg    *config.Config
	field  *field.Field
	camera *camera.Camera
	track  *synth.Track
	output *telemetry.OutputManager
	device *renderer.RaylibDevice // nil when headless

	// Rendering, nil when headless
	particles *renderer.ParticleRenderer
	sky       *renderer.SkyRenderer
	hud       *ui.HUD
	perfPanel *ui.PerfPanel
	tuning    *ui.TuningPanel

	blueprintPath string
	headlessFPS   float64
	boost         float32
	tuningValues  ui.TuningValues
	lastStats     telemetry.WindowStats
	lastOut       field.Output
	sample        features.Sample
	frameOpen     bool

	now      float64
	tick     int32
	paused   bool
	showPerf bool
	screenW  float32
	screenH  float32
	unloaded bool
}

// NewGame builds a ride. Graphical games must be created after the window.
func NewGame(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	if err := output.WriteConfig(cfg); err != nil {
		slog.Warn("config_snapshot_failed", "error", err)
	}

	g := &Game{
		cfg:           cfg,
		output:        output,
		track:         synth.New(opts.Seed, opts.BPM),
		blueprintPath: opts.Blueprint,
		headlessFPS:   opts.HeadlessFPS,
		boost:         1,
		screenW:       float32(cfg.Screen.Width),
		screenH:       float32(cfg.Screen.Height),
	}
	if g.headlessFPS <= 0 {
		g.headlessFPS = 60
	}
	g.camera = camera.New(camera.DefaultTrack,
		float32(cfg.Camera.Speed),
		float32(cfg.Camera.Height),
		float32(cfg.Camera.LookAhead),
		float32(cfg.Camera.Fovy),
	)

	device := opts.Device
	sources := renderer.Sources()
	if device == nil {
		if opts.Headless {
			device = gpu.NewSoftwareDevice(opts.Seed)
		} else {
			rd, err := renderer.NewRaylibDevice(cfg.Simulation.MaxTexture)
			if err != nil {
				output.Close()
				return nil, fmt.Errorf("creating device: %w", err)
			}
			g.device = rd
			device = rd
		}
	}

	g.field, err = field.New(field.Options{
		Config:   cfg,
		Device:   device,
		Sources:  sources,
		LogStats: opts.LogStats,
		Output:   output,
		StatsCallback: func(s telemetry.WindowStats) {
			g.lastStats = s
			if opts.StatsCallback != nil {
				opts.StatsCallback(s)
			}
		},
	})
	if err != nil {
		g.Unload()
		return nil, err
	}

	strength, scale, _ := g.field.Turbulence()
	g.tuningValues = ui.TuningValues{
		CurlStrength: strength,
		NoiseScale:   scale,
		Persistence:  float32(cfg.Simulation.Persistence),
		Boost:        1,
	}.Clamp()

	if g.blueprintPath != "" {
		if err := g.loadBlueprint(); err != nil {
			g.Unload()
			return nil, err
		}
	}

	if !opts.Headless {
		if err := g.initRendering(); err != nil {
			g.Unload()
			return nil, err
		}
	}

	g.field.StartGPU(context.Background())
	return g, nil
}

func (g *Game) loadBlueprint() error {
	bp, err := blueprint.Load(g.blueprintPath)
	if err != nil {
		return err
	}
	g.field.ApplyBlueprint(bp.Tuning())
	slog.Info("blueprint_loaded", "path", g.blueprintPath, "ride", bp.RideName)
	return nil
}

// Field returns the hosted particle field.
func (g *Game) Field() *field.Field { return g.field }

// Camera returns the ride camera.
func (g *Game) Camera() *camera.Camera { return g.camera }

// Tick returns the number of simulated frames.
func (g *Game) Tick() int32 { return g.tick }

// Now returns the ride clock in seconds.
func (g *Game) Now() float64 { return g.now }

// LastStats returns the most recent telemetry window.
func (g *Game) LastStats() telemetry.WindowStats { return g.lastStats }

// Unload releases the field, renderers and output files.
func (g *Game) Unload() {
	if g.unloaded {
		return
	}
	g.unloaded = true
	if g.particles != nil {
		g.particles.Unload()
	}
	if g.sky != nil {
		g.sky.Unload()
	}
	if g.field != nil {
		g.field.Dispose()
	}
	if g.device != nil {
		g.device.Close()
	}
	if err := g.output.Close(); err != nil {
		slog.Warn("output_close_failed", "error", err)
	}
}
