package field

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/railfield/features"
	"github.com/pthm-cable/railfield/gpu"
	"github.com/pthm-cable/railfield/quality"
	"github.com/pthm-cable/railfield/spawner"
	"github.com/pthm-cable/railfield/telemetry"
)

// Frame is the per-frame input from the host.
type Frame struct {
	Camera   mgl32.Vec3
	LookAt   mgl32.Vec3
	Features features.Sample
	Boost    float32 // Segment intensity boost
	LOD      float32 // 0..1 detail level, scales spawn size and count
	FPS      float64 // Measured frame rate, <= 0 = not sampled
}

// Output is what the renderer needs to draw the frame.
type Output struct {
	Mode       Mode
	Sampler    gpu.Target          // Latest position target, nil in CPU mode
	Attributes *spawner.Attributes // Color, scale and tag per slot
	Positions  []float32           // CPU positions (xyz per slot), nil in GPU mode
	Pulse      float32

	GPUTicked bool
	Spawned   int
	Reclaimed int
}

// Tick runs one frame: quality, spawn, simulate, reclaim. It starts a perf
// frame that the caller closes with EndFrame after drawing. Errors never
// escape; GPU failures switch the field to the CPU path.
func (f *Field) Tick(now, dt float64, fr Frame) Output {
	if f.disposed {
		return Output{Mode: ModeCPU}
	}
	f.now = now
	f.perf.StartFrame()

	f.perf.StartPhase(telemetry.PhaseQuality)
	f.runProbe(now)
	if fr.FPS > 0 {
		if d := f.quality.Sample(now, fr.FPS); d.Changed {
			f.applyDecision(now, d)
		}
	}

	f.perf.StartPhase(telemetry.PhaseSpawn)
	spawned, wraps, fires := f.spawner.Spawned(), f.spawner.Wraps(), f.spawner.Fires()
	force := fr.Features.AudioForce()
	boost := fr.Boost * f.boost
	f.pulse = f.spawner.Drive(now, dt, fr.Camera, fr.LookAt, fr.Features, boost, fr.LOD, force)

	f.perf.StartPhase(telemetry.PhaseSimulate)
	ticked := false
	if f.engine.Enabled() {
		ticked = f.engine.Tick(now, dt, gpu.TickInput{
			Bands:      fr.Features.Bands,
			Boost:      boost,
			AudioForce: force,
		})
		if !f.engine.Enabled() {
			f.onRuntimeFailure(now)
		}
	} else {
		f.cpu.Update(float32(dt))
	}

	f.perf.StartPhase(telemetry.PhaseReclaim)
	reclaimed := f.pool.ReclaimExpired(now)

	out := Output{
		Mode:       f.Mode(),
		Attributes: f.attrs,
		Pulse:      f.pulse,
		GPUTicked:  ticked,
		Spawned:    f.spawner.Spawned() - spawned,
		Reclaimed:  reclaimed,
	}
	if out.Mode == ModeGPU {
		out.Sampler = f.engine.Sampler()
	} else {
		out.Positions = f.cpu.Positions()
	}

	f.collector.Record(telemetry.FieldCounts{
		Spawned:   out.Spawned,
		Reclaimed: reclaimed,
		Triggers:  f.spawner.Fires() - fires,
		Wraps:     f.spawner.Wraps() - wraps,
		GPUTick:   ticked,
		Pulse:     f.pulse,
		FPS:       fr.FPS,
	})
	f.flushTelemetry(now)
	return out
}

// EndFrame closes the perf frame started by Tick.
func (f *Field) EndFrame() {
	f.perf.EndFrame()
	f.perf.RecordPresent()
}

// runProbe initializes the engine if StartGPU asked for it.
func (f *Field) runProbe(now float64) {
	if !f.probing {
		return
	}
	ctx := f.probeCtx
	f.probing = false
	f.probeCtx = nil
	if !f.quality.GPUAllowed() {
		slog.Info("gpu_probe_dropped", "profile", f.quality.Current().Name)
		return
	}

	err := f.engine.Init(ctx)
	caps := f.engine.Capabilities()
	switch {
	case err == nil:
		f.quality.GPURestored()
		f.emit(telemetry.QualityEvent{
			Time:     now,
			Kind:     telemetry.KindGPUEnabled,
			To:       f.quality.Current().Name,
			Budget:   f.pool.Budget(),
			Renderer: caps.Renderer,
			Vendor:   caps.Vendor,
		})
	case errors.Is(err, gpu.ErrDisposed), ctx.Err() != nil:
		// Cancelled or shutting down; a later StartGPU may retry.
	case gpu.IsCapability(err):
		f.quality.ForceCPU(err.Error(), true)
		f.emit(telemetry.QualityEvent{
			Time:     now,
			Kind:     telemetry.KindCapability,
			Renderer: caps.Renderer,
			Vendor:   caps.Vendor,
			Reason:   err.Error(),
		})
	default:
		f.quality.ForceCPU(err.Error(), false)
		f.emit(telemetry.QualityEvent{
			Time:     now,
			Kind:     telemetry.KindFallback,
			Renderer: caps.Renderer,
			Vendor:   caps.Vendor,
			Reason:   err.Error(),
		})
	}
}

// onRuntimeFailure handles an engine that disabled itself during a tick.
func (f *Field) onRuntimeFailure(now float64) {
	reason := "gpu pass failed"
	if err := f.engine.FallbackReason(); err != nil {
		reason = err.Error()
	}
	f.quality.ForceCPU(reason, false)
	caps := f.engine.Capabilities()
	f.emit(telemetry.QualityEvent{
		Time:     now,
		Kind:     telemetry.KindFallback,
		From:     f.quality.Current().Name,
		Budget:   f.pool.Budget(),
		Renderer: caps.Renderer,
		Vendor:   caps.Vendor,
		Reason:   reason,
	})
}

// applyDecision reconfigures the field for a new profile. It only runs at
// frame start, before anything spawns.
func (f *Field) applyDecision(now float64, d quality.Decision) {
	from := f.quality.Profiles()[d.From]
	to := d.Profile

	f.pool.SetBudget(to.ParticleBudget)
	f.spawner.SetBatchSize(to.SpawnBatchSize)
	f.engine.SetUpdateInterval(to.GPUUpdateInterval)
	f.emit(telemetry.QualityEvent{
		Time:   now,
		Kind:   telemetry.KindProfile,
		From:   from.Name,
		To:     to.Name,
		FPS:    d.FPS,
		Budget: to.ParticleBudget,
	})

	if d.ForceCPU {
		// A probe requested under the previous profile must not enable the GPU here.
		f.probing = false
		f.probeCtx = nil
	}
	if d.ForceCPU && f.engine.State() == gpu.Enabled {
		f.engine.Disable("profile " + to.Name + " runs on the cpu")
		f.emit(telemetry.QualityEvent{
			Time:   now,
			Kind:   telemetry.KindGPUDisabled,
			From:   from.Name,
			To:     to.Name,
			Budget: to.ParticleBudget,
			Reason: "profile",
		})
	}
	if d.ReprobeGPU && !f.engine.Enabled() {
		f.StartGPU(context.Background())
	}
}
