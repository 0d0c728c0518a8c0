package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/railfield/config"
	"github.com/pthm-cable/railfield/features"
	"github.com/pthm-cable/railfield/pool"
)

// State is the engine's operating mode.
type State uint8

const (
	Disabled State = iota
	Enabled
)

func (s State) String() string {
	if s == Enabled {
		return "enabled"
	}
	return "disabled"
}

// Sources holds the kernel programs handed to the device. They are opaque to
// the engine.
type Sources struct {
	Velocity string
	Position string
}

// TickInput is the per-frame audio state fed to the velocity pass.
type TickInput struct {
	Bands      features.Bands // Raw band energies; clamped and boosted by the engine
	Boost      float32        // Segment intensity boost
	AudioForce float32
}

// Engine advances particle positions and velocities on a Device using two
// ping-pong pairs of float targets. All methods must be called from the
// goroutine that owns the device.
type Engine struct {
	device   Device
	sources  Sources
	capacity int
	side     int
	hiddenY  float32
	maxDelta float64
	maxSide  int

	state    State
	disposed bool
	caps     Capabilities
	reason   error

	positions  DoubleBuffer[Target]
	velocities DoubleBuffer[Target]

	params  Params
	pending Params
	setters map[string]paramSetter

	interval float64
	lastTick float64
	ticked   bool
	ticks    int
	flips    int

	// CPU shadows of the read-side targets. Seeds and hides are staged here
	// and flushed as texel writes before the next pass.
	posShadow []float32
	velShadow []float32
	dirty     []int
	dirtyMark []bool
}

// NewEngine creates a disabled engine for capacity particles. No device work
// happens until Init.
func NewEngine(device Device, capacity int, sim config.SimulationConfig, sources Sources) (*Engine, error) {
	if device == nil {
		return nil, errors.New("gpu: nil device")
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("gpu: capacity must be positive, got %d", capacity)
	}
	side := int(math.Ceil(math.Sqrt(float64(capacity))))
	texels := side * side

	e := &Engine{
		device:    device,
		sources:   sources,
		capacity:  capacity,
		side:      side,
		hiddenY:   float32(sim.HiddenY),
		maxDelta:  sim.MaxDelta,
		maxSide:   sim.MaxTexture,
		params:    ParamsFromConfig(sim),
		setters:   buildSetters(),
		posShadow: make([]float32, texels*TexelStride),
		velShadow: make([]float32, texels*TexelStride),
		dirtyMark: make([]bool, texels),
	}
	e.pending = e.params
	hidden := HiddenTexel(e.hiddenY)
	for i := 0; i < texels; i++ {
		copy(e.posShadow[i*TexelStride:], hidden[:])
	}
	return e, nil
}

// Side returns the side of the simulation targets.
func (e *Engine) Side() int { return e.side }

// State returns the current mode.
func (e *Engine) State() State { return e.state }

// Enabled reports whether ticks will run.
func (e *Engine) Enabled() bool { return e.state == Enabled && !e.disposed }

// Capabilities returns what the last probe reported.
func (e *Engine) Capabilities() Capabilities { return e.caps }

// FallbackReason returns why the engine last left or failed to enter Enabled.
func (e *Engine) FallbackReason() error { return e.reason }

// Ticks returns the number of executed ticks since construction.
func (e *Engine) Ticks() int { return e.ticks }

// Flips returns how many times the position pair has swapped roles since
// construction. It survives fallback and re-Init, so it always equals Ticks.
func (e *Engine) Flips() int { return e.flips }

// ReadIsA reports whether the first position target is the read side.
func (e *Engine) ReadIsA() bool { return e.positions.ReadIsA() }

// Params returns the live parameters, or the staged ones while disabled.
func (e *Engine) Params() Params {
	if e.state == Enabled {
		return e.params
	}
	return e.pending
}

// Init probes the device, allocates the four targets and compiles both
// kernels. On any failure the engine stays Disabled and the error is
// returned; capability problems are reported as *CapabilityError.
//
// The new targets are filled from the seed shadows, which hold each slot's
// spawn-time position and velocity. After a Disable or a runtime fallback,
// particles still alive therefore restart from where they were seeded.
func (e *Engine) Init(ctx context.Context) error {
	if e.disposed {
		return ErrDisposed
	}
	if e.state == Enabled {
		return nil
	}

	caps, err := e.device.Probe(ctx)
	e.caps = caps
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return e.failCapability("probe failed", err)
	}
	if !caps.FloatTargets {
		return e.failCapability("float render targets are not framebuffer-complete", nil)
	}
	maxSide := caps.MaxTextureSize
	if e.maxSide > 0 && (maxSide <= 0 || e.maxSide < maxSide) {
		maxSide = e.maxSide
	}
	if maxSide > 0 && e.side > maxSide {
		return e.failCapability(fmt.Sprintf("texture side %d exceeds limit %d", e.side, maxSide), nil)
	}

	if err := e.allocate(); err != nil {
		e.release()
		return e.fail("allocating targets", err)
	}
	if err := e.device.Compile(KernelVelocity, e.sources.Velocity); err != nil {
		e.release()
		return e.fail("compiling velocity kernel", err)
	}
	if err := e.device.Compile(KernelPosition, e.sources.Position); err != nil {
		e.release()
		return e.fail("compiling position kernel", err)
	}
	if err := e.device.Upload(e.positions.Read(), e.posShadow); err != nil {
		e.release()
		return e.fail("uploading positions", err)
	}
	if err := e.device.Upload(e.velocities.Read(), e.velShadow); err != nil {
		e.release()
		return e.fail("uploading velocities", err)
	}
	e.clearDirty()

	e.params = e.pending
	e.state = Enabled
	e.reason = nil
	e.ticked = false
	slog.Info("gpu_enabled",
		"renderer", caps.Renderer,
		"vendor", caps.Vendor,
		"side", e.side,
		"capacity", e.capacity,
	)
	return nil
}

func (e *Engine) allocate() error {
	targets := make([]Target, 0, 4)
	for i := 0; i < 4; i++ {
		t, err := e.device.NewTarget(e.side)
		if err != nil {
			for _, done := range targets {
				e.device.Release(done)
			}
			return err
		}
		targets = append(targets, t)
	}
	e.positions = NewDoubleBuffer(targets[0], targets[1])
	e.velocities = NewDoubleBuffer(targets[2], targets[3])
	return nil
}

func (e *Engine) release() {
	for _, pair := range []*DoubleBuffer[Target]{&e.positions, &e.velocities} {
		a, b := pair.Both()
		if a != nil {
			e.device.Release(a)
		}
		if b != nil {
			e.device.Release(b)
		}
		*pair = DoubleBuffer[Target]{}
	}
}

func (e *Engine) failCapability(reason string, err error) error {
	ce := &CapabilityError{
		Renderer: e.caps.Renderer,
		Vendor:   e.caps.Vendor,
		Reason:   reason,
		Err:      err,
	}
	e.reason = ce
	slog.Warn("gpu_unavailable",
		"reason", reason,
		"renderer", e.caps.Renderer,
		"vendor", e.caps.Vendor,
		"error", err,
	)
	return ce
}

func (e *Engine) fail(stage string, err error) error {
	wrapped := fmt.Errorf("gpu: %s: %w", stage, err)
	e.reason = wrapped
	slog.Warn("gpu_fallback",
		"stage", stage,
		"renderer", e.caps.Renderer,
		"vendor", e.caps.Vendor,
		"error", err,
	)
	return wrapped
}

// Disable leaves Enabled and releases the targets. The staged parameters and
// seed shadows survive so a later Init resumes from them.
func (e *Engine) Disable(reason string) {
	if e.state != Enabled {
		return
	}
	e.state = Disabled
	e.reason = errors.New(reason)
	e.release()
	slog.Info("gpu_disabled", "reason", reason)
}

// SetUpdateInterval sets the minimum seconds between executed ticks.
func (e *Engine) SetUpdateInterval(seconds float64) {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	e.interval = seconds
}

// Interval returns the tick throttle in seconds.
func (e *Engine) Interval() float64 { return e.interval }

// Tick runs one velocity pass and one position pass and swaps both pairs. It
// returns false without swapping when the engine is not enabled or the update
// interval has not elapsed. A failing pass disables the engine.
func (e *Engine) Tick(now, dt float64, in TickInput) bool {
	if e.disposed || e.state != Enabled {
		return false
	}
	step := dt
	if e.ticked {
		since := now - e.lastTick
		if since < e.interval {
			return false
		}
		if e.interval > 0 {
			step = since
		}
	}
	if step < 0 || math.IsNaN(step) {
		step = 0
	}
	if e.maxDelta > 0 && step > e.maxDelta {
		step = e.maxDelta
	}

	if err := e.flush(); err != nil {
		e.runtimeFailure("flushing seeds", err)
		return false
	}

	u := e.uniforms(now, step, in)
	velIn := PassInputs{Position: e.positions.Read(), Velocity: e.velocities.Read()}
	if err := e.device.Run(KernelVelocity, e.velocities.Write(), velIn, &u); err != nil {
		e.runtimeFailure("velocity pass", err)
		return false
	}
	posIn := PassInputs{Position: e.positions.Read(), Velocity: e.velocities.Write()}
	if err := e.device.Run(KernelPosition, e.positions.Write(), posIn, &u); err != nil {
		e.runtimeFailure("position pass", err)
		return false
	}

	e.positions.Swap()
	e.velocities.Swap()
	e.flips++
	e.lastTick = now
	e.ticked = true
	e.ticks++
	return true
}

func (e *Engine) runtimeFailure(stage string, err error) {
	e.fail(stage, err)
	e.state = Disabled
	e.release()
}

func (e *Engine) uniforms(now, step float64, in TickInput) Uniforms {
	force := in.AudioForce
	if force < 0 || force != force {
		force = 0
	}
	return Uniforms{
		Time:         float32(now),
		DeltaTime:    float32(step),
		Bands:        in.Bands.Scaled(in.Boost),
		AudioForce:   force,
		CurlStrength: e.params.CurlStrength,
		NoiseScale:   e.params.NoiseScale,
		NoiseSpeed:   e.params.NoiseSpeed,
		Gravity:      e.params.Gravity,
		Damping:      e.params.Damping,
		PulseRate:    e.params.PulseRate,
		ImpulseGain:  e.params.ImpulseGain,
		BandWeights:  e.params.BandWeights,
		Floor:        e.params.Floor,
		HiddenY:      e.hiddenY,
	}
}

// Sampler returns the position target most recently written by a tick, or
// nil while disabled.
func (e *Engine) Sampler() Target {
	if e.state != Enabled || e.disposed {
		return nil
	}
	return e.positions.Read()
}

// Seed stages the spawn state of one slot. It is written to the read-side
// targets on the next Flush or Tick.
func (e *Engine) Seed(s pool.Seed) {
	if s.Index < 0 || s.Index >= e.capacity {
		return
	}
	o := s.Index * TexelStride
	e.posShadow[o+0] = s.Position.X()
	e.posShadow[o+1] = s.Position.Y()
	e.posShadow[o+2] = s.Position.Z()
	e.posShadow[o+3] = 1
	e.velShadow[o+0] = s.Velocity.X()
	e.velShadow[o+1] = s.Velocity.Y()
	e.velShadow[o+2] = s.Velocity.Z()
	e.velShadow[o+3] = float32(s.Tag) + 1
	e.markDirty(s.Index)
}

// Hide stages the hidden sentinel for one slot.
func (e *Engine) Hide(index int) {
	if index < 0 || index >= e.capacity {
		return
	}
	hidden := HiddenTexel(e.hiddenY)
	o := index * TexelStride
	copy(e.posShadow[o:o+TexelStride], hidden[:])
	for k := 0; k < TexelStride; k++ {
		e.velShadow[o+k] = 0
	}
	e.markDirty(index)
}

// Flush writes staged seeds and hides to the read-side targets. Errors
// disable the engine and are reported through FallbackReason.
func (e *Engine) Flush() {
	if e.disposed || e.state != Enabled {
		return
	}
	if err := e.flush(); err != nil {
		e.runtimeFailure("flushing seeds", err)
	}
}

// Pending returns the number of staged texels not yet written.
func (e *Engine) Pending() int { return len(e.dirty) }

func (e *Engine) flush() error {
	if len(e.dirty) == 0 {
		return nil
	}
	posWrites := make([]TexelWrite, len(e.dirty))
	velWrites := make([]TexelWrite, len(e.dirty))
	for n, idx := range e.dirty {
		o := idx * TexelStride
		posWrites[n].Index = idx
		velWrites[n].Index = idx
		copy(posWrites[n].Value[:], e.posShadow[o:o+TexelStride])
		copy(velWrites[n].Value[:], e.velShadow[o:o+TexelStride])
	}
	if err := e.device.WriteTexels(e.positions.Read(), posWrites); err != nil {
		return err
	}
	if err := e.device.WriteTexels(e.velocities.Read(), velWrites); err != nil {
		return err
	}
	e.clearDirty()
	return nil
}

func (e *Engine) markDirty(index int) {
	if e.dirtyMark[index] {
		return
	}
	e.dirtyMark[index] = true
	e.dirty = append(e.dirty, index)
}

func (e *Engine) clearDirty() {
	for _, idx := range e.dirty {
		e.dirtyMark[idx] = false
	}
	e.dirty = e.dirty[:0]
}

// SetTurbulence patches the curl-noise parameters without touching buffers.
func (e *Engine) SetTurbulence(strength, scale, speed float32) {
	e.apply(func(p *Params) {
		p.CurlStrength = nonNegative(strength)
		p.NoiseScale = nonNegative(scale)
		p.NoiseSpeed = speed
	})
}

// SetFeatureLevel sets the impulse weight of one band.
func (e *Engine) SetFeatureLevel(tag features.Tag, v float32) {
	if tag >= features.NumBands {
		return
	}
	e.apply(func(p *Params) { p.BandWeights[tag] = nonNegative(v) })
}

// ApplyNamedParameter sets a parameter by its uniform name. Unknown names are
// ignored and reported as false.
func (e *Engine) ApplyNamedParameter(name string, value float32) bool {
	set, ok := e.setters[name]
	if !ok {
		return false
	}
	e.apply(func(p *Params) { set(p, value) })
	return true
}

// apply always updates the staged parameters and, when enabled, the live ones.
func (e *Engine) apply(fn func(p *Params)) {
	fn(&e.pending)
	if e.state == Enabled {
		fn(&e.params)
	}
}

// Dispose releases all targets. Later calls to any method are no-ops.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	e.release()
	e.state = Disabled
	e.disposed = true
	e.reason = ErrDisposed
	e.clearDirty()
}
