// Package gpu runs the particle simulation as a pair of full-buffer passes over
// floating-point render targets, ping-ponging between two copies of the
// position and velocity state each tick.
package gpu

import (
	"context"
	"errors"
	"fmt"

	"github.com/pthm-cable/railfield/features"
)

// Kernel identifies one of the simulation passes.
type Kernel uint8

const (
	KernelVelocity Kernel = iota
	KernelPosition
)

func (k Kernel) String() string {
	switch k {
	case KernelVelocity:
		return "velocity"
	case KernelPosition:
		return "position"
	default:
		return fmt.Sprintf("kernel(%d)", uint8(k))
	}
}

// TexelStride is the number of floats per texel (xyz + flag).
const TexelStride = 4

// Target is an opaque handle to a square floating-point render target.
type Target interface {
	Side() int
}

// TexelWrite sets one texel of a target.
type TexelWrite struct {
	Index int
	Value [TexelStride]float32
}

// PassInputs are the samplers bound for a pass.
type PassInputs struct {
	Position Target
	Velocity Target
}

// Uniforms are the per-tick scalar inputs shared by both passes.
type Uniforms struct {
	Time         float32
	DeltaTime    float32
	Bands        features.Bands // Already clamped and scaled by the intensity boost
	AudioForce   float32
	CurlStrength float32
	NoiseScale   float32
	NoiseSpeed   float32
	Gravity      float32
	Damping      float32
	PulseRate    float32
	ImpulseGain  float32
	BandWeights  features.Bands
	Floor        float32
	HiddenY      float32
}

// Capabilities describes what a device probe found.
type Capabilities struct {
	Renderer       string
	Vendor         string
	FloatTargets   bool // Float render targets verified framebuffer-complete
	MaxTextureSize int
}

// Device is the rendering surface the engine draws its passes on.
// Implementations must be used from a single goroutine.
type Device interface {
	// Probe verifies float render target support by building and checking a
	// small framebuffer, not by inspecting extension strings alone.
	Probe(ctx context.Context) (Capabilities, error)
	NewTarget(side int) (Target, error)
	Compile(k Kernel, source string) error
	Run(k Kernel, dst Target, in PassInputs, u *Uniforms) error
	Upload(dst Target, texels []float32) error
	WriteTexels(dst Target, writes []TexelWrite) error
	Release(t Target)
}

// ErrDisposed is returned by operations on a disposed engine.
var ErrDisposed = errors.New("gpu: engine disposed")

// CapabilityError reports that the device cannot run the simulation at all.
// It is permanent for the session.
type CapabilityError struct {
	Renderer string
	Vendor   string
	Reason   string
	Err      error
}

func (e *CapabilityError) Error() string {
	msg := fmt.Sprintf("gpu capability: %s (renderer=%q vendor=%q)", e.Reason, e.Renderer, e.Vendor)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// IsCapability reports whether err is a permanent capability failure.
func IsCapability(err error) bool {
	var ce *CapabilityError
	return errors.As(err, &ce)
}

// TexelCoords maps a particle index to its texel row and column.
func TexelCoords(index, side int) (row, col int) {
	return index / side, index % side
}
