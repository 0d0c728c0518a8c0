package gpu

import (
	"context"
	"errors"
	"fmt"
)

// SoftwareDevice executes the simulation kernels in Go on float slices. It is
// used for headless runs and tests, and behaves like a device with complete
// float framebuffer support unless configured otherwise.
type SoftwareDevice struct {
	caps     Capabilities
	probeErr error
	failures map[Kernel]error
	compiled map[Kernel]bool
	curl     curlField
	live     int
}

// SoftwareOption configures a SoftwareDevice.
type SoftwareOption func(*SoftwareDevice)

// WithoutFloatTargets makes the probe report no float render target support.
func WithoutFloatTargets() SoftwareOption {
	return func(d *SoftwareDevice) {
		d.caps.FloatTargets = false
	}
}

// WithProbeError makes the probe itself fail.
func WithProbeError(err error) SoftwareOption {
	return func(d *SoftwareDevice) {
		d.probeErr = err
	}
}

// WithMaxTextureSize limits the side of targets the device accepts.
func WithMaxTextureSize(n int) SoftwareOption {
	return func(d *SoftwareDevice) {
		d.caps.MaxTextureSize = n
	}
}

// NewSoftwareDevice creates a CPU-backed device. seed drives the curl noise.
func NewSoftwareDevice(seed int64, opts ...SoftwareOption) *SoftwareDevice {
	d := &SoftwareDevice{
		caps: Capabilities{
			Renderer:       "software",
			Vendor:         "railfield",
			FloatTargets:   true,
			MaxTextureSize: 8192,
		},
		failures: make(map[Kernel]error),
		compiled: make(map[Kernel]bool),
		curl:     newCurlField(seed),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FailKernel makes every subsequent run of k return err. A nil err clears it.
func (d *SoftwareDevice) FailKernel(k Kernel, err error) {
	if err == nil {
		delete(d.failures, k)
		return
	}
	d.failures[k] = err
}

// SetFloatTargets toggles float target support for later probes.
func (d *SoftwareDevice) SetFloatTargets(ok bool) {
	d.caps.FloatTargets = ok
}

// LiveTargets returns how many targets are allocated and not released.
func (d *SoftwareDevice) LiveTargets() int {
	return d.live
}

type softTarget struct {
	side     int
	texels   []float32
	released bool
}

func (t *softTarget) Side() int { return t.side }

// Texels returns the backing data of a target created by this device, or nil.
func (d *SoftwareDevice) Texels(t Target) []float32 {
	st, ok := t.(*softTarget)
	if !ok || st.released {
		return nil
	}
	return st.texels
}

// Texel returns one texel of a target.
func (d *SoftwareDevice) Texel(t Target, index int) [TexelStride]float32 {
	var out [TexelStride]float32
	data := d.Texels(t)
	if data == nil || index < 0 || (index+1)*TexelStride > len(data) {
		return out
	}
	copy(out[:], data[index*TexelStride:])
	return out
}

func (d *SoftwareDevice) Probe(ctx context.Context) (Capabilities, error) {
	if err := ctx.Err(); err != nil {
		return d.caps, err
	}
	if d.probeErr != nil {
		return d.caps, d.probeErr
	}
	return d.caps, nil
}

func (d *SoftwareDevice) NewTarget(side int) (Target, error) {
	if side <= 0 {
		return nil, fmt.Errorf("software device: invalid target side %d", side)
	}
	if side > d.caps.MaxTextureSize {
		return nil, fmt.Errorf("software device: side %d exceeds max %d", side, d.caps.MaxTextureSize)
	}
	if !d.caps.FloatTargets {
		return nil, errors.New("software device: float targets unsupported")
	}
	d.live++
	return &softTarget{side: side, texels: make([]float32, side*side*TexelStride)}, nil
}

func (d *SoftwareDevice) Compile(k Kernel, _ string) error {
	if k != KernelVelocity && k != KernelPosition {
		return fmt.Errorf("software device: unknown kernel %s", k)
	}
	d.compiled[k] = true
	return nil
}

func (d *SoftwareDevice) Run(k Kernel, dst Target, in PassInputs, u *Uniforms) error {
	if err := d.failures[k]; err != nil {
		return err
	}
	if !d.compiled[k] {
		return fmt.Errorf("software device: kernel %s not compiled", k)
	}
	out, err := d.target(dst)
	if err != nil {
		return err
	}
	pos, err := d.target(in.Position)
	if err != nil {
		return err
	}
	vel, err := d.target(in.Velocity)
	if err != nil {
		return err
	}
	if out == pos || out == vel {
		return errors.New("software device: pass reads and writes the same target")
	}

	n := out.side * out.side
	for i := 0; i < n; i++ {
		o := i * TexelStride
		var p, v [TexelStride]float32
		copy(p[:], pos.texels[o:o+TexelStride])
		copy(v[:], vel.texels[o:o+TexelStride])

		var r [TexelStride]float32
		switch k {
		case KernelVelocity:
			r = integrateVelocity(p, v, u, d.curl)
		case KernelPosition:
			r = integratePosition(p, v, u)
		}
		copy(out.texels[o:o+TexelStride], r[:])
	}
	return nil
}

func (d *SoftwareDevice) Upload(dst Target, texels []float32) error {
	t, err := d.target(dst)
	if err != nil {
		return err
	}
	if len(texels) != len(t.texels) {
		return fmt.Errorf("software device: upload of %d floats into %d", len(texels), len(t.texels))
	}
	copy(t.texels, texels)
	return nil
}

func (d *SoftwareDevice) WriteTexels(dst Target, writes []TexelWrite) error {
	t, err := d.target(dst)
	if err != nil {
		return err
	}
	n := t.side * t.side
	for _, w := range writes {
		if w.Index < 0 || w.Index >= n {
			return fmt.Errorf("software device: texel %d out of range", w.Index)
		}
		copy(t.texels[w.Index*TexelStride:], w.Value[:])
	}
	return nil
}

func (d *SoftwareDevice) Release(t Target) {
	st, ok := t.(*softTarget)
	if !ok || st.released {
		return
	}
	st.released = true
	st.texels = nil
	d.live--
}

func (d *SoftwareDevice) target(t Target) (*softTarget, error) {
	st, ok := t.(*softTarget)
	if !ok || st == nil {
		return nil, errors.New("software device: foreign target")
	}
	if st.released {
		return nil, errors.New("software device: target released")
	}
	return st, nil
}
