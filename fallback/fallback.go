// Package fallback is the CPU particle representation used when the GPU
// simulation is unavailable or switched off by the quality controller.
package fallback

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/railfield/config"
	"github.com/pthm-cable/railfield/pool"
)

// Renderer holds explicit per-slot arrays that a points-style draw reads
// every frame. Motion is plain Euler integration with no turbulence.
type Renderer struct {
	positions  []float32 // xyz per slot
	velocities []float32 // xyz per slot
	startTimes []float32
	sizes      []float32
	visible    []bool

	hiddenY       float32
	velocityScale float32
	visibleCount  int
}

// New creates a fallback renderer with every slot hidden.
func New(capacity int, cfg config.FallbackConfig, hiddenY float64) *Renderer {
	r := &Renderer{
		positions:     make([]float32, capacity*3),
		velocities:    make([]float32, capacity*3),
		startTimes:    make([]float32, capacity),
		sizes:         make([]float32, capacity),
		visible:       make([]bool, capacity),
		hiddenY:       float32(hiddenY),
		velocityScale: float32(cfg.VelocityScale),
	}
	for i := 0; i < capacity; i++ {
		r.positions[i*3+1] = r.hiddenY
	}
	return r
}

// Capacity returns the slot count.
func (r *Renderer) Capacity() int {
	return len(r.sizes)
}

// Seed writes the spawn state of a slot. Velocities are scaled by the
// configured velocity scale, so the default of 0 leaves particles where
// spawn jitter put them.
func (r *Renderer) Seed(s pool.Seed) {
	i := s.Index
	if i < 0 || i >= len(r.sizes) {
		return
	}
	o := i * 3
	r.positions[o+0] = s.Position.X()
	r.positions[o+1] = s.Position.Y()
	r.positions[o+2] = s.Position.Z()
	v := s.Velocity.Mul(r.velocityScale)
	r.velocities[o+0] = v.X()
	r.velocities[o+1] = v.Y()
	r.velocities[o+2] = v.Z()
	r.startTimes[i] = float32(s.StartTime)
	r.sizes[i] = s.Size
	if !r.visible[i] {
		r.visible[i] = true
		r.visibleCount++
	}
}

// Hide moves a slot to the sentinel height and zeroes its size.
func (r *Renderer) Hide(index int) {
	if index < 0 || index >= len(r.sizes) {
		return
	}
	o := index * 3
	r.positions[o+0] = 0
	r.positions[o+1] = r.hiddenY
	r.positions[o+2] = 0
	r.velocities[o+0] = 0
	r.velocities[o+1] = 0
	r.velocities[o+2] = 0
	r.startTimes[index] = 0
	r.sizes[index] = 0
	if r.visible[index] {
		r.visible[index] = false
		r.visibleCount--
	}
}

// Update advances every visible slot by dt.
func (r *Renderer) Update(dt float32) {
	if dt <= 0 || r.velocityScale == 0 {
		return
	}
	for i, vis := range r.visible {
		if !vis {
			continue
		}
		o := i * 3
		r.positions[o+0] += r.velocities[o+0] * dt
		r.positions[o+1] += r.velocities[o+1] * dt
		r.positions[o+2] += r.velocities[o+2] * dt
	}
}

// Positions returns the xyz array, three floats per slot.
func (r *Renderer) Positions() []float32 { return r.positions }

// Velocities returns the xyz velocity array.
func (r *Renderer) Velocities() []float32 { return r.velocities }

// StartTimes returns the spawn time per slot.
func (r *Renderer) StartTimes() []float32 { return r.startTimes }

// Sizes returns the draw size per slot; hidden slots are 0.
func (r *Renderer) Sizes() []float32 { return r.sizes }

// Position returns the position of one slot.
func (r *Renderer) Position(index int) mgl32.Vec3 {
	if index < 0 || index >= len(r.sizes) {
		return mgl32.Vec3{0, r.hiddenY, 0}
	}
	o := index * 3
	return mgl32.Vec3{r.positions[o], r.positions[o+1], r.positions[o+2]}
}

// Visible reports whether a slot should be drawn.
func (r *Renderer) Visible(index int) bool {
	return index >= 0 && index < len(r.visible) && r.visible[index]
}

// VisibleCount returns the number of drawable slots.
func (r *Renderer) VisibleCount() int {
	return r.visibleCount
}

// Reset hides every slot.
func (r *Renderer) Reset() {
	for i := range r.visible {
		r.Hide(i)
	}
}
