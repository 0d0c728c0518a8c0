package spawner

import "github.com/pthm-cable/railfield/features"

// Attributes are the static per-instance values the draw call reads next to
// the simulated positions. They only change at spawn and hide time.
type Attributes struct {
	Colors []float32 // rgb per slot
	Scales []float32
	Tags   []float32 // features.Tag as float for shader lookup

	lo, hi int // dirty range [lo, hi)
	full   bool
}

// NewAttributes creates attribute arrays for capacity slots, all scaled to 0.
func NewAttributes(capacity int) *Attributes {
	a := &Attributes{
		Colors: make([]float32, capacity*3),
		Scales: make([]float32, capacity),
		Tags:   make([]float32, capacity),
	}
	for i := range a.Tags {
		a.Tags[i] = float32(features.None)
	}
	a.full = true
	return a
}

// Capacity returns the slot count.
func (a *Attributes) Capacity() int {
	return len(a.Scales)
}

// Set writes the attributes of one slot.
func (a *Attributes) Set(index int, c features.Color, scale float32, tag features.Tag) {
	if index < 0 || index >= len(a.Scales) {
		return
	}
	a.Colors[index*3+0] = c.R
	a.Colors[index*3+1] = c.G
	a.Colors[index*3+2] = c.B
	a.Scales[index] = scale
	a.Tags[index] = float32(tag)
	a.touch(index)
}

// Hide zeroes the scale of a slot.
func (a *Attributes) Hide(index int) {
	if index < 0 || index >= len(a.Scales) {
		return
	}
	a.Scales[index] = 0
	a.Tags[index] = float32(features.None)
	a.touch(index)
}

// MarkFull requests a whole-array upload on the next sync.
func (a *Attributes) MarkFull() {
	a.full = true
}

// Dirty returns the slot range changed since the last ClearDirty. full means
// the consumer must upload every slot.
func (a *Attributes) Dirty() (lo, hi int, full bool) {
	if a.full {
		return 0, len(a.Scales), true
	}
	return a.lo, a.hi, false
}

// ClearDirty marks everything as uploaded.
func (a *Attributes) ClearDirty() {
	a.lo, a.hi = 0, 0
	a.full = false
}

func (a *Attributes) touch(index int) {
	if a.lo == a.hi {
		a.lo, a.hi = index, index+1
		return
	}
	if index < a.lo {
		a.lo = index
	}
	if index+1 > a.hi {
		a.hi = index + 1
	}
}
