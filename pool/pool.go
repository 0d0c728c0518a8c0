// Package pool tracks which slots of a fixed-capacity particle array are alive.
//
// Slots are identified by index. A free stack hands out indices below the
// active budget; freed and expired slots are pushed back and every attached
// Hider is told to move the slot out of view.
package pool

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/railfield/features"
)

// ErrCapacity is returned when a pool is constructed with no slots.
var ErrCapacity = errors.New("pool: capacity must be positive")

// Hider is notified whenever a slot stops being alive so that stale draws of
// that slot are moved out of view and scaled to zero.
type Hider interface {
	Hide(index int)
}

// Seed is the initial state of a spawned slot. Position, velocity and start
// time travel together so a consumer never sees a partial write.
type Seed struct {
	Index     int
	Position  mgl32.Vec3
	Velocity  mgl32.Vec3
	StartTime float64
	Size      float32
	Tag       features.Tag
}

// State is the complete bookkeeping of a pool. It is a plain value so that
// budget changes can be computed as a pure function between frames.
type State struct {
	StartTimes []float64
	Lifetimes  []float64
	Tags       []features.Tag
	Allocated  []bool
	Free       []int // Stack; the top is the last element
	Budget     int
}

// Pool is an arena of particle slots with an explicit free stack.
type Pool struct {
	state  State
	hiders []Hider
}

// New creates a pool with every slot free and the budget equal to capacity.
func New(capacity int) (*Pool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrCapacity, capacity)
	}
	s := State{
		StartTimes: make([]float64, capacity),
		Lifetimes:  make([]float64, capacity),
		Tags:       make([]features.Tag, capacity),
		Allocated:  make([]bool, capacity),
		Free:       make([]int, 0, capacity),
		Budget:     capacity,
	}
	for i := range s.Tags {
		s.Tags[i] = features.None
	}
	s.Free = rebuildFree(s.Free, s.Allocated, capacity)
	return &Pool{state: s}, nil
}

// Attach registers a hider. Hiders are called in attach order.
func (p *Pool) Attach(h Hider) {
	p.hiders = append(p.hiders, h)
}

// Capacity returns the fixed slot count.
func (p *Pool) Capacity() int {
	return len(p.state.Lifetimes)
}

// Budget returns the active budget; indices >= budget are never handed out.
func (p *Pool) Budget() int {
	return p.state.Budget
}

// FreeCount returns the number of indices on the free stack.
func (p *Pool) FreeCount() int {
	return len(p.state.Free)
}

// Allocate pops a free index. It returns (-1, false) when the pool is exhausted.
func (p *Pool) Allocate() (int, bool) {
	n := len(p.state.Free)
	if n == 0 {
		return -1, false
	}
	idx := p.state.Free[n-1]
	p.state.Free = p.state.Free[:n-1]
	p.state.Allocated[idx] = true
	return idx, true
}

// Spawn records the spawn metadata of an allocated slot.
func (p *Pool) Spawn(index int, now, lifetime float64, tag features.Tag) {
	if index < 0 || index >= len(p.state.Lifetimes) || !p.state.Allocated[index] {
		return
	}
	p.state.StartTimes[index] = now
	p.state.Lifetimes[index] = lifetime
	p.state.Tags[index] = tag
}

// Free releases a slot, pushes it back on the free stack and hides it.
// Freeing an out-of-range or already free index is a no-op.
func (p *Pool) Free(index int) {
	if index < 0 || index >= len(p.state.Lifetimes) || !p.state.Allocated[index] {
		return
	}
	p.clear(index)
	p.state.Allocated[index] = false
	if index < p.state.Budget {
		p.state.Free = append(p.state.Free, index)
	}
	p.hide(index)
}

// ReclaimExpired frees every slot whose lifetime has elapsed at now and
// returns how many were reclaimed.
func (p *Pool) ReclaimExpired(now float64) int {
	reclaimed := 0
	for i := 0; i < p.state.Budget; i++ {
		if !p.state.Allocated[i] {
			continue
		}
		lt := p.state.Lifetimes[i]
		if lt <= 0 || now-p.state.StartTimes[i] >= lt {
			p.Free(i)
			reclaimed++
		}
	}
	return reclaimed
}

// Alive reports whether slot index is alive at now.
func (p *Pool) Alive(index int, now float64) bool {
	if index < 0 || index >= len(p.state.Lifetimes) {
		return false
	}
	lt := p.state.Lifetimes[index]
	return lt > 0 && now-p.state.StartTimes[index] < lt
}

// AliveCount returns the number of alive slots at now.
func (p *Pool) AliveCount(now float64) int {
	n := 0
	for i := range p.state.Lifetimes {
		if p.Alive(i, now) {
			n++
		}
	}
	return n
}

// Allocated reports whether index is currently handed out.
func (p *Pool) Allocated(index int) bool {
	return index >= 0 && index < len(p.state.Allocated) && p.state.Allocated[index]
}

// Tag returns the feature that spawned slot index.
func (p *Pool) Tag(index int) features.Tag {
	if index < 0 || index >= len(p.state.Tags) {
		return features.None
	}
	return p.state.Tags[index]
}

// Snapshot returns a deep copy of the pool state.
func (p *Pool) Snapshot() State {
	return p.state.clone()
}

// SetBudget applies a new budget and hides every slot that fell outside it.
// It returns the hidden indices. Call it between frames only.
func (p *Pool) SetBudget(budget int) []int {
	next, hidden := ApplyBudget(p.state, budget)
	p.state = next
	for _, idx := range hidden {
		p.hide(idx)
	}
	return hidden
}

// Clear frees every slot without notifying hiders. Used on dispose.
func (p *Pool) Clear() {
	for i := range p.state.Lifetimes {
		p.clear(i)
		p.state.Allocated[i] = false
	}
	p.state.Free = rebuildFree(p.state.Free[:0], p.state.Allocated, p.state.Budget)
}

func (p *Pool) clear(index int) {
	p.state.StartTimes[index] = 0
	p.state.Lifetimes[index] = 0
	p.state.Tags[index] = features.None
}

func (p *Pool) hide(index int) {
	for _, h := range p.hiders {
		h.Hide(index)
	}
}

// ApplyBudget computes the pool state for a new budget without touching s.
// Slots at or above the budget are cleared and returned for hiding; the free
// stack is rebuilt to hold only unallocated indices below the budget, lowest
// index on top.
func ApplyBudget(s State, budget int) (State, []int) {
	next := s.clone()
	capacity := len(next.Lifetimes)
	if budget < 0 {
		budget = 0
	}
	if budget > capacity {
		budget = capacity
	}

	var hidden []int
	for i := budget; i < capacity; i++ {
		if next.Allocated[i] {
			hidden = append(hidden, i)
		}
		next.StartTimes[i] = 0
		next.Lifetimes[i] = 0
		next.Tags[i] = features.None
		next.Allocated[i] = false
	}

	next.Budget = budget
	next.Free = rebuildFree(next.Free[:0], next.Allocated, budget)
	return next, hidden
}

func rebuildFree(dst []int, allocated []bool, budget int) []int {
	for i := budget - 1; i >= 0; i-- {
		if !allocated[i] {
			dst = append(dst, i)
		}
	}
	return dst
}

func (s State) clone() State {
	c := State{
		StartTimes: append([]float64(nil), s.StartTimes...),
		Lifetimes:  append([]float64(nil), s.Lifetimes...),
		Tags:       append([]features.Tag(nil), s.Tags...),
		Allocated:  append([]bool(nil), s.Allocated...),
		Free:       make([]int, len(s.Free), cap(s.Free)),
		Budget:     s.Budget,
	}
	copy(c.Free, s.Free)
	return c
}
