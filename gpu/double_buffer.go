package gpu

// DoubleBuffer is a ping-pong pair. Exactly one of a and b is the read side
// at any time; Swap exchanges the roles.
type DoubleBuffer[T any] struct {
	a, b    T
	readIsA bool
	flips   int
}

// NewDoubleBuffer returns a pair with a as the initial read side.
func NewDoubleBuffer[T any](a, b T) DoubleBuffer[T] {
	return DoubleBuffer[T]{a: a, b: b, readIsA: true}
}

// Read returns the side passes sample from.
func (d *DoubleBuffer[T]) Read() T {
	if d.readIsA {
		return d.a
	}
	return d.b
}

// Write returns the side passes render into.
func (d *DoubleBuffer[T]) Write() T {
	if d.readIsA {
		return d.b
	}
	return d.a
}

// Swap exchanges read and write roles.
func (d *DoubleBuffer[T]) Swap() {
	d.readIsA = !d.readIsA
	d.flips++
}

// ReadIsA reports whether a is currently the read side.
func (d *DoubleBuffer[T]) ReadIsA() bool {
	return d.readIsA
}

// Flips returns how many times the roles have been swapped.
func (d *DoubleBuffer[T]) Flips() int {
	return d.flips
}

// Both returns the two sides regardless of role.
func (d *DoubleBuffer[T]) Both() (T, T) {
	return d.a, d.b
}
