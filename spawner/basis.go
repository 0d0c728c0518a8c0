package spawner

import "github.com/go-gl/mathgl/mgl32"

var worldUp = mgl32.Vec3{0, 1, 0}

const degenerate = 1e-6

// Basis is an orthonormal camera frame.
type Basis struct {
	Forward mgl32.Vec3
	Right   mgl32.Vec3
	Up      mgl32.Vec3
}

// NewBasis builds the camera frame looking from camera to lookAt. It returns
// false when the two points coincide. Looking straight up or down falls back
// to +X as the right vector.
func NewBasis(camera, lookAt mgl32.Vec3) (Basis, bool) {
	f := lookAt.Sub(camera)
	l := f.Len()
	if l < degenerate {
		return Basis{}, false
	}
	f = f.Mul(1 / l)

	r := f.Cross(worldUp)
	if rl := r.Len(); rl < degenerate {
		r = mgl32.Vec3{1, 0, 0}
	} else {
		r = r.Mul(1 / rl)
	}
	return Basis{Forward: f, Right: r, Up: r.Cross(f)}, true
}

// Point returns camera + Forward*forward + Right*lateral + Up*up.
func (b Basis) Point(camera mgl32.Vec3, forward, lateral, up float32) mgl32.Vec3 {
	return camera.
		Add(b.Forward.Mul(forward)).
		Add(b.Right.Mul(lateral)).
		Add(b.Up.Mul(up))
}
