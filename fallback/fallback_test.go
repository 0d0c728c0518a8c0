package fallback

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/railfield/config"
	"github.com/pthm-cable/railfield/pool"
)

func TestSeedAndHide(t *testing.T) {
	r := New(8, config.FallbackConfig{}, -1000)
	if r.VisibleCount() != 0 {
		t.Fatalf("visible = %d, want 0", r.VisibleCount())
	}
	if got := r.Position(2); got.Y() != -1000 {
		t.Errorf("unseeded slot at %v, want hidden", got)
	}

	r.Seed(pool.Seed{Index: 2, Position: mgl32.Vec3{1, 2, 3}, Velocity: mgl32.Vec3{4, 5, 6}, StartTime: 1.5, Size: 0.4})
	if !r.Visible(2) || r.VisibleCount() != 1 {
		t.Fatal("seeded slot should be visible")
	}
	if got := r.Position(2); got != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("position = %v", got)
	}
	if r.StartTimes()[2] != 1.5 || r.Sizes()[2] != 0.4 {
		t.Errorf("start/size = %v/%v", r.StartTimes()[2], r.Sizes()[2])
	}
	v := r.Velocities()[6:9]
	if v[0] != 0 || v[1] != 0 || v[2] != 0 {
		t.Errorf("velocity = %v, want zero with default scale", v)
	}

	// Reseeding a visible slot does not double count.
	r.Seed(pool.Seed{Index: 2, Position: mgl32.Vec3{0, 0, 0}, Size: 1})
	if r.VisibleCount() != 1 {
		t.Errorf("visible = %d after reseed", r.VisibleCount())
	}

	r.Hide(2)
	if r.Visible(2) || r.VisibleCount() != 0 {
		t.Error("hidden slot still visible")
	}
	if r.Sizes()[2] != 0 || r.Position(2).Y() != -1000 {
		t.Error("hide must zero size and move to sentinel")
	}
	r.Hide(2)
	r.Hide(99)
	if r.VisibleCount() != 0 {
		t.Errorf("visible = %d after redundant hides", r.VisibleCount())
	}
}

func TestUpdateStaticByDefault(t *testing.T) {
	r := New(4, config.FallbackConfig{}, -1000)
	r.Seed(pool.Seed{Index: 0, Position: mgl32.Vec3{1, 1, 1}, Velocity: mgl32.Vec3{10, 0, 0}, Size: 1})
	r.Update(0.5)
	if got := r.Position(0); got != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("position moved to %v", got)
	}
}

func TestUpdateIntegratesScaledVelocity(t *testing.T) {
	r := New(4, config.FallbackConfig{VelocityScale: 0.5}, -1000)
	r.Seed(pool.Seed{Index: 1, Position: mgl32.Vec3{0, 0, 0}, Velocity: mgl32.Vec3{2, -4, 0}, Size: 1})
	r.Seed(pool.Seed{Index: 3, Position: mgl32.Vec3{0, 0, 0}, Velocity: mgl32.Vec3{2, 2, 2}, Size: 1})
	r.Hide(3)

	r.Update(1)
	if got := r.Position(1); got != (mgl32.Vec3{1, -2, 0}) {
		t.Errorf("position = %v, want (1,-2,0)", got)
	}
	if got := r.Position(3); got != (mgl32.Vec3{0, -1000, 0}) {
		t.Errorf("hidden slot moved to %v", got)
	}
}

func TestReset(t *testing.T) {
	r := New(3, config.FallbackConfig{}, -1)
	for i := 0; i < 3; i++ {
		r.Seed(pool.Seed{Index: i, Size: 1})
	}
	r.Reset()
	if r.VisibleCount() != 0 {
		t.Errorf("visible = %d after reset", r.VisibleCount())
	}
}
