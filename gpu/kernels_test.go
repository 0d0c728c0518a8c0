package gpu

import (
	"math"
	"testing"

	"github.com/pthm-cable/railfield/features"
)

func TestIntegrateVelocityHiddenPassThrough(t *testing.T) {
	u := &Uniforms{DeltaTime: 0.1, Gravity: -9, Damping: 0.99}
	vel := [TexelStride]float32{1, 2, 3, 4}
	got := integrateVelocity(HiddenTexel(-1000), vel, u, newCurlField(1))
	if got != vel {
		t.Errorf("hidden velocity changed: %v", got)
	}
}

func TestIntegrateVelocityGravityAndDamping(t *testing.T) {
	u := &Uniforms{DeltaTime: 0.5, Gravity: -2, Damping: 0.99}
	pos := [TexelStride]float32{0, 10, 0, 1}
	got := integrateVelocity(pos, [TexelStride]float32{}, u, newCurlField(1))
	if !near(got[1], -1*0.99) {
		t.Errorf("vy = %v, want %v", got[1], -0.99)
	}
}

func TestIntegrateVelocityOwnBandEmphasis(t *testing.T) {
	u := &Uniforms{
		DeltaTime:   1,
		Damping:     1,
		ImpulseGain: 1,
	}
	u.Bands[features.Treble] = 1
	u.BandWeights[features.Treble] = 1
	pos := [TexelStride]float32{0, 0, 0, 1}

	other := integrateVelocity(pos, [TexelStride]float32{0, 0, 0, float32(features.Bass) + 1}, u, newCurlField(1))
	own := integrateVelocity(pos, [TexelStride]float32{0, 0, 0, float32(features.Treble) + 1}, u, newCurlField(1))
	if !near(other[1], 1) {
		t.Errorf("other band impulse = %v, want 1", other[1])
	}
	if !near(own[1], 1.5) {
		t.Errorf("own band impulse = %v, want 1.5", own[1])
	}
}

func TestIntegrateVelocityPulse(t *testing.T) {
	u := &Uniforms{
		Time:        float32(math.Pi / 12),
		DeltaTime:   1,
		Damping:     1,
		ImpulseGain: 1,
		AudioForce:  1,
		PulseRate:   6,
	}
	got := integrateVelocity([TexelStride]float32{0, 0, 0, 1}, [TexelStride]float32{}, u, newCurlField(1))
	// sin(pi/2) = 1 so the base pulse peaks.
	if !near(got[1], 1) {
		t.Errorf("vy = %v, want 1", got[1])
	}
}

func TestCurlTurbulenceScalesWithLowBands(t *testing.T) {
	field := newCurlField(7)
	pos := [TexelStride]float32{3.3, 1.7, -2.1, 1}
	base := Uniforms{DeltaTime: 1, Damping: 1, CurlStrength: 1, NoiseScale: 1}

	quiet := integrateVelocity(pos, [TexelStride]float32{}, &base, field)
	loud := base
	loud.Bands[features.SubBass] = 1
	loud.Bands[features.Bass] = 1
	boosted := integrateVelocity(pos, [TexelStride]float32{}, &loud, field)

	mag := func(v [TexelStride]float32) float64 {
		return math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2]))
	}
	if mag(quiet) == 0 {
		t.Fatal("curl term should move the particle")
	}
	ratio := mag(boosted) / mag(quiet)
	if math.Abs(ratio-1.35/0.35) > 1e-3 {
		t.Errorf("turbulence ratio = %v, want %v", ratio, 1.35/0.35)
	}
}

func TestCurlFieldIsDivergenceFree(t *testing.T) {
	c := newCurlField(3)
	// Same step as the curl stencil, so the discrete operators cancel exactly.
	const h = 0.1
	for _, p := range [][3]float64{{0.1, 0.2, 0.3}, {4, -2, 1.5}, {-7.2, 3.3, 0}} {
		x, y, z := p[0], p[1], p[2]
		ax, _, _ := c.sample(x+h, y, z)
		bx, _, _ := c.sample(x-h, y, z)
		_, ay, _ := c.sample(x, y+h, z)
		_, by, _ := c.sample(x, y-h, z)
		_, _, az := c.sample(x, y, z+h)
		_, _, bz := c.sample(x, y, z-h)
		div := (ax-bx)/(2*h) + (ay-by)/(2*h) + (az-bz)/(2*h)
		if math.Abs(div) > 1e-6 {
			t.Errorf("divergence at %v = %v", p, div)
		}
	}
}

func TestIntegratePositionFloor(t *testing.T) {
	u := &Uniforms{DeltaTime: 1, Floor: 0, HiddenY: -500}
	got := integratePosition([TexelStride]float32{0, 0.5, 0, 1}, [TexelStride]float32{1, -1, 0, 0}, u)
	if got != HiddenTexel(-500) {
		t.Errorf("got %v, want hidden", got)
	}
	got = integratePosition([TexelStride]float32{0, 2, 0, 1}, [TexelStride]float32{1, -1, 0, 0}, u)
	if got != [TexelStride]float32{1, 1, 0, 1} {
		t.Errorf("got %v", got)
	}
}

func TestTurbulenceMatchesKernelField(t *testing.T) {
	tb := NewTurbulence(9)
	c := newCurlField(9)
	for _, p := range [][3]float64{{0, 0, 0}, {1.2, -3.4, 5.6}} {
		ax, ay, az := tb.At(p[0], p[1], p[2])
		bx, by, bz := c.sample(p[0], p[1], p[2])
		if ax != bx || ay != by || az != bz {
			t.Errorf("At(%v) = (%v, %v, %v), kernel field (%v, %v, %v)", p, ax, ay, az, bx, by, bz)
		}
	}
}
