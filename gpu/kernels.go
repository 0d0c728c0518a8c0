package gpu

import (
	"math"

	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/railfield/features"
)

// curlField is a divergence-free turbulence field built from the spatial
// derivatives of a three-component simplex noise potential.
type curlField struct {
	noise opensimplex.Noise
}

func newCurlField(seed int64) curlField {
	return curlField{noise: opensimplex.New(seed)}
}

func (c curlField) potential(x, y, z float64) (float64, float64, float64) {
	return c.noise.Eval3(x, y, z),
		c.noise.Eval3(x+31.416, y-17.23, z+5.71),
		c.noise.Eval3(x-8.93, y+43.17, z-23.35)
}

// sample returns the curl of the potential at (x, y, z).
func (c curlField) sample(x, y, z float64) (float64, float64, float64) {
	const e = 0.1
	const inv = 1 / (2 * e)

	_, y1a, z1a := c.potential(x+e, y, z)
	_, y0a, z0a := c.potential(x-e, y, z)
	x1b, _, z1b := c.potential(x, y+e, z)
	x0b, _, z0b := c.potential(x, y-e, z)
	x1c, y1c, _ := c.potential(x, y, z+e)
	x0c, y0c, _ := c.potential(x, y, z-e)

	dzdy := (z1b - z0b) * inv
	dydz := (y1c - y0c) * inv
	dxdz := (x1c - x0c) * inv
	dzdx := (z1a - z0a) * inv
	dydx := (y1a - y0a) * inv
	dxdy := (x1b - x0b) * inv

	return dzdy - dydz, dxdz - dzdx, dydx - dxdy
}

// Turbulence samples the curl field the software velocity pass integrates.
type Turbulence struct {
	field curlField
}

// NewTurbulence creates a sampler with the given noise seed.
func NewTurbulence(seed int64) Turbulence {
	return Turbulence{field: newCurlField(seed)}
}

// At returns the unscaled curl vector at a point in noise space.
func (t Turbulence) At(x, y, z float64) (float64, float64, float64) {
	return t.field.sample(x, y, z)
}

// integrateVelocity is the velocity pass for a single texel. pos and vel are
// the read-side texels; the result is the new velocity texel.
func integrateVelocity(pos, vel [TexelStride]float32, u *Uniforms, curl curlField) [TexelStride]float32 {
	if pos[3] == 0 {
		// Hidden texels are left alone until the spawner reseeds them
		return vel
	}
	dt := u.DeltaTime
	vx, vy, vz := vel[0], vel[1], vel[2]

	vy += u.Gravity * dt

	basePulse := 0.5 + 0.5*float32(math.Sin(float64(u.Time*u.PulseRate)))
	var bandSum float32
	for i := 0; i < features.NumBands; i++ {
		bandSum += u.BandWeights[i] * u.Bands[i]
	}
	if own := int(vel[3]) - 1; own >= 0 && own < features.NumBands {
		bandSum += 0.5 * u.BandWeights[own] * u.Bands[own]
	}
	vy += (u.AudioForce*basePulse + bandSum) * u.ImpulseGain * dt

	if u.CurlStrength > 0 {
		scale := float64(u.NoiseScale)
		drift := float64(u.Time * u.NoiseSpeed)
		cx, cy, cz := curl.sample(
			float64(pos[0])*scale+drift,
			float64(pos[1])*scale,
			float64(pos[2])*scale-drift,
		)
		strength := u.CurlStrength * (0.35 + u.Bands.Low()) * dt
		vx += float32(cx) * strength
		vy += float32(cy) * strength
		vz += float32(cz) * strength
	}

	vx *= u.Damping
	vy *= u.Damping
	vz *= u.Damping

	return [TexelStride]float32{vx, vy, vz, vel[3]}
}

// integratePosition is the position pass for a single texel. vel is the
// velocity written by the velocity pass of the same tick.
func integratePosition(pos, vel [TexelStride]float32, u *Uniforms) [TexelStride]float32 {
	if pos[3] == 0 {
		return pos
	}
	dt := u.DeltaTime
	p := [TexelStride]float32{
		pos[0] + vel[0]*dt,
		pos[1] + vel[1]*dt,
		pos[2] + vel[2]*dt,
		pos[3],
	}
	if p[1] < u.Floor {
		return HiddenTexel(u.HiddenY)
	}
	return p
}

// HiddenTexel is the sentinel position written for slots that must not be seen.
func HiddenTexel(hiddenY float32) [TexelStride]float32 {
	return [TexelStride]float32{0, hiddenY, 0, 0}
}
