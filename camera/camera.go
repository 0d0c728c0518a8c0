// Package camera provides a ride camera that follows a looping demo track.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Track is a closed loop: an ellipse in the XZ plane with rolling hills.
type Track struct {
	RadiusX, RadiusZ float32
	HillHeight       float32
	Hills            int // Hill count per lap
}

// DefaultTrack is the loop used by the demo and headless runs.
var DefaultTrack = Track{RadiusX: 120, RadiusZ: 80, HillHeight: 9, Hills: 3}

// Point returns the track centerline at angle u.
func (t Track) Point(u float64) mgl32.Vec3 {
	return mgl32.Vec3{
		t.RadiusX * float32(math.Cos(u)),
		t.HillHeight * float32(math.Sin(float64(t.Hills)*u)),
		t.RadiusZ * float32(math.Sin(u)),
	}
}

// meanRadius converts arc length to angle closely enough for pacing.
func (t Track) meanRadius() float64 {
	r := float64(t.RadiusX+t.RadiusZ) / 2
	if r <= 0 {
		return 1
	}
	return r
}

// Camera rides the track at a fixed speed.
type Camera struct {
	Track     Track
	Speed     float32 // World units per second
	Height    float32 // Eye height above the centerline
	LookAhead float32 // Distance to the look-at target
	Fovy      float32

	u    float64 // Angle along the track, [0, 2pi)
	laps int
}

// New creates a camera at the start of the track.
func New(track Track, speed, height, lookAhead, fovy float32) *Camera {
	if lookAhead <= 0 {
		lookAhead = 1
	}
	return &Camera{
		Track:     track,
		Speed:     speed,
		Height:    height,
		LookAhead: lookAhead,
		Fovy:      fovy,
	}
}

// Advance moves the camera along the track by dt seconds.
func (c *Camera) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	c.u += float64(c.Speed) * dt / c.Track.meanRadius()
	for c.u >= 2*math.Pi {
		c.u -= 2 * math.Pi
		c.laps++
	}
}

// Progress returns the lap fraction in [0, 1).
func (c *Camera) Progress() float64 {
	return c.u / (2 * math.Pi)
}

// Laps returns how many full laps were completed.
func (c *Camera) Laps() int { return c.laps }

// Position returns the eye position.
func (c *Camera) Position() mgl32.Vec3 {
	return c.Track.Point(c.u).Add(mgl32.Vec3{0, c.Height, 0})
}

// LookAt returns the point the camera faces, LookAhead units down the track.
func (c *Camera) LookAt() mgl32.Vec3 {
	ahead := c.u + float64(c.LookAhead)/c.Track.meanRadius()
	return c.Track.Point(ahead).Add(mgl32.Vec3{0, c.Height, 0})
}

// Boost returns the segment intensity: 1 on the flat, rising to 1.5 on the
// steepest descent.
func (c *Camera) Boost() float32 {
	pos, ahead := c.Position(), c.LookAt()
	d := ahead.Sub(pos)
	horiz := float32(math.Hypot(float64(d.X()), float64(d.Z())))
	if horiz == 0 {
		return 1
	}
	slope := -d.Y() / horiz
	if slope <= 0 {
		return 1
	}
	if slope > 1 {
		slope = 1
	}
	return 1 + 0.5*slope
}
