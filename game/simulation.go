package game

import (
	"context"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/railfield/field"
	"github.com/pthm-cable/railfield/ui"
)

// maxFrameDelta caps the step after a stall so a long pause does not fire a
// second's worth of triggers in one frame.
const maxFrameDelta = 0.1

// Update advances one rendered frame using the window clock.
func (g *Game) Update() {
	g.handleInput()
	if g.paused {
		return
	}
	dt := float64(rl.GetFrameTime())
	if dt > maxFrameDelta {
		dt = maxFrameDelta
	}
	g.step(dt, float64(rl.GetFPS()))
}

// UpdateHeadless advances one fixed step without a window and closes the
// frame immediately.
func (g *Game) UpdateHeadless() {
	g.step(DT, g.headlessFPS)
	g.endFrame()
}

func (g *Game) step(dt, fps float64) {
	g.now += dt
	g.camera.Advance(dt)
	g.sample = g.track.Sample(g.now)

	g.lastOut = g.field.Tick(g.now, dt, field.Frame{
		Camera:   g.camera.Position(),
		LookAt:   g.camera.LookAt(),
		Features: g.sample,
		Boost:    g.camera.Boost() * g.boost,
		LOD:      1,
		FPS:      fps,
	})
	g.frameOpen = true
	g.tick++
}

func (g *Game) endFrame() {
	if !g.frameOpen {
		return
	}
	g.field.EndFrame()
	g.frameOpen = false
}

// applyTuning pushes panel values into the field.
func (g *Game) applyTuning(v ui.TuningValues) {
	g.tuningValues = v.Clamp()
	_, _, speed := g.field.Turbulence()
	g.field.SetTurbulence(g.tuningValues.CurlStrength, g.tuningValues.NoiseScale, speed)
	g.field.ApplyNamedParameter("persistence", g.tuningValues.Persistence)
	g.boost = g.tuningValues.Boost
}

// cycleProfile steps to the next quality profile, wrapping to the lowest.
func (g *Game) cycleProfile() {
	q := g.field.Quality()
	profiles := q.Profiles()
	next := profiles[(q.CurrentIndex()+1)%len(profiles)]
	g.field.SelectProfile(next.Name)
}

// retryGPU asks the field to probe the GPU again.
func (g *Game) retryGPU() bool {
	return g.field.StartGPU(context.Background())
}
