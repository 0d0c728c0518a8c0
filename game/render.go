package game

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/railfield/features"
	"github.com/pthm-cable/railfield/renderer"
	"github.com/pthm-cable/railfield/telemetry"
	"github.com/pthm-cable/railfield/ui"
)

const trackSegments = 160

var (
	skyBase    = rl.Color{R: 48, G: 22, B: 70, A: 255}
	trackColor = rl.Color{R: 120, G: 110, B: 160, A: 160}
)

func (g *Game) initRendering() error {
	var err error
	g.particles, err = renderer.NewParticleRenderer(g.cfg.Pool.Capacity, g.field.Engine().Side())
	if err != nil {
		return err
	}
	g.sky, err = renderer.NewSkyRenderer(int32(g.screenW), int32(g.screenH), skyBase.R, skyBase.G, skyBase.B)
	if err != nil {
		return err
	}
	g.hud = ui.NewHUD()
	g.perfPanel = ui.NewPerfPanel(int32(g.screenW)-250, 10)
	g.tuning = ui.NewTuningPanel(g.screenW-300, 200, 280, g.tuningValues)
	return nil
}

func (g *Game) rlCamera() rl.Camera3D {
	pos, look := g.camera.Position(), g.camera.LookAt()
	return rl.Camera3D{
		Position:   rl.Vector3{X: pos.X(), Y: pos.Y(), Z: pos.Z()},
		Target:     rl.Vector3{X: look.X(), Y: look.Y(), Z: look.Z()},
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       g.camera.Fovy,
		Projection: rl.CameraPerspective,
	}
}

// Draw renders the frame and closes the field's perf frame.
func (g *Game) Draw() {
	perf := g.field.Perf()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)
	g.sky.Draw(float32(g.now), g.lastOut.Pulse)

	if g.frameOpen {
		perf.StartPhase(telemetry.PhaseUpload)
	}
	g.particles.Sync(g.field.Attributes())

	if g.frameOpen {
		perf.StartPhase(telemetry.PhaseDraw)
	}
	rl.BeginMode3D(g.rlCamera())
	g.drawTrack()
	g.particles.Draw(g.lastOut)
	rl.EndMode3D()

	g.drawUI()
	rl.EndDrawing()
	g.endFrame()
}

func (g *Game) drawTrack() {
	tr := g.camera.Track
	prev := tr.Point(0)
	for i := 1; i <= trackSegments; i++ {
		p := tr.Point(2 * math.Pi * float64(i) / trackSegments)
		rl.DrawLine3D(
			rl.Vector3{X: prev.X(), Y: prev.Y(), Z: prev.Z()},
			rl.Vector3{X: p.X(), Y: p.Y(), Z: p.Z()},
			trackColor,
		)
		prev = p
	}
}

func (g *Game) drawUI() {
	q := g.field.Quality().Current()
	g.hud.Draw(ui.HUDData{
		Title:    "Railfield",
		Mode:     g.field.Mode().String(),
		Profile:  q.Name,
		Budget:   q.ParticleBudget,
		Alive:    g.field.Pool().AliveCount(g.now),
		Capacity: g.cfg.Pool.Capacity,
		Pulse:    g.lastOut.Pulse,
		FPS:      rl.GetFPS(),
		Laps:     g.camera.Laps(),
		Progress: g.camera.Progress(),
		Paused:   g.paused,
		Probing:  g.field.Probing(),

		Bands:      g.sample.Bands[:],
		BandColors: g.bandColors(),
	})
	if g.showPerf {
		g.perfPanel.Draw(g.field.Perf().Stats())
	}
	if next, changed := g.tuning.Draw(g.tuningValues); changed {
		g.applyTuning(next)
	}
	g.hud.DrawControls(int32(g.screenH), controlsLegend)
}

// bandColors returns the current preset color of every band.
func (g *Game) bandColors() []rl.Color {
	reg := g.field.Registry()
	colors := make([]rl.Color, features.NumBands)
	for i := range colors {
		c := reg.ForTag(features.Tag(i)).Color
		colors[i] = rl.NewColor(unitByte(c.R), unitByte(c.G), unitByte(c.B), 255)
	}
	return colors
}

func unitByte(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
