package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/railfield/telemetry"
)

// HUDData holds everything the main HUD shows.
type HUDData struct {
	Title    string
	Mode     string
	Profile  string
	Budget   int
	Alive    int
	Capacity int
	Pulse    float32
	FPS      int32
	Laps     int
	Progress float64
	Paused   bool
	Probing  bool

	Bands      []float32  // Current feature levels, low to high
	BandColors []rl.Color // Preset color per band
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD in the top-left corner.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer
	const x, width = 10, 260
	r.DrawPanel(x-6, 4, width+12, 188)

	rl.DrawText(data.Title, x, 10, 20, rl.RayWhite)
	y := int32(36)

	mode := data.Mode
	if data.Probing {
		mode += " (probing)"
	}
	y = r.DrawLabelValue(x, y, "Path", mode)
	y = r.DrawLabelValue(x, y, "Profile", fmt.Sprintf("%s  budget %d", data.Profile, data.Budget))
	y = r.DrawLabelValue(x, y, "FPS", fmt.Sprintf("%d", data.FPS))
	y = r.DrawLabelValue(x, y, "Lap", fmt.Sprintf("%d  %.0f%%", data.Laps+1, data.Progress*100))

	load := float32(0)
	if data.Budget > 0 {
		load = float32(data.Alive) / float32(data.Budget)
	}
	y = r.DrawBar(x, y, "Alive", load, width, r.Theme.LoadColor(load))
	y = r.DrawBar(x, y, "Pulse", data.Pulse, width, r.Theme.BarFill)
	y = r.DrawMeter(x, y+2, width-50, 30, data.Bands, data.BandColors)

	if data.Paused {
		rl.DrawText("PAUSED", x, y+2, 16, r.Theme.SectionHeader)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders per-phase frame timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x, y := p.x, p.y
	phases := telemetry.Phases()
	p.renderer.DrawPanel(x-6, y-6, 250, int32(len(phases))*14+50)

	rl.DrawText("Frame Phases", x, y, 16, rl.White)
	y += 20
	rl.DrawText(fmt.Sprintf("Frame: %s  present %.0f fps", stats.AvgFrame.Round(time.Microsecond), stats.FPS), x, y, 12, rl.Yellow)
	y += 16

	for _, phase := range phases {
		pct := stats.PhasePct[phase]
		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", phase, stats.PhaseAvg[phase].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
