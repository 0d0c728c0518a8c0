package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const controlsLegend = "SPACE pause | Q profile | G retry GPU | T tuning | P perf | B reload blueprint | F11 fullscreen"

// handleInput processes keyboard input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}
	if rl.IsKeyPressed(rl.KeyQ) {
		g.cycleProfile()
	}
	if rl.IsKeyPressed(rl.KeyG) && !g.retryGPU() {
		slog.Info("gpu_retry_refused", "profile", g.field.Quality().Current().Name)
	}
	if rl.IsKeyPressed(rl.KeyT) && g.tuning != nil {
		g.tuning.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		g.showPerf = !g.showPerf
	}
	if rl.IsKeyPressed(rl.KeyB) && g.blueprintPath != "" {
		if err := g.loadBlueprint(); err != nil {
			slog.Warn("blueprint_reload_failed", "path", g.blueprintPath, "error", err)
		}
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenW && h == g.screenH {
		return
	}
	g.screenW, g.screenH = w, h

	if g.sky != nil {
		g.sky.Resize(int32(w), int32(h))
	}
	if g.perfPanel != nil {
		g.perfPanel.SetPosition(int32(w)-250, 10)
	}
	if g.tuning != nil {
		g.tuning.SetPosition(w-300, 200)
	}
}
