// Curl turbulence preview tool - interactive visualization of the noise field
// that swirls the particles, with sliders for the turbulence parameters.
//
// Usage: go run ./cmd/curlpreview
package main

import (
	"fmt"
	"image/color"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/railfield/config"
	"github.com/pthm-cable/railfield/gpu"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
	gridSize     = 128
	arrowStep    = 8
)

// TurbulenceParams holds the previewed simulation parameters.
type TurbulenceParams struct {
	Strength float32 // World units of the slice
	Scale    float32
	Speed    float32
	Extent   float32 // World units across the preview
	SliceY   float32
	Seed     int64
}

func defaultParams() TurbulenceParams {
	p := TurbulenceParams{Extent: 160, Seed: 1}
	if cfg, err := config.Load(""); err == nil {
		p.Strength = float32(cfg.Simulation.CurlStrength)
		p.Scale = float32(cfg.Simulation.NoiseScale)
		p.Speed = float32(cfg.Simulation.NoiseSpeed)
	}
	return p
}

func main() {
	rl.InitWindow(windowWidth, windowHeight, "Curl Turbulence Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	params := defaultParams()
	field := gpu.NewTurbulence(params.Seed)

	vectors := make([][3]float32, gridSize*gridSize)
	img := rl.GenImageColor(gridSize, gridSize, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	var time float32
	animating := false
	needsRegen := true

	for !rl.WindowShouldClose() {
		if animating {
			time += rl.GetFrameTime()
			needsRegen = true
		}
		if needsRegen {
			sampleSlice(vectors, field, params, time)
			updateTexture(texture, vectors)
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: gridSize, Height: gridSize},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		drawArrows(vectors, params.Strength)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		meanMag, maxMag := magnitudes(vectors)
		statsY := int32(previewSize + 25)
		rl.DrawText(fmt.Sprintf("|curl| mean: %.3f  max: %.3f", meanMag, maxMag), 15, statsY, 16, rl.DarkGray)
		rl.DrawText(fmt.Sprintf("Time: %.1f", time), 15, statsY+20, 16, rl.DarkGray)

		panelX := float32(previewSize + 20)
		panelY := float32(10)
		rl.DrawText("Turbulence Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		sliders := []struct {
			label    string
			value    *float32
			min, max float32
			format   string
		}{
			{"Curl strength (arrow length)", &params.Strength, 0, 3, "%.2f"},
			{"Noise scale (spatial frequency)", &params.Scale, 0.01, 0.4, "%.3f"},
			{"Noise speed (drift per second)", &params.Speed, 0, 2, "%.2f"},
			{"Extent (world units shown)", &params.Extent, 20, 400, "%.0f"},
			{"Slice height", &params.SliceY, -40, 40, "%.1f"},
		}
		for _, s := range sliders {
			rl.DrawText(s.label, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			next := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"", "",
				*s.value, s.min, s.max,
			)
			rl.DrawText(fmt.Sprintf(s.format, *s.value), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			if next != *s.value {
				*s.value = next
				needsRegen = true
			}
			panelY += 35
		}
		panelY += 10

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(animating, "Stop", "Animate")) {
			animating = !animating
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset Time") {
			time = 0
			needsRegen = true
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
			params.Seed = int64(rl.GetRandomValue(0, 99999))
			field = gpu.NewTurbulence(params.Seed)
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaultParams()
			field = gpu.NewTurbulence(params.Seed)
			time = 0
			needsRegen = true
		}
		panelY += 55

		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		yaml := configYAML(params)
		rl.DrawText(yaml, int32(panelX), int32(panelY), 14, rl.Gray)

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(yaml)
		}

		rl.EndDrawing()
	}
}

func configYAML(p TurbulenceParams) string {
	return fmt.Sprintf("simulation:\n  curl_strength: %.2f\n  noise_scale: %.3f\n  noise_speed: %.2f",
		p.Strength, p.Scale, p.Speed)
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

// sampleSlice fills vectors with the curl field on a horizontal slice,
// using the same coordinate mapping and drift as the velocity pass.
func sampleSlice(vectors [][3]float32, field gpu.Turbulence, p TurbulenceParams, t float32) {
	scale := float64(p.Scale)
	drift := float64(t * p.Speed)
	for gz := 0; gz < gridSize; gz++ {
		wz := (float64(gz)/gridSize - 0.5) * float64(p.Extent)
		for gx := 0; gx < gridSize; gx++ {
			wx := (float64(gx)/gridSize - 0.5) * float64(p.Extent)
			cx, cy, cz := field.At(wx*scale+drift, float64(p.SliceY)*scale, wz*scale-drift)
			vectors[gz*gridSize+gx] = [3]float32{float32(cx), float32(cy), float32(cz)}
		}
	}
}

func magnitudes(vectors [][3]float32) (mean, maxv float32) {
	for _, v := range vectors {
		m := float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
		mean += m
		if m > maxv {
			maxv = m
		}
	}
	return mean / float32(len(vectors)), maxv
}

// drawArrows overlays the horizontal flow direction on a coarse grid.
func drawArrows(vectors [][3]float32, strength float32) {
	cell := float32(previewSize) / gridSize
	for gz := arrowStep / 2; gz < gridSize; gz += arrowStep {
		for gx := arrowStep / 2; gx < gridSize; gx += arrowStep {
			v := vectors[gz*gridSize+gx]
			x := 10 + (float32(gx)+0.5)*cell
			y := 10 + (float32(gz)+0.5)*cell
			length := strength * 12
			rl.DrawLineV(
				rl.Vector2{X: x, Y: y},
				rl.Vector2{X: x + v[0]*length, Y: y + v[2]*length},
				rl.Color{R: 255, G: 255, B: 255, A: 200},
			)
			rl.DrawCircleV(rl.Vector2{X: x, Y: y}, 1.5, rl.White)
		}
	}
}

// updateTexture colors each texel by flow direction (hue) and vertical
// component (brightness).
func updateTexture(texture rl.Texture2D, vectors [][3]float32) {
	pixels := make([]color.RGBA, len(vectors))
	for i, v := range vectors {
		hue := float32(math.Atan2(float64(v[2]), float64(v[0]))/(2*math.Pi)) + 0.5
		value := 0.45 + 0.4*clamp(v[1], -1, 1)
		c := rl.ColorFromHSV(hue*360, 0.65, value)
		pixels[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}
	rl.UpdateTexture(texture, pixels)
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
