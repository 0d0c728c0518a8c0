// Shader debug tool - runs the particle field on the raylib device for a
// number of frames and renders the result to a PNG file for inspection.
//
// Usage: go run ./cmd/shaderdebug -frames 240 -out debug.png
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/railfield/camera"
	"github.com/pthm-cable/railfield/config"
	"github.com/pthm-cable/railfield/field"
	"github.com/pthm-cable/railfield/renderer"
	"github.com/pthm-cable/railfield/synth"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outPath := flag.String("out", "debug.png", "Output PNG path")
	width := flag.Int("width", 960, "Render width")
	height := flag.Int("height", 540, "Render height")
	frames := flag.Int("frames", 240, "Frames to simulate before capturing")
	cpu := flag.Bool("cpu", false, "Skip the GPU probe and render the CPU path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize raylib with hidden window
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(int32(*width), int32(*height), "Shader Debug")
	defer rl.CloseWindow()

	device, err := renderer.NewRaylibDevice(cfg.Simulation.MaxTexture)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create device: %v\n", err)
		os.Exit(1)
	}
	defer device.Close()

	f, err := field.New(field.Options{Config: cfg, Device: device, Sources: renderer.Sources()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create field: %v\n", err)
		os.Exit(1)
	}
	defer f.Dispose()

	particles, err := renderer.NewParticleRenderer(cfg.Pool.Capacity, f.Engine().Side())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create particle renderer: %v\n", err)
		os.Exit(1)
	}
	defer particles.Unload()

	if !*cpu {
		f.StartGPU(context.Background())
	}

	cam := camera.New(camera.DefaultTrack, float32(cfg.Camera.Speed), float32(cfg.Camera.Height),
		float32(cfg.Camera.LookAhead), float32(cfg.Camera.Fovy))
	track := synth.New(cfg.Spawner.Seed, 0)

	const dt = 1.0 / 60.0
	var out field.Output
	for i := 1; i <= *frames; i++ {
		now := float64(i) * dt
		cam.Advance(dt)
		out = f.Tick(now, dt, field.Frame{
			Camera:   cam.Position(),
			LookAt:   cam.LookAt(),
			Features: track.Sample(now),
			Boost:    cam.Boost(),
			LOD:      1,
			FPS:      60,
		})
		f.EndFrame()
	}

	target := rl.LoadRenderTexture(int32(*width), int32(*height))
	defer rl.UnloadRenderTexture(target)

	particles.Sync(f.Attributes())
	pos, look := cam.Position(), cam.LookAt()

	rl.BeginTextureMode(target)
	rl.ClearBackground(rl.Black)
	rl.BeginMode3D(rl.Camera3D{
		Position:   rl.Vector3{X: pos.X(), Y: pos.Y(), Z: pos.Z()},
		Target:     rl.Vector3{X: look.X(), Y: look.Y(), Z: look.Z()},
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       cam.Fovy,
		Projection: rl.CameraPerspective,
	})
	particles.Draw(out)
	rl.EndMode3D()
	rl.EndTextureMode()

	// Get image from texture and flip it (OpenGL convention)
	img := rl.LoadImageFromTexture(target.Texture)
	rl.ImageFlipVertical(img)

	success := rl.ExportImage(*img, *outPath)
	rl.UnloadImage(img)

	slog.Info("shaderdebug_capture",
		"mode", out.Mode.String(),
		"alive", f.Pool().AliveCount(float64(*frames)*dt),
		"gpu_ticks", f.Engine().Ticks(),
		"fallback_reason", fmt.Sprint(f.Engine().FallbackReason()),
	)

	if success {
		fmt.Printf("Field rendered to: %s (%dx%d)\n", *outPath, *width, *height)
	} else {
		fmt.Fprintf(os.Stderr, "Failed to export image\n")
		os.Exit(1)
	}
}
