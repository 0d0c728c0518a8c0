package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/railfield/config"
	"github.com/pthm-cable/railfield/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics on the software device")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N frames (0 = unlimited)")
	blueprintPath := flag.String("blueprint", "", "Ride blueprint JSON applied at start")
	bpm := flag.Float64("bpm", 0, "Tempo of the synthetic track (0 = default)")
	headlessFPS := flag.Float64("headless-fps", 60, "Frame rate reported to the quality controller when headless")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	cfg.Spawner.Seed = rngSeed

	opts := game.Options{
		Config:      cfg,
		Seed:        rngSeed,
		LogStats:    *logStats,
		OutputDir:   *outputDir,
		Headless:    *headless,
		Blueprint:   *blueprintPath,
		BPM:         *bpm,
		HeadlessFPS: *headlessFPS,
	}

	if *headless {
		g, err := game.NewGame(opts)
		if err != nil {
			slog.Error("failed to create ride", "error", err)
			os.Exit(1)
		}
		defer g.Unload()

		slog.Info("starting headless ride",
			"seed", rngSeed,
			"capacity", cfg.Pool.Capacity,
			"max_ticks", *maxTicks,
		)

		for {
			g.UpdateHeadless()

			if *maxTicks > 0 && int(g.Tick()) >= *maxTicks {
				slog.Info("max ticks reached", "tick", g.Tick(), "mode", g.Field().Mode().String())
				return
			}
		}
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Railfield")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGame(opts)
	if err != nil {
		slog.Error("failed to create ride", "error", err)
		return
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()

		if *maxTicks > 0 && int(g.Tick()) >= *maxTicks {
			break
		}
	}
}
