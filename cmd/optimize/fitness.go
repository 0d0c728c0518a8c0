package main

import (
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/railfield/config"
	"github.com/pthm-cable/railfield/game"
	"github.com/pthm-cable/railfield/telemetry"
)

// FitnessEvaluator runs headless rides and scores their telemetry.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int32
	seeds      []int64
	configPath string
	windowSec  float64

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. Every run reloads the config
// from configPath so parameters never accumulate across evaluations.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, configPath string) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		configPath: configPath,
		windowSec:  2.0,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = scoreWindows(fe.runRide(x, s), fe.windowSec)
		}(i, seed)
	}
	wg.Wait()

	var total float64
	for _, q := range results {
		total += q
	}
	quality := total / float64(len(results))

	fe.mu.Lock()
	fe.lastQuality = quality
	fe.mu.Unlock()

	return -quality
}

// runRide executes one headless ride and returns its telemetry windows.
func (fe *FitnessEvaluator) runRide(x []float64, seed int64) []telemetry.WindowStats {
	cfg, err := config.Load(fe.configPath)
	if err != nil {
		slog.Error("config reload failed", "error", err)
		return nil
	}
	fe.params.ApplyToConfig(cfg, x)
	cfg.Spawner.Seed = seed
	cfg.Telemetry.LogInterval = fe.windowSec

	var windows []telemetry.WindowStats
	g, err := game.NewGame(game.Options{
		Config:   cfg,
		Seed:     seed,
		Headless: true,
		StatsCallback: func(s telemetry.WindowStats) {
			windows = append(windows, s)
		},
	})
	if err != nil {
		slog.Error("ride setup failed", "error", err)
		return nil
	}
	defer g.Unload()

	for g.Tick() < fe.maxTicks {
		g.UpdateHeadless()
	}
	return windows
}

// Quality component weights.
const (
	weightOccupancy  = 0.35
	weightVisibility = 0.20
	weightTriggers   = 0.20
	weightPulse      = 0.15
	weightWraps      = 0.10

	warmupWindows   = 2 // skip the fill-up at ride start
	targetOccupancy = 0.65
	targetTriggers  = 3.0 // firings per second
	targetPulseP90  = 0.6
)

// scoreWindows rates a ride in [0, 1]: the budget should be well used but
// not saturated, spawned particles should stay above the floor, triggers
// should fire at a musical rate and wraps should be rare.
func scoreWindows(windows []telemetry.WindowStats, windowSec float64) float64 {
	if len(windows) <= warmupWindows {
		return 0
	}
	var occ, vis, trig, pulse, wrap float64
	n := 0
	for _, w := range windows[warmupWindows:] {
		if w.Budget <= 0 {
			continue
		}
		dur := w.WindowEnd - w.WindowStart
		if dur <= 0 {
			dur = windowSec
		}

		o := float64(w.Alive) / float64(w.Budget)
		occ += gauss(o-targetOccupancy, 0.2)

		if w.Alive > 0 {
			vis += float64(w.Visible) / float64(w.Alive)
		}

		rate := float64(w.Triggers) / dur
		if rate > 0 {
			l := math.Log(rate / targetTriggers)
			trig += math.Exp(-l * l)
		}

		pulse += gauss(w.PulseP90-targetPulseP90, 0.25)
		wrap += math.Exp(-float64(w.Wraps) / dur)
		n++
	}
	if n == 0 {
		return 0
	}
	k := float64(n)
	q := weightOccupancy*occ/k +
		weightVisibility*vis/k +
		weightTriggers*trig/k +
		weightPulse*pulse/k +
		weightWraps*wrap/k
	return clamp01(q)
}

func gauss(d, sigma float64) float64 {
	return math.Exp(-(d * d) / (sigma * sigma))
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
