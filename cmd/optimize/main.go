package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/railfield/config"
)

type options struct {
	configPath string
	frames     int
	seeds      int
	maxEvals   int
	population int
	outputDir  string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.IntVar(&o.frames, "max-ticks", 3600, "Frames per headless ride")
	flag.IntVar(&o.seeds, "seeds", 3, "Rides per evaluation, each with its own seed")
	flag.IntVar(&o.maxEvals, "max-evals", 200, "Maximum number of evaluations")
	flag.IntVar(&o.population, "population", 0, "CMA-ES population size (0 = auto)")
	flag.StringVar(&o.outputDir, "output", "", "Output directory for results")
	flag.Parse()

	if o.outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(o.outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}
	// Field lifecycle logs would drown the progress lines.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if _, err := config.Load(o.configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	params := NewParamVector()
	best, err := search(o, params)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("\nbest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %-16s %.6f\n", spec.Name, best[i])
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(cfg, best)
	out := filepath.Join(o.outputDir, "best_config.yaml")
	if err := cfg.WriteYAML(out); err != nil {
		log.Fatalf("failed to write best config: %v", err)
	}
	fmt.Printf("best config saved to %s\n", out)
}

// search runs CMA-ES over the normalized parameter space and returns the best
// clamped parameter values seen.
func search(o options, params *ParamVector) ([]float64, error) {
	seeds := make([]int64, o.seeds)
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, int32(o.frames), seeds, o.configPath)

	prog, err := newProgress(filepath.Join(o.outputDir, "optimize_log.csv"), params.Specs, o.maxEvals)
	if err != nil {
		return nil, err
	}
	defer prog.Close()

	population := o.population
	if population == 0 {
		population = 4 + 3*params.Dim()/2
	}
	fmt.Printf("cma-es: %d parameters, population %d, %d evaluations, %d rides x %d frames each\n",
		params.Dim(), population, o.maxEvals, o.seeds, o.frames)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			values := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(values)
			prog.record(fitness, evaluator.LastQuality(), values)
			return fitness
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: o.maxEvals,
		Concurrent:      0, // Seeds already run in parallel
	}
	method := &optimize.CmaEsChol{InitStepSize: 0.3, Population: population}

	result, err := optimize.Minimize(problem, params.Normalize(params.DefaultVector()), settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}
	fmt.Printf("\n%d evaluations in %s, best quality %.3f\n", prog.evals, clock(prog.elapsed()), -prog.best)

	if prog.bestParams == nil {
		if result == nil {
			return nil, fmt.Errorf("no evaluation completed")
		}
		return params.Clamp(params.Denormalize(result.X)), nil
	}
	return prog.bestParams, nil
}
