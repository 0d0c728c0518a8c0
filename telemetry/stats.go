package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated field statistics for one time window.
type WindowStats struct {
	WindowStart float64 `csv:"-"`
	WindowEnd   float64 `csv:"window_end"`

	Mode    string `csv:"mode"`    // gpu or cpu
	Profile string `csv:"profile"` // Active quality profile
	Budget  int    `csv:"budget"`

	// Counts at window end
	Alive   int `csv:"alive"`
	Visible int `csv:"visible"`

	// Events during window
	Spawned   int `csv:"spawned"`
	Reclaimed int `csv:"reclaimed"`
	Triggers  int `csv:"triggers"`
	Wraps     int `csv:"wraps"`
	GPUTicks  int `csv:"gpu_ticks"`

	// Track pulse distribution over the window's frames
	PulseMean float64 `csv:"pulse_mean"`
	PulseP50  float64 `csv:"pulse_p50"`
	PulseP90  float64 `csv:"pulse_p90"`
	PulseMax  float64 `csv:"pulse_max"`

	FPSMean float64 `csv:"fps_mean"`
	FPSStd  float64 `csv:"fps_std"`
}

// Distribution returns mean and the 50th and 90th percentiles and maximum.
func Distribution(values []float64) (mean, p50, p90, maxv float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p50 = stat.Quantile(0.5, stat.LinInterp, sorted, nil)
	p90 = stat.Quantile(0.9, stat.LinInterp, sorted, nil)
	return mean, p50, p90, sorted[len(sorted)-1]
}

// MeanStd returns the mean and standard deviation, with 0 deviation for
// fewer than two values.
func MeanStd(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// LogValue implements slog.LogValuer.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("window_start", s.WindowStart),
		slog.Float64("window_end", s.WindowEnd),
		slog.String("mode", s.Mode),
		slog.String("profile", s.Profile),
		slog.Int("budget", s.Budget),
		slog.Int("alive", s.Alive),
		slog.Int("visible", s.Visible),
		slog.Int("spawned", s.Spawned),
		slog.Int("reclaimed", s.Reclaimed),
		slog.Int("triggers", s.Triggers),
		slog.Int("wraps", s.Wraps),
		slog.Int("gpu_ticks", s.GPUTicks),
		slog.Float64("pulse_mean", s.PulseMean),
		slog.Float64("pulse_p90", s.PulseP90),
		slog.Float64("fps_mean", s.FPSMean),
	)
}

// LogStats logs the window stats.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEnd,
		"mode", s.Mode,
		"profile", s.Profile,
		"alive", s.Alive,
		"spawned", s.Spawned,
		"reclaimed", s.Reclaimed,
		"triggers", s.Triggers,
		"wraps", s.Wraps,
		"gpu_ticks", s.GPUTicks,
		"pulse_mean", s.PulseMean,
		"pulse_p90", s.PulseP90,
		"fps_mean", s.FPSMean,
		"fps_std", s.FPSStd,
	)
}
