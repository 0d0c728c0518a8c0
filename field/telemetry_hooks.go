package field

import (
	"log/slog"

	"github.com/pthm-cable/railfield/telemetry"
)

// flushTelemetry closes the stats window when it is due and hands the
// result to the log, the callback and the CSV output.
func (f *Field) flushTelemetry(now float64) {
	if !f.collector.ShouldFlush(now) {
		return
	}

	visible := f.cpu.VisibleCount()
	if f.Mode() == ModeGPU {
		visible = f.pool.AliveCount(now)
	}
	stats := f.collector.Flush(now, telemetry.FieldState{
		Mode:    f.Mode().String(),
		Profile: f.quality.Current().Name,
		Budget:  f.pool.Budget(),
		Alive:   f.pool.AliveCount(now),
		Visible: visible,
	})
	perfStats := f.perf.Stats()

	if f.statsCallback != nil {
		f.statsCallback(stats)
	}

	if f.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if f.output != nil {
		if err := f.output.WriteStats(stats); err != nil {
			slog.Error("failed to write stats", "error", err)
		}
		if err := f.output.WritePerf(perfStats, now); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}

// emit records a quality transition.
func (f *Field) emit(e telemetry.QualityEvent) {
	if f.logStats {
		slog.Info("quality_event", "event", e)
	}
	if f.eventCallback != nil {
		f.eventCallback(e)
	}
	if f.output != nil {
		if err := f.output.WriteQuality(e); err != nil {
			slog.Error("failed to write quality event", "error", err)
		}
	}
}
