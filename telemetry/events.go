// Package telemetry records frame timings, per-window field statistics and
// quality transitions, and writes them as CSV.
package telemetry

import "log/slog"

// QualityKind identifies a quality or simulation-path transition.
type QualityKind string

const (
	KindProfile     QualityKind = "profile"      // Quality profile changed
	KindFallback    QualityKind = "fallback"     // GPU path lost, CPU took over
	KindCapability  QualityKind = "capability"   // GPU probe failed for the session
	KindGPUEnabled  QualityKind = "gpu_enabled"  // Probe succeeded
	KindGPUDisabled QualityKind = "gpu_disabled" // Profile turned the GPU off
)

// QualityEvent is one row of quality.csv.
type QualityEvent struct {
	Time     float64     `csv:"time"`
	Kind     QualityKind `csv:"kind"`
	From     string      `csv:"from"`
	To       string      `csv:"to"`
	FPS      float64     `csv:"fps"`
	Budget   int         `csv:"budget"`
	Renderer string      `csv:"renderer"`
	Vendor   string      `csv:"vendor"`
	Reason   string      `csv:"reason"`
}

// LogValue implements slog.LogValuer.
func (e QualityEvent) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Float64("time", e.Time),
		slog.String("kind", string(e.Kind)),
	}
	if e.From != "" || e.To != "" {
		attrs = append(attrs, slog.String("from", e.From), slog.String("to", e.To))
	}
	if e.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", e.FPS))
	}
	if e.Budget > 0 {
		attrs = append(attrs, slog.Int("budget", e.Budget))
	}
	if e.Renderer != "" {
		attrs = append(attrs, slog.String("renderer", e.Renderer), slog.String("vendor", e.Vendor))
	}
	if e.Reason != "" {
		attrs = append(attrs, slog.String("reason", e.Reason))
	}
	return slog.GroupValue(attrs...)
}
