package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one field frame.
const (
	PhaseQuality  = "quality"
	PhaseSpawn    = "spawn"
	PhaseSimulate = "simulate"
	PhaseReclaim  = "reclaim"
	PhaseUpload   = "upload"
	PhaseDraw     = "draw"
)

var phaseOrder = []string{PhaseQuality, PhaseSpawn, PhaseSimulate, PhaseReclaim, PhaseUpload, PhaseDraw}

// Phases returns the phase names in frame order.
func Phases() []string {
	return append([]string(nil), phaseOrder...)
}

// PerfSample holds timing data for a single frame.
type PerfSample struct {
	FrameDuration time.Duration
	Phases        map[string]time.Duration
}

// PerfCollector tracks frame timings over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	frameStart    time.Time
	phaseStart    time.Time
	lastPhase     string

	// Wall-clock spacing between frames as seen by the render loop
	lastFrameTime time.Time
	frameInterval time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize frames.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartFrame begins timing a field frame.
func (p *PerfCollector) StartFrame() {
	p.frameStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndFrame finishes timing the current frame and records the sample.
func (p *PerfCollector) EndFrame() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		FrameDuration: now.Sub(p.frameStart),
		Phases:        p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.lastPhase = ""
}

// RecordPresent records the time a frame reached the screen.
func (p *PerfCollector) RecordPresent() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameInterval = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated frame statistics.
type PerfStats struct {
	AvgFrame time.Duration
	MinFrame time.Duration
	MaxFrame time.Duration

	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64 // Share of the average frame

	// Present spacing, the FPS the quality controller sees
	FrameInterval time.Duration
	FPS           float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.frameInterval > 0 {
		fps = float64(time.Second) / float64(p.frameInterval)
	}
	stats := PerfStats{
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameInterval: p.frameInterval,
		FPS:           fps,
	}
	if p.sampleCount == 0 {
		return stats
	}

	var total time.Duration
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.FrameDuration
		if i == 0 || s.FrameDuration < stats.MinFrame {
			stats.MinFrame = s.FrameDuration
		}
		if s.FrameDuration > stats.MaxFrame {
			stats.MaxFrame = s.FrameDuration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	stats.AvgFrame = total / time.Duration(p.sampleCount)
	for phase, sum := range phaseSum {
		avg := sum / time.Duration(p.sampleCount)
		stats.PhaseAvg[phase] = avg
		if stats.AvgFrame > 0 {
			stats.PhasePct[phase] = float64(avg) / float64(stats.AvgFrame) * 100
		}
	}
	return stats
}

// LogStats logs the window as one line.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_frame_us", s.AvgFrame.Microseconds(),
		"max_frame_us", s.MaxFrame.Microseconds(),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for _, phase := range phaseOrder {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_frame_us", s.AvgFrame.Microseconds()),
		slog.Int64("min_frame_us", s.MinFrame.Microseconds()),
		slog.Int64("max_frame_us", s.MaxFrame.Microseconds()),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range phaseOrder {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is the flat perf.csv row.
type PerfStatsCSV struct {
	Time        float64 `csv:"time"`
	AvgFrameUS  int64   `csv:"avg_frame_us"`
	MinFrameUS  int64   `csv:"min_frame_us"`
	MaxFrameUS  int64   `csv:"max_frame_us"`
	FPS         float64 `csv:"fps"`
	QualityPct  float64 `csv:"quality_pct"`
	SpawnPct    float64 `csv:"spawn_pct"`
	SimulatePct float64 `csv:"simulate_pct"`
	ReclaimPct  float64 `csv:"reclaim_pct"`
	UploadPct   float64 `csv:"upload_pct"`
	DrawPct     float64 `csv:"draw_pct"`
}

// ToCSV flattens the stats for a window ending at now.
func (s PerfStats) ToCSV(now float64) PerfStatsCSV {
	return PerfStatsCSV{
		Time:        now,
		AvgFrameUS:  s.AvgFrame.Microseconds(),
		MinFrameUS:  s.MinFrame.Microseconds(),
		MaxFrameUS:  s.MaxFrame.Microseconds(),
		FPS:         s.FPS,
		QualityPct:  s.PhasePct[PhaseQuality],
		SpawnPct:    s.PhasePct[PhaseSpawn],
		SimulatePct: s.PhasePct[PhaseSimulate],
		ReclaimPct:  s.PhasePct[PhaseReclaim],
		UploadPct:   s.PhasePct[PhaseUpload],
		DrawPct:     s.PhasePct[PhaseDraw],
	}
}
