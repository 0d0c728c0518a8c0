package telemetry

// Collector accumulates field events within time windows and produces
// WindowStats.
type Collector struct {
	windowDuration float64
	windowStart    float64

	spawned   int
	reclaimed int
	triggers  int
	wraps     int
	gpuTicks  int
	pulses    []float64
	fps       []float64
}

// NewCollector creates a collector with windows of windowDuration seconds.
func NewCollector(windowDuration float64) *Collector {
	if windowDuration <= 0 {
		windowDuration = 5
	}
	return &Collector{windowDuration: windowDuration}
}

// FieldCounts are the per-frame values reported by the field.
type FieldCounts struct {
	Spawned   int
	Reclaimed int
	Triggers  int
	Wraps     int
	GPUTick   bool
	Pulse     float32
	FPS       float64
}

// Record adds one frame.
func (c *Collector) Record(f FieldCounts) {
	c.spawned += f.Spawned
	c.reclaimed += f.Reclaimed
	c.triggers += f.Triggers
	c.wraps += f.Wraps
	if f.GPUTick {
		c.gpuTicks++
	}
	c.pulses = append(c.pulses, float64(f.Pulse))
	if f.FPS > 0 {
		c.fps = append(c.fps, f.FPS)
	}
}

// ShouldFlush reports whether the window ending at now is complete.
func (c *Collector) ShouldFlush(now float64) bool {
	return now-c.windowStart >= c.windowDuration
}

// FieldState is the field snapshot taken at window end.
type FieldState struct {
	Mode    string
	Profile string
	Budget  int
	Alive   int
	Visible int
}

// Flush produces the stats for the window ending at now and starts a new one.
func (c *Collector) Flush(now float64, state FieldState) WindowStats {
	pulseMean, pulseP50, pulseP90, pulseMax := Distribution(c.pulses)
	fpsMean, fpsStd := MeanStd(c.fps)

	stats := WindowStats{
		WindowStart: c.windowStart,
		WindowEnd:   now,
		Mode:        state.Mode,
		Profile:     state.Profile,
		Budget:      state.Budget,
		Alive:       state.Alive,
		Visible:     state.Visible,
		Spawned:     c.spawned,
		Reclaimed:   c.reclaimed,
		Triggers:    c.triggers,
		Wraps:       c.wraps,
		GPUTicks:    c.gpuTicks,
		PulseMean:   pulseMean,
		PulseP50:    pulseP50,
		PulseP90:    pulseP90,
		PulseMax:    pulseMax,
		FPSMean:     fpsMean,
		FPSStd:      fpsStd,
	}

	c.windowStart = now
	c.spawned = 0
	c.reclaimed = 0
	c.triggers = 0
	c.wraps = 0
	c.gpuTicks = 0
	c.pulses = c.pulses[:0]
	c.fps = c.fps[:0]
	return stats
}
