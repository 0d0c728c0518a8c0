package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartFrame()
		pc.StartPhase(PhaseSpawn)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseSimulate)
		time.Sleep(200 * time.Microsecond)
		pc.EndFrame()
	}

	stats := pc.Stats()
	if stats.AvgFrame <= 0 {
		t.Error("expected positive average frame duration")
	}
	if _, ok := stats.PhaseAvg[PhaseSpawn]; !ok {
		t.Error("expected spawn phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseSimulate]; !ok {
		t.Error("expected simulate phase to be tracked")
	}
	if stats.MinFrame > stats.AvgFrame || stats.AvgFrame > stats.MaxFrame {
		t.Errorf("min/avg/max out of order: %v/%v/%v", stats.MinFrame, stats.AvgFrame, stats.MaxFrame)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)
	for i := 0; i < 10; i++ {
		pc.StartFrame()
		pc.StartPhase(PhaseReclaim)
		pc.EndFrame()
	}
	if pc.sampleCount != 5 {
		t.Errorf("sample count = %d, want window size 5", pc.sampleCount)
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)
	for i := 0; i < 5; i++ {
		pc.StartFrame()
		// Quality closes at once; sleep granularity cannot make it outlast simulate.
		pc.StartPhase(PhaseQuality)
		pc.StartPhase(PhaseSimulate)
		time.Sleep(2 * time.Millisecond)
		pc.EndFrame()
	}

	stats := pc.Stats()
	if _, ok := stats.PhasePct[PhaseQuality]; !ok {
		t.Error("quality phase missing")
	}
	if stats.PhaseAvg[PhaseSimulate] < 2*time.Millisecond {
		t.Errorf("simulate avg = %v, want at least the 2ms sleep", stats.PhaseAvg[PhaseSimulate])
	}
	if stats.PhasePct[PhaseSimulate] <= stats.PhasePct[PhaseQuality] {
		t.Errorf("expected simulate (%v%%) > quality (%v%%)",
			stats.PhasePct[PhaseSimulate], stats.PhasePct[PhaseQuality])
	}
	row := stats.ToCSV(12.5)
	if row.Time != 12.5 || row.SimulatePct != stats.PhasePct[PhaseSimulate] {
		t.Errorf("csv row = %+v", row)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()
	if stats.AvgFrame != 0 {
		t.Error("expected zero avg frame for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollector_PresentTiming(t *testing.T) {
	pc := NewPerfCollector(10)
	pc.RecordPresent()
	time.Sleep(16 * time.Millisecond)
	pc.RecordPresent()

	stats := pc.Stats()
	if stats.FrameInterval < 15*time.Millisecond {
		t.Errorf("expected interval >= 15ms, got %v", stats.FrameInterval)
	}
	if stats.FPS < 20 || stats.FPS > 80 {
		t.Errorf("expected FPS near 60, got %v", stats.FPS)
	}
}
