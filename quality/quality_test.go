package quality

import (
	"testing"

	"github.com/pthm-cable/railfield/config"
)

func testConfig() config.QualityConfig {
	return config.QualityConfig{
		TargetFPS:      55,
		MediumFPS:      30,
		SampleWindow:   2,
		DowngradeDelay: 1.5,
		Profiles: []config.ProfileConfig{
			{Name: "low", ParticleBudget: 2500, SpawnBatchSize: 60, GPUEnabled: false},
			{Name: "medium", ParticleBudget: 6000, SpawnBatchSize: 120, GPUUpdateInterval: 0.033, GPUEnabled: true},
			{Name: "high", ParticleBudget: 10000, SpawnBatchSize: 200, GPUEnabled: true},
		},
	}
}

func TestProfileFor(t *testing.T) {
	c := New(testConfig(), 2)
	tests := []struct {
		fps  float64
		want string
	}{
		{120, "high"},
		{55.5, "high"},
		{55, "medium"},
		{31, "medium"},
		{30, "low"},
		{5, "low"},
	}
	for _, tt := range tests {
		if got := c.profiles[c.profileFor(tt.fps)].Name; got != tt.want {
			t.Errorf("profileFor(%v) = %s, want %s", tt.fps, got, tt.want)
		}
	}
}

func TestUpgradeIsImmediate(t *testing.T) {
	c := New(testConfig(), 0)
	c.Sample(0, 60)
	d := c.Check(0.1)
	if !d.Changed || d.Profile.Name != "high" {
		t.Fatalf("decision = %+v, want change to high", d)
	}
	if !d.ReprobeGPU || d.ForceCPU {
		t.Errorf("leaving a CPU profile should re-probe: %+v", d)
	}
	if d.From != 0 || d.To != 2 {
		t.Errorf("from/to = %d/%d", d.From, d.To)
	}
}

func TestDowngradeIsDebounced(t *testing.T) {
	c := New(testConfig(), 2)

	c.Sample(0, 20)
	if d := c.Check(0.5); d.Changed {
		t.Fatalf("downgraded after 0.5s: %+v", d)
	}
	c.Sample(1.0, 20)
	if d := c.Check(1.0); d.Changed {
		t.Fatalf("downgraded after 1.0s: %+v", d)
	}
	c.Sample(1.6, 20)
	if d := c.Check(1.6); d.Changed {
		t.Fatalf("downgraded 1.1s after the first low evaluation: %+v", d)
	}
	c.Sample(2.0, 20)
	d := c.Check(2.0)
	if !d.Changed || d.Profile.Name != "low" {
		t.Fatalf("decision = %+v, want change to low", d)
	}
	if !d.ForceCPU || d.ReprobeGPU {
		t.Errorf("low profile must force CPU: %+v", d)
	}
}

func TestRecoveryResetsDowngradeTimer(t *testing.T) {
	c := New(testConfig(), 2)
	c.Sample(0, 20)
	c.Check(0.5)
	c.Sample(1.0, 60)
	if d := c.Check(1.0); d.Changed {
		t.Fatalf("unexpected change: %+v", d)
	}
	c.Sample(1.2, 20)
	if d := c.Check(1.6); d.Changed {
		t.Errorf("low condition restarted at 1.2, change at 1.6 is too early: %+v", d)
	}
}

func TestWindowedSampling(t *testing.T) {
	c := New(testConfig(), 2)
	var last Decision
	at := 0.0
	for i := 0; i <= 300; i++ {
		now := float64(i) / 60
		d := c.Sample(now, 40)
		if d.Changed {
			last, at = d, now
			break
		}
	}
	if !last.Changed || last.Profile.Name != "medium" {
		t.Fatalf("decision = %+v, want change to medium", last)
	}
	if at < 4 {
		t.Errorf("downgraded at %.2fs, want the second window to confirm it", at)
	}
	if last.FPS != 40 || last.FPSStdDev != 0 {
		t.Errorf("fps = %v ± %v", last.FPS, last.FPSStdDev)
	}
	if last.ForceCPU || last.ReprobeGPU {
		t.Errorf("high to medium keeps the GPU running: %+v", last)
	}
}

func TestInvalidSamplesIgnored(t *testing.T) {
	c := New(testConfig(), 2)
	c.Sample(0, 0)
	c.Sample(0.1, -3)
	if d := c.Check(0.2); d.Changed || d.FPS != 0 {
		t.Errorf("decision from invalid samples: %+v", d)
	}
}

func TestCapabilityLatchBlocksReprobe(t *testing.T) {
	c := New(testConfig(), 0)
	c.ForceCPU("no float targets", true)
	if !c.CPULatched() || c.GPUAllowed() {
		t.Fatal("latch should disallow GPU")
	}
	c.Sample(0, 90)
	d := c.Check(0.1)
	if !d.Changed || d.Profile.Name != "high" {
		t.Fatalf("decision = %+v", d)
	}
	if d.ReprobeGPU || !d.ForceCPU {
		t.Errorf("latched controller must stay on CPU: %+v", d)
	}
}

func TestTransientFailureReprobesOnUpgrade(t *testing.T) {
	c := New(testConfig(), 2)
	c.ForceCPU("pass failed", false)
	if c.CPULatched() {
		t.Fatal("transient failure must not latch")
	}

	c.Sample(0, 40)
	if d := c.Check(0.5); d.Changed {
		t.Fatalf("first low evaluation changed the profile: %+v", d)
	}
	c.Sample(2, 40)
	d := c.Check(2)
	if !d.Changed || d.Profile.Name != "medium" {
		t.Fatalf("decision = %+v", d)
	}
	if d.ReprobeGPU {
		t.Error("downgrade should not re-probe")
	}

	c.Sample(3, 90)
	d = c.Check(3)
	if !d.Changed || !d.ReprobeGPU {
		t.Errorf("upgrade after transient failure should re-probe: %+v", d)
	}
}

func TestSelect(t *testing.T) {
	c := New(testConfig(), 2)
	d, ok := c.Select("low")
	if !ok || !d.Changed || d.To != 0 || !d.ForceCPU {
		t.Errorf("Select(low) = %+v, %v", d, ok)
	}
	d, ok = c.Select("medium")
	if !ok || !d.ReprobeGPU {
		t.Errorf("Select(medium) should re-probe the GPU: %+v", d)
	}
	d, ok = c.Select("medium")
	if !ok || d.Changed {
		t.Errorf("selecting the active profile should not change: %+v", d)
	}
	if _, ok := c.Select("ultra"); ok {
		t.Error("unknown profile should not be selected")
	}
}

func TestDefaultDowngradeDelayHolds(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	q := cfg.Quality
	c := New(q, len(q.Profiles)-1)

	first := -1.0
	for i := 0; i <= 600; i++ {
		now := float64(i) / 60
		if d := c.Sample(now, 10); d.Changed {
			first = now
			break
		}
	}
	if first < 0 {
		t.Fatal("sustained 10 fps never downgraded")
	}
	// The first window only starts the delay; the next one confirms it.
	if first < q.SampleWindow+q.DowngradeDelay {
		t.Errorf("downgraded at %.2fs, before window %.1fs + delay %.1fs", first, q.SampleWindow, q.DowngradeDelay)
	}
	if c.Current().Name != "low" {
		t.Errorf("profile = %s, want low", c.Current().Name)
	}
}
