package blueprint

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/railfield/features"
)

const sample = `{
  "rideName": "Unit Test Ride",
  "palette": ["#000", "#ff8000", "not-a-color"],
  "synesthetic": {
    "particles": {"connectionDensity": 0.4, "resonanceThreshold": 0.5, "lifespanSeconds": 6.0, "persistence": 0.8},
    "atmosphere": {"skyMood": "test", "turbulenceBias": 1.5, "passionIntensity": 1.2, "tint": "#333333"}
  },
  "options": {"detailLevel": "Medium"}
}`

func TestParseAndTuning(t *testing.T) {
	b, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.RideName != "Unit Test Ride" {
		t.Errorf("ride name = %q", b.RideName)
	}

	tu := b.Tuning()
	if tu.Persistence == nil || *tu.Persistence != 0.8 {
		t.Errorf("persistence = %v", tu.Persistence)
	}
	if tu.LifespanScale != 2 {
		t.Errorf("lifespan scale = %v, want 2", tu.LifespanScale)
	}
	if math.Abs(float64(tu.ThresholdOffset)-0.1) > 1e-6 {
		t.Errorf("threshold offset = %v, want 0.1", tu.ThresholdOffset)
	}
	if tu.CurlMultiplier != 1.5 || tu.IntensityBoost != 1.2 {
		t.Errorf("curl/boost = %v/%v", tu.CurlMultiplier, tu.IntensityBoost)
	}
	if tu.AmbientBursts != 2 {
		t.Errorf("ambient bursts = %d, want 2", tu.AmbientBursts)
	}
	if tu.DetailLevel != "medium" {
		t.Errorf("detail level = %q", tu.DetailLevel)
	}

	if len(tu.Patches) != features.NumBands {
		t.Fatalf("patches = %d, want one per band", len(tu.Patches))
	}
	bass := tu.Patches["bass"].Color
	if bass == nil || bass.R != 1 || math.Abs(float64(bass.G)-128.0/255) > 1e-6 || bass.B != 0 {
		t.Errorf("bass color = %+v", bass)
	}
	if c := tu.Patches["lowMid"].Color; c == nil || *c != (features.Color{}) {
		t.Errorf("palette should cycle, lowMid = %+v", c)
	}
}

func TestEmptyBlueprintIsNeutral(t *testing.T) {
	b, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tu := b.Tuning()
	if tu.Persistence != nil || tu.LifespanScale != 1 || tu.ThresholdOffset != 0 ||
		tu.CurlMultiplier != 1 || tu.AmbientBursts != -1 || tu.IntensityBoost != 1 ||
		tu.DetailLevel != "" || tu.Patches != nil {
		t.Errorf("tuning = %+v, want neutral", tu)
	}
}

func TestTuningClamps(t *testing.T) {
	b, err := Parse([]byte(`{"synesthetic": {"particles": {"lifespanSeconds": 100, "resonanceThreshold": 5, "persistence": 3},
		"atmosphere": {"turbulenceBias": -2, "passionIntensity": 9}}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tu := b.Tuning()
	if tu.LifespanScale != 4 || tu.ThresholdOffset != 0.25 || *tu.Persistence != 1 {
		t.Errorf("particles clamps = %+v", tu)
	}
	if tu.CurlMultiplier != 0 || tu.IntensityBoost != 3 {
		t.Errorf("atmosphere clamps = %+v", tu)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want features.Color
		ok   bool
	}{
		{"#ffffff", features.Color{R: 1, G: 1, B: 1}, true},
		{"#f00", features.Color{R: 1}, true},
		{"00ff00", features.Color{G: 1}, true},
		{"#12345", features.Color{}, false},
		{"#gggggg", features.Color{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseColor(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseColor(%q) = %+v, %v", tt.in, got, ok)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ride.json")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load: %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Parse([]byte("{unterminated")); err == nil {
		t.Error("expected parse error")
	}
}
