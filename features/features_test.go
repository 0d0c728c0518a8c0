package features

import (
	"math"
	"testing"

	"github.com/pthm-cable/railfield/config"
)

func TestParseTreatsMalformedAsZero(t *testing.T) {
	s := Parse(map[string]any{
		"bass":         0.9,
		"subBass":      "0.25",
		"mid":          "loud",
		"treble":       math.NaN(),
		"sparkle":      3.0,
		"lowMid":       -1,
		"highMid":      nil,
		"spectralFlux": float32(0.5),
		"onset":        map[string]int{},
	})

	tests := []struct {
		tag  Tag
		want float32
	}{
		{Bass, 0.9},
		{SubBass, 0.25},
		{Mid, 0},
		{Treble, 0},
		{Sparkle, 1},
		{LowMid, 0},
		{HighMid, 0},
	}
	for _, tt := range tests {
		if got := s.Bands.Get(tt.tag); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.tag, tt.want, got)
		}
	}
	if s.Flux != 0.5 {
		t.Errorf("expected flux 0.5, got %v", s.Flux)
	}
	if s.Onset != 0 {
		t.Errorf("expected onset 0 for non-numeric, got %v", s.Onset)
	}
}

func TestScaledClampsNegative(t *testing.T) {
	b := Bands{0.5, -0.2, 1, 0, 0, 0, 0}
	got := b.Scaled(2)
	if got[SubBass] != 1 || got[Bass] != 0 || got[LowMid] != 2 {
		t.Errorf("unexpected scaled bands %v", got)
	}
	if z := b.Scaled(-3); z != (Bands{}) {
		t.Errorf("negative boost should zero all bands, got %v", z)
	}
}

func TestParseTag(t *testing.T) {
	for i := 0; i < NumBands; i++ {
		tag := Tag(i)
		got, ok := ParseTag(tag.String())
		if !ok || got != tag {
			t.Errorf("round trip failed for %s", tag)
		}
	}
	if _, ok := ParseTag("none"); ok {
		t.Error("none must not parse as a band")
	}
	if !Bass.BassFamily() || Sparkle.BassFamily() {
		t.Error("unexpected bass family classification")
	}
}

func TestRegistryPatchSemantics(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(cfg.Features)

	before := r.ForTag(Bass)
	size := float32(2.5)
	after := r.Register("bass", Patch{Size: &size})

	if after.Size != 2.5 {
		t.Errorf("expected patched size 2.5, got %v", after.Size)
	}
	if after.Color != before.Color || after.Lifetime != before.Lifetime || after.Sensitivity != before.Sensitivity {
		t.Error("patch modified fields it did not name")
	}

	bad := float32(-1)
	kept := r.Register("bass", Patch{Lifetime: &bad})
	if kept.Lifetime != before.Lifetime {
		t.Errorf("non-positive lifetime patch should be ignored, got %v", kept.Lifetime)
	}
}

func TestRegistryNewFeatureUsesDefaults(t *testing.T) {
	r := NewRegistry(nil)
	flow := Flow
	p := r.Register("onsetGlow", Patch{Behavior: &flow})
	if p.Behavior != Flow {
		t.Errorf("expected flow behavior, got %s", p.Behavior)
	}
	if p.Sensitivity <= 0 || p.Size <= 0 || p.Lifetime <= 0 {
		t.Errorf("new preset should inherit positive defaults: %+v", p)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("lookup of unknown feature should report false")
	}
}
