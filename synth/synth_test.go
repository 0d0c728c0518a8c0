package synth

import (
	"testing"

	"github.com/pthm-cable/railfield/features"
)

func TestFrameKeys(t *testing.T) {
	tr := New(1, 120)
	f := tr.Frame(0.1)
	for i := 0; i < features.NumBands; i++ {
		if _, ok := f[features.Tag(i).String()]; !ok {
			t.Errorf("missing band %s", features.Tag(i))
		}
	}
	for _, k := range []string{"spectralFlux", "onset"} {
		if _, ok := f[k]; !ok {
			t.Errorf("missing %s", k)
		}
	}
}

func TestSampleInRange(t *testing.T) {
	tr := New(7, 0)
	if tr.BPM != 124 {
		t.Errorf("default bpm = %v", tr.BPM)
	}
	for i := 0; i < 600; i++ {
		s := tr.Sample(float64(i) / 60)
		for b, v := range s.Bands {
			if v < 0 || v > 1 {
				t.Fatalf("frame %d band %d = %v", i, b, v)
			}
		}
		if s.Flux < 0 || s.Flux > 1 || s.Onset < 0 || s.Onset > 1 {
			t.Fatalf("frame %d flux %v onset %v", i, s.Flux, s.Onset)
		}
	}
}

func TestOnsetPeaksOnBeat(t *testing.T) {
	tr := New(3, 120) // beats every 0.5s
	on := tr.Sample(1.0)
	off := tr.Sample(1.25)
	if on.Onset < 0.99 {
		t.Errorf("onset on beat = %v, want ~1", on.Onset)
	}
	if off.Onset >= on.Onset {
		t.Errorf("onset between beats %v >= on beat %v", off.Onset, on.Onset)
	}
	if on.Bands[features.Bass] <= off.Bands[features.Bass] {
		t.Errorf("bass on beat %v <= off beat %v", on.Bands[features.Bass], off.Bands[features.Bass])
	}
}

func TestDeterministic(t *testing.T) {
	a, b := New(11, 128), New(11, 128)
	for i := 0; i < 100; i++ {
		ts := float64(i) * 0.021
		if a.Sample(ts) != b.Sample(ts) {
			t.Fatalf("tracks diverged at %v", ts)
		}
	}
}
