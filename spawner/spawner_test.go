package spawner

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/railfield/config"
	"github.com/pthm-cable/railfield/features"
	"github.com/pthm-cable/railfield/pool"
)

type recorder struct {
	seeds []pool.Seed
}

func (r *recorder) Seed(s pool.Seed) { r.seeds = append(r.seeds, s) }

type fixture struct {
	spawner *Spawner
	pool    *pool.Pool
	attrs   *Attributes
	rec     *recorder
}

func newFixture(t *testing.T, capacity, batch int) fixture {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	p, err := pool.New(capacity)
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	attrs := NewAttributes(capacity)
	p.Attach(attrs)
	rec := &recorder{}
	s := New(cfg.Spawner, p, features.NewRegistry(cfg.Features), attrs, batch, rec)
	return fixture{spawner: s, pool: p, attrs: attrs, rec: rec}
}

var (
	camera = mgl32.Vec3{0, 3, 0}
	lookAt = mgl32.Vec3{0, 3, -12}
)

func bassSample(v float32) features.Sample {
	var s features.Sample
	s.Bands[features.Bass] = v
	return s
}

func TestNewBasis(t *testing.T) {
	b, ok := NewBasis(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -5})
	if !ok {
		t.Fatal("basis should be valid")
	}
	if !b.Forward.ApproxEqual(mgl32.Vec3{0, 0, -1}) ||
		!b.Right.ApproxEqual(mgl32.Vec3{1, 0, 0}) ||
		!b.Up.ApproxEqual(mgl32.Vec3{0, 1, 0}) {
		t.Errorf("basis = %+v", b)
	}

	b, ok = NewBasis(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 4, 0})
	if !ok {
		t.Fatal("vertical look should still be valid")
	}
	if !b.Right.ApproxEqual(mgl32.Vec3{1, 0, 0}) {
		t.Errorf("vertical right = %v, want +X fallback", b.Right)
	}

	if _, ok := NewBasis(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{1, 2, 3}); ok {
		t.Error("coincident camera and target must be degenerate")
	}
}

func TestThresholdTrigger(t *testing.T) {
	tests := []struct {
		name  string
		value float32
		fires bool
	}{
		{"above threshold", 0.9, true},
		{"below threshold", 0.3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1000, 10)
			f.spawner.Drive(1.0, 0.016, camera, lookAt, bassSample(tt.value), 1.0, 1, 0)

			_, fired := f.spawner.Triggered(features.Bass)
			if fired != tt.fires {
				t.Errorf("fired = %v, want %v", fired, tt.fires)
			}
			if (f.spawner.Spawned() > 0) != tt.fires {
				t.Errorf("spawned = %d", f.spawner.Spawned())
			}
		})
	}
}

func TestCooldown(t *testing.T) {
	f := newFixture(t, 1000, 10)
	f.spawner.Drive(1.0, 0.016, camera, lookAt, bassSample(0.9), 1.0, 1, 0)
	first := f.spawner.Spawned()
	if first == 0 {
		t.Fatal("first frame should spawn")
	}

	f.spawner.Drive(1.05, 0.05, camera, lookAt, bassSample(0.9), 1.0, 1, 0)
	if f.spawner.Spawned() != first {
		t.Errorf("second frame inside cooldown spawned %d more", f.spawner.Spawned()-first)
	}
	if at, _ := f.spawner.Triggered(features.Bass); at != 1.0 {
		t.Errorf("last trigger = %v, want 1.0", at)
	}

	f.spawner.Drive(1.2, 0.15, camera, lookAt, bassSample(0.9), 1.0, 1, 0)
	if f.spawner.Spawned() == first {
		t.Error("frame after cooldown should spawn")
	}
}

func TestBoostAndSensitivityScaleIntensity(t *testing.T) {
	f := newFixture(t, 1000, 10)
	// 0.3 alone is below the bass threshold; doubled it fires.
	f.spawner.Drive(1.0, 0.016, camera, lookAt, bassSample(0.3), 2.0, 1, 0)
	if _, ok := f.spawner.Triggered(features.Bass); !ok {
		t.Error("boosted bass should fire")
	}

	f = newFixture(t, 1000, 10)
	f.spawner.Drive(1.0, 0.016, camera, lookAt, bassSample(0.9), -1, 1, 0)
	if f.spawner.Spawned() != 0 {
		t.Error("negative boost must clamp to zero")
	}
}

func TestPulse(t *testing.T) {
	f := newFixture(t, 1000, 10)
	pulse := f.spawner.Drive(1.0, 0.016, camera, lookAt, bassSample(0.9), 1.0, 1, 0)
	if math.Abs(float64(pulse)-0.9*0.6) > 1e-5 {
		t.Errorf("bass pulse = %v, want %v", pulse, 0.9*0.6)
	}

	decayed := f.spawner.Drive(1.1, 0.1, camera, lookAt, features.Sample{}, 1.0, 1, 0)
	want := pulse * float32(math.Exp(-2.5*0.1))
	if math.Abs(float64(decayed-want)) > 1e-5 {
		t.Errorf("decayed pulse = %v, want %v", decayed, want)
	}

	var treble features.Sample
	treble.Bands[features.Treble] = 1
	g := newFixture(t, 1000, 10)
	pulse = g.spawner.Drive(1.0, 0.016, camera, lookAt, treble, 1.0, 1, 0)
	// treble sensitivity 1.2 clamps intensity to 1.
	if math.Abs(float64(pulse)-0.25) > 1e-5 {
		t.Errorf("treble pulse = %v, want 0.25", pulse)
	}
}

func TestDegenerateCameraSkipsFrame(t *testing.T) {
	f := newFixture(t, 1000, 10)
	pulse := f.spawner.Drive(1.0, 0.016, camera, lookAt, bassSample(0.9), 1.0, 1, 0)
	spawned := f.spawner.Spawned()

	got := f.spawner.Drive(2.0, 1.0, camera, camera, bassSample(0.9), 1.0, 1, 1)
	if got != pulse {
		t.Errorf("pulse changed on degenerate frame: %v -> %v", pulse, got)
	}
	if f.spawner.Spawned() != spawned {
		t.Error("degenerate frame spawned particles")
	}
}

func TestAmbientSeeding(t *testing.T) {
	f := newFixture(t, 1000, 10)
	f.spawner.Drive(1.0, 0.3, camera, lookAt, features.Sample{}, 1.0, 1, 0)
	if f.spawner.Spawned() != 0 {
		t.Fatalf("ambient fired early: %d", f.spawner.Spawned())
	}
	// 0.33 + 0.33 crosses the 0.45 period once.
	f.spawner.Drive(1.3, 0.3, camera, lookAt, features.Sample{}, 1.0, 1, 0)
	want := f.spawner.BurstCount(0.15, 1)
	if f.spawner.Spawned() != want {
		t.Errorf("ambient spawned %d, want %d", f.spawner.Spawned(), want)
	}
	for _, s := range f.rec.seeds {
		if s.Tag != features.Sparkle {
			t.Errorf("ambient seed tagged %s", s.Tag)
		}
	}
}

func TestBurstCount(t *testing.T) {
	f := newFixture(t, 1000, 10)
	tests := []struct {
		intensity, lod float32
		want           int
	}{
		{0.9, 1, 23},
		{0, 1, 5},
		{1, 1, 25},
		{0, 0.5, 3},
		{5, 1, 25},
	}
	for _, tt := range tests {
		if got := f.spawner.BurstCount(tt.intensity, tt.lod); got != tt.want {
			t.Errorf("BurstCount(%v, %v) = %d, want %d", tt.intensity, tt.lod, got, tt.want)
		}
	}
	f.spawner.SetBatchSize(1)
	if got := f.spawner.BurstCount(0, 0.1); got != 1 {
		t.Errorf("minimum burst = %d, want 1", got)
	}
}

func TestDeterminism(t *testing.T) {
	run := func() (fixture, []float64) {
		f := newFixture(t, 2000, 20)
		var triggers []float64
		var sample features.Sample
		sample.Bands = features.Bands{0.5, 0.9, 0.2, 0.6, 0.7, 0.1, 0.8}
		now := 0.0
		for i := 0; i < 40; i++ {
			now += 1.0 / 30
			f.spawner.Drive(now, 1.0/30, camera, lookAt, sample, 1.2, 1, 0.3)
			for tag := features.Tag(0); tag < features.NumBands; tag++ {
				at, ok := f.spawner.Triggered(tag)
				if ok {
					triggers = append(triggers, at)
				}
			}
		}
		return f, triggers
	}

	a, ta := run()
	b, tb := run()
	if a.spawner.Spawned() != b.spawner.Spawned() {
		t.Fatalf("spawned %d vs %d", a.spawner.Spawned(), b.spawner.Spawned())
	}
	if a.pool.FreeCount() != b.pool.FreeCount() {
		t.Errorf("free %d vs %d", a.pool.FreeCount(), b.pool.FreeCount())
	}
	if len(ta) != len(tb) {
		t.Fatalf("trigger history length %d vs %d", len(ta), len(tb))
	}
	for i := range ta {
		if ta[i] != tb[i] {
			t.Errorf("trigger %d: %v vs %v", i, ta[i], tb[i])
		}
	}
	for i := range a.rec.seeds {
		if a.rec.seeds[i] != b.rec.seeds[i] {
			t.Fatalf("seed %d differs: %+v vs %+v", i, a.rec.seeds[i], b.rec.seeds[i])
		}
	}
}

func TestWrapSpawnsNothingAndResetsCursor(t *testing.T) {
	f := newFixture(t, 100, 10)
	f.attrs.ClearDirty()
	burst := Burst{Tag: features.Mid, Preset: features.Preset{Size: 1, Lifetime: 2}, Now: 1, LOD: 1}
	b, _ := NewBasis(camera, lookAt)
	burst.Basis = b

	if n := f.spawner.SpawnParticles(60, burst); n != 60 {
		t.Fatalf("first batch spawned %d, want 60", n)
	}
	if f.spawner.Cursor() != 60 {
		t.Errorf("cursor = %d, want 60", f.spawner.Cursor())
	}
	if _, _, full := f.attrs.Dirty(); full {
		t.Error("partial batch should not request a full upload")
	}

	seeds := len(f.rec.seeds)
	if n := f.spawner.SpawnParticles(60, burst); n != 0 {
		t.Errorf("wrap batch spawned %d, want 0", n)
	}
	if f.spawner.Cursor() != 0 || f.spawner.Wraps() != 1 {
		t.Errorf("cursor = %d wraps = %d", f.spawner.Cursor(), f.spawner.Wraps())
	}
	if _, _, full := f.attrs.Dirty(); !full {
		t.Error("wrap should request a full upload")
	}
	if len(f.rec.seeds) != seeds {
		t.Error("wrap must not write any seeds")
	}

	// Every allocated slot got exactly one complete seed.
	seen := make(map[int]int)
	for _, s := range f.rec.seeds {
		seen[s.Index]++
		if s.StartTime != 1 || s.Size <= 0 {
			t.Errorf("incomplete seed %+v", s)
		}
	}
	for i := 0; i < 100; i++ {
		if f.pool.Allocated(i) != (seen[i] == 1) {
			t.Errorf("slot %d allocated=%v seeds=%d", i, f.pool.Allocated(i), seen[i])
		}
	}
}

func TestExhaustionIsPartial(t *testing.T) {
	f := newFixture(t, 10, 10)
	for i := 0; i < 5; i++ {
		f.pool.Allocate()
	}
	burst := Burst{Tag: features.Bass, Preset: features.Preset{Size: 1, Lifetime: 2}, Now: 1, LOD: 1}
	if n := f.spawner.SpawnParticles(10, burst); n != 5 {
		t.Errorf("spawned %d, want 5", n)
	}
	if n := f.spawner.SpawnParticles(3, burst); n != 0 {
		t.Errorf("exhausted pool spawned %d", n)
	}
}

func TestSpawnWritesAttributesAndPool(t *testing.T) {
	f := newFixture(t, 50, 5)
	f.attrs.ClearDirty()
	preset := features.Preset{Color: features.Color{R: 0.1, G: 0.2, B: 0.3}, Size: 2, Lifetime: 4}
	n := f.spawner.SpawnParticles(3, Burst{Tag: features.Treble, Preset: preset, Now: 10, LOD: 1})
	if n != 3 {
		t.Fatalf("spawned %d", n)
	}
	for _, s := range f.rec.seeds {
		i := s.Index
		if f.pool.Tag(i) != features.Treble {
			t.Errorf("slot %d tag = %s", i, f.pool.Tag(i))
		}
		if !f.pool.Alive(i, 10) {
			t.Errorf("slot %d not alive at spawn time", i)
		}
		if f.attrs.Scales[i] != s.Size || s.Size < 1.5 || s.Size > 2.5 {
			t.Errorf("slot %d scale = %v size = %v", i, f.attrs.Scales[i], s.Size)
		}
		if f.attrs.Colors[i*3+2] != 0.3 || f.attrs.Tags[i] != float32(features.Treble) {
			t.Errorf("slot %d attributes not written", i)
		}
		if f.pool.Alive(i, 10+4*1.2) {
			t.Errorf("slot %d outlived the +20%% lifetime bound", i)
		}
		if !f.pool.Alive(i, 10+4*0.8-0.001) {
			t.Errorf("slot %d died before the -20%% lifetime bound", i)
		}
	}
	lo, hi, full := f.attrs.Dirty()
	if full || lo != 0 || hi != 3 {
		t.Errorf("dirty = [%d,%d) full=%v, want [0,3)", lo, hi, full)
	}

	f.pool.Free(f.rec.seeds[0].Index)
	if f.attrs.Scales[f.rec.seeds[0].Index] != 0 {
		t.Error("freeing a slot must zero its scale")
	}
}
