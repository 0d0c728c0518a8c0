// Package spawner turns audio features into particle spawns around the ride
// camera.
package spawner

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/railfield/config"
	"github.com/pthm-cable/railfield/features"
	"github.com/pthm-cable/railfield/pool"
)

// Sink receives the spawn state of each new particle.
type Sink interface {
	Seed(s pool.Seed)
}

// Trigger fires a burst when a feature crosses its threshold.
type Trigger struct {
	Tag       features.Tag
	Threshold float32
	Cooldown  float64
	Lateral   float32
	Forward   float32
}

// Burst describes one spawn request.
type Burst struct {
	Tag       features.Tag
	Preset    features.Preset
	Origin    mgl32.Vec3
	Basis     Basis
	Intensity float32
	Now       float64
	LOD       float32
}

// Spawner evaluates triggers and ambient seeding each frame.
type Spawner struct {
	cfg      config.SpawnerConfig
	pool     *pool.Pool
	registry *features.Registry
	attrs    *Attributes
	sinks    []Sink
	rng      *rand.Rand

	triggers    []Trigger
	lastTrigger [features.NumBands]float64
	fired       [features.NumBands]bool

	pulse   float32
	ambient float64
	cursor  int
	batch   int
	wraps   int
	spawned int
	fires   int

	lifespanScale   float32
	thresholdOffset float32
	ambientBursts   int
}

// New creates a spawner writing into p and fanning seeds out to sinks.
func New(cfg config.SpawnerConfig, p *pool.Pool, registry *features.Registry, attrs *Attributes, batch int, sinks ...Sink) *Spawner {
	s := &Spawner{
		cfg:           cfg,
		pool:          p,
		registry:      registry,
		attrs:         attrs,
		sinks:         sinks,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		lifespanScale: 1,
		ambientBursts: cfg.AmbientBursts,
	}
	s.SetBatchSize(batch)
	for _, tc := range cfg.Triggers {
		tag, ok := features.ParseTag(tc.Feature)
		if !ok {
			slog.Warn("spawner_unknown_trigger", "feature", tc.Feature)
			continue
		}
		s.triggers = append(s.triggers, Trigger{
			Tag:       tag,
			Threshold: float32(tc.Threshold),
			Cooldown:  tc.Cooldown,
			Lateral:   float32(tc.Lateral),
			Forward:   float32(tc.Forward),
		})
	}
	return s
}

// Triggers returns the active trigger table.
func (s *Spawner) Triggers() []Trigger { return s.triggers }

// SetBatchSize sets the spawn batch of the current quality profile.
func (s *Spawner) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	s.batch = n
}

// BatchSize returns the spawn batch.
func (s *Spawner) BatchSize() int { return s.batch }

// SetLifespanScale multiplies every preset lifetime.
func (s *Spawner) SetLifespanScale(v float32) {
	if v > 0 {
		s.lifespanScale = v
	}
}

// SetThresholdOffset shifts every trigger threshold.
func (s *Spawner) SetThresholdOffset(v float32) { s.thresholdOffset = v }

// SetAmbientBursts sets how many sparkle bursts each ambient round spawns.
func (s *Spawner) SetAmbientBursts(n int) {
	if n >= 0 {
		s.ambientBursts = n
	}
}

// Pulse returns the current track pulse.
func (s *Spawner) Pulse() float32 { return s.pulse }

// Cursor returns the ring position inside the budget.
func (s *Spawner) Cursor() int { return s.cursor }

// Wraps returns how many spawn calls were turned into wrap events.
func (s *Spawner) Wraps() int { return s.wraps }

// Spawned returns the total number of particles spawned.
func (s *Spawner) Spawned() int { return s.spawned }

// Fires returns the total number of trigger firings.
func (s *Spawner) Fires() int { return s.fires }

// Triggered returns the last trigger time of a feature.
func (s *Spawner) Triggered(tag features.Tag) (float64, bool) {
	if tag >= features.NumBands || !s.fired[tag] {
		return 0, false
	}
	return s.lastTrigger[tag], true
}

// Drive evaluates one frame of triggers and ambient seeding and returns the
// updated track pulse. A degenerate camera pose skips the frame and leaves
// the pulse untouched.
func (s *Spawner) Drive(now, dt float64, camera, lookAt mgl32.Vec3, sample features.Sample, boost, lod, gpuAudioForce float32) float32 {
	basis, ok := NewBasis(camera, lookAt)
	if !ok {
		return s.pulse
	}
	if dt < 0 {
		dt = 0
	}
	if boost < 0 || boost != boost {
		boost = 0
	}
	s.pulse *= float32(math.Exp(-s.cfg.PulseDecay * dt))

	for _, tr := range s.triggers {
		preset := s.registry.ForTag(tr.Tag)
		intensity := clamp01(sample.Bands.Get(tr.Tag) * preset.Sensitivity * boost)
		if intensity < tr.Threshold+s.thresholdOffset {
			continue
		}
		if s.fired[tr.Tag] && now-s.lastTrigger[tr.Tag] < tr.Cooldown {
			continue
		}

		origin := basis.Point(camera, tr.Forward, tr.Lateral, 0).Add(s.jitter(float32(s.cfg.Jitter)))
		s.SpawnFeatureBurst(Burst{
			Tag:       tr.Tag,
			Preset:    preset,
			Origin:    origin,
			Basis:     basis,
			Intensity: intensity,
			Now:       now,
			LOD:       lod,
		})
		s.lastTrigger[tr.Tag] = now
		s.fired[tr.Tag] = true
		s.fires++

		gain := float32(s.cfg.OtherPulseGain)
		if tr.Tag.BassFamily() {
			gain = float32(s.cfg.BassPulseGain)
		}
		s.pulse += intensity * gain
	}

	if gpuAudioForce < 0 || gpuAudioForce != gpuAudioForce {
		gpuAudioForce = 0
	}
	s.ambient += dt * (1.1 + 0.8*float64(gpuAudioForce))
	if period := s.cfg.AmbientPeriod; period > 0 {
		for s.ambient >= period {
			s.ambient -= period
			s.spawnAmbient(now, basis, camera, lod)
		}
	}
	return s.pulse
}

func (s *Spawner) spawnAmbient(now float64, basis Basis, camera mgl32.Vec3, lod float32) {
	preset := s.registry.ForTag(features.Sparkle)
	for k := 0; k < s.ambientBursts; k++ {
		origin := basis.Point(camera,
			4+12*s.rng.Float32(),
			(s.rng.Float32()*2-1)*6,
			-1+4*s.rng.Float32(),
		)
		s.SpawnFeatureBurst(Burst{
			Tag:       features.Sparkle,
			Preset:    preset,
			Origin:    origin,
			Basis:     basis,
			Intensity: float32(s.cfg.AmbientIntensity),
			Now:       now,
			LOD:       lod,
		})
	}
}

// BurstCount returns how many particles a burst of the given intensity asks
// for: round(batch*(0.5+2*intensity)) scaled by the LOD level, at least 1.
func (s *Spawner) BurstCount(intensity, lod float32) int {
	n := int(math.Round(float64(s.batch) * (0.5 + 2*float64(clamp01(intensity))) * float64(lodScale(lod))))
	if n < 1 {
		n = 1
	}
	return n
}

// SpawnFeatureBurst spawns a burst sized by intensity and returns how many
// particles were created.
func (s *Spawner) SpawnFeatureBurst(b Burst) int {
	return s.SpawnParticles(s.BurstCount(b.Intensity, b.LOD), b)
}

// SpawnParticles allocates and seeds up to count particles. A request that
// would run the ring cursor past the budget is a wrap event: nothing is
// spawned, the attributes are marked for a full upload and the cursor
// restarts at 0. Pool exhaustion ends the batch early.
func (s *Spawner) SpawnParticles(count int, b Burst) int {
	budget := s.pool.Budget()
	if budget <= 0 || count <= 0 {
		return 0
	}
	if count > budget {
		count = budget
	}
	if s.cursor > budget {
		s.cursor = 0
	}
	if s.cursor+count > budget {
		s.attrs.MarkFull()
		s.cursor = 0
		s.wraps++
		return 0
	}

	scale := lodScale(b.LOD)
	intensity := clamp01(b.Intensity)
	spread := float32(s.cfg.Spread) * (0.5 + intensity)

	n := 0
	for ; n < count; n++ {
		idx, ok := s.pool.Allocate()
		if !ok {
			break
		}
		pos := b.Origin.Add(s.jitter(spread))
		size := b.Preset.Size * (0.75 + 0.5*s.rng.Float32()) * scale
		lifetime := b.Preset.Lifetime * s.lifespanScale * (0.8 + 0.4*s.rng.Float32())
		vel := s.velocity(b.Preset.Behavior, b.Basis, intensity)

		s.pool.Spawn(idx, b.Now, float64(lifetime), b.Tag)
		seed := pool.Seed{
			Index:     idx,
			Position:  pos,
			Velocity:  vel,
			StartTime: b.Now,
			Size:      size,
			Tag:       b.Tag,
		}
		for _, sink := range s.sinks {
			sink.Seed(seed)
		}
		s.attrs.Set(idx, b.Preset.Color, size, b.Tag)
	}

	s.cursor += n
	if s.cursor >= budget {
		s.cursor = 0
	}
	s.spawned += n
	return n
}

func (s *Spawner) velocity(behavior features.Behavior, basis Basis, intensity float32) mgl32.Vec3 {
	switch behavior {
	case features.Trail:
		back := basis.Forward.Mul(-(2 + 4*intensity))
		return back.Add(basis.Up.Mul(0.3 * s.rng.Float32()))
	case features.Flow:
		up := basis.Up.Mul(0.8 + 1.5*intensity)
		return up.Add(basis.Right.Mul((s.rng.Float32() - 0.5) * 1.5))
	default:
		dir := s.unitVector()
		return dir.Mul(1.5 + 3*intensity)
	}
}

// jitter returns a vector with each component uniform in [-r, r].
func (s *Spawner) jitter(r float32) mgl32.Vec3 {
	return mgl32.Vec3{
		(s.rng.Float32()*2 - 1) * r,
		(s.rng.Float32()*2 - 1) * r,
		(s.rng.Float32()*2 - 1) * r,
	}
}

func (s *Spawner) unitVector() mgl32.Vec3 {
	z := s.rng.Float32()*2 - 1
	theta := s.rng.Float64() * 2 * math.Pi
	r := float32(math.Sqrt(float64(1 - z*z)))
	return mgl32.Vec3{r * float32(math.Cos(theta)), r * float32(math.Sin(theta)), z}
}

func lodScale(lod float32) float32 {
	if lod != lod || lod > 1 {
		return 1
	}
	if lod < 0.1 {
		return 0.1
	}
	return lod
}

func clamp01(v float32) float32 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
