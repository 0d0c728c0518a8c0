// Package quality picks a quality profile from measured frame rate.
//
// Samples are averaged over a window. Upgrades apply as soon as a window
// qualifies; downgrades only after the low condition has persisted for the
// configured delay.
package quality

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/railfield/config"
)

// Profile is one level of detail.
type Profile struct {
	Name              string
	ParticleBudget    int
	SpawnBatchSize    int
	GPUUpdateInterval float64
	GPUEnabled        bool
}

// Decision is the outcome of an evaluation. The caller applies it between
// frames.
type Decision struct {
	Changed    bool
	From, To   int
	Profile    Profile // Profile at To
	ForceCPU   bool    // New profile runs without GPU simulation
	ReprobeGPU bool    // New profile wants GPU and it is not known to be running
	FPS        float64 // Window mean
	FPSStdDev  float64
}

// Controller tracks FPS samples and the active profile.
type Controller struct {
	profiles       []Profile
	current        int
	targetFPS      float64
	mediumFPS      float64
	window         float64
	downgradeDelay float64

	samples     []float64
	windowStart float64
	hasWindow   bool

	lowPending bool
	lowSince   float64

	gpuLost     bool // Transient failure; re-probe on the next upgrade
	cpuLatched  bool // Capability failure; never re-probe
	latchReason string
}

// ProfilesFromConfig converts the configured profiles, lowest first.
func ProfilesFromConfig(cfg config.QualityConfig) []Profile {
	out := make([]Profile, len(cfg.Profiles))
	for i, p := range cfg.Profiles {
		out[i] = Profile{
			Name:              p.Name,
			ParticleBudget:    p.ParticleBudget,
			SpawnBatchSize:    p.SpawnBatchSize,
			GPUUpdateInterval: p.GPUUpdateInterval,
			GPUEnabled:        p.GPUEnabled,
		}
	}
	return out
}

// New creates a controller starting at profile index initial.
func New(cfg config.QualityConfig, initial int) *Controller {
	profiles := ProfilesFromConfig(cfg)
	if initial < 0 || initial >= len(profiles) {
		initial = len(profiles) - 1
	}
	return &Controller{
		profiles:       profiles,
		current:        initial,
		targetFPS:      cfg.TargetFPS,
		mediumFPS:      cfg.MediumFPS,
		window:         cfg.SampleWindow,
		downgradeDelay: cfg.DowngradeDelay,
	}
}

// Current returns the active profile.
func (c *Controller) Current() Profile { return c.profiles[c.current] }

// CurrentIndex returns the index of the active profile.
func (c *Controller) CurrentIndex() int { return c.current }

// Profiles returns the ordered profile set.
func (c *Controller) Profiles() []Profile { return c.profiles }

// CPULatched reports whether a capability failure pinned the CPU path.
func (c *Controller) CPULatched() bool { return c.cpuLatched }

// GPUAllowed reports whether the active profile may run the GPU path.
func (c *Controller) GPUAllowed() bool {
	return c.Current().GPUEnabled && !c.cpuLatched
}

// ForceCPU records a GPU failure. Permanent failures (capability probe)
// disable re-probing for the rest of the session.
func (c *Controller) ForceCPU(reason string, permanent bool) {
	if permanent {
		if !c.cpuLatched {
			slog.Warn("quality_cpu_latched", "reason", reason)
		}
		c.cpuLatched = true
		c.latchReason = reason
		return
	}
	c.gpuLost = true
}

// GPURestored clears a transient failure after a successful re-probe.
func (c *Controller) GPURestored() { c.gpuLost = false }

// Sample records one FPS measurement. When the window has elapsed it
// evaluates and returns the decision.
func (c *Controller) Sample(now, fps float64) Decision {
	if fps > 0 && !math.IsInf(fps, 0) && !math.IsNaN(fps) {
		if !c.hasWindow {
			c.windowStart = now
			c.hasWindow = true
		}
		c.samples = append(c.samples, fps)
	}
	if c.hasWindow && now-c.windowStart >= c.window {
		return c.Check(now)
	}
	return Decision{From: c.current, To: c.current, Profile: c.Current()}
}

// Check evaluates the samples gathered so far regardless of the window.
func (c *Controller) Check(now float64) Decision {
	d := Decision{From: c.current, To: c.current, Profile: c.Current()}
	if len(c.samples) == 0 {
		return d
	}
	mean, std := stat.MeanStdDev(c.samples, nil)
	if len(c.samples) < 2 {
		std = 0
	}
	d.FPS, d.FPSStdDev = mean, std
	c.samples = c.samples[:0]
	c.hasWindow = false

	desired := c.profileFor(mean)
	switch {
	case desired > c.current:
		c.lowPending = false
		c.switchTo(desired, &d)
	case desired < c.current:
		// The delay runs from the first evaluation that asked for less.
		if !c.lowPending {
			c.lowPending = true
			c.lowSince = now
		}
		if now-c.lowSince >= c.downgradeDelay {
			c.lowPending = false
			c.switchTo(desired, &d)
		}
	default:
		c.lowPending = false
	}
	return d
}

// Select switches to the named profile regardless of FPS and clears any
// pending downgrade. It reports false for an unknown name.
func (c *Controller) Select(name string) (Decision, bool) {
	for i, p := range c.profiles {
		if p.Name != name {
			continue
		}
		d := Decision{From: c.current, To: c.current, Profile: c.Current()}
		c.lowPending = false
		if i != c.current {
			c.switchTo(i, &d)
		}
		return d, true
	}
	return Decision{}, false
}

func (c *Controller) switchTo(next int, d *Decision) {
	from := c.profiles[c.current]
	to := c.profiles[next]
	d.Changed = true
	d.To = next
	d.Profile = to
	d.ForceCPU = !to.GPUEnabled || c.cpuLatched
	upgrade := next > c.current
	d.ReprobeGPU = to.GPUEnabled && !c.cpuLatched && (!from.GPUEnabled || (c.gpuLost && upgrade))
	if d.ReprobeGPU {
		c.gpuLost = false
	}
	c.current = next

	slog.Info("quality_change",
		"from", from.Name,
		"to", to.Name,
		"fps", d.FPS,
		"budget", to.ParticleBudget,
		"batch", to.SpawnBatchSize,
		"gpu", to.GPUEnabled && !c.cpuLatched,
	)
}

// profileFor maps a mean FPS to a profile index: above target is the top
// profile, above the medium threshold the one below it, otherwise the lowest.
func (c *Controller) profileFor(fps float64) int {
	top := len(c.profiles) - 1
	switch {
	case fps > c.targetFPS:
		return top
	case fps > c.mediumFPS:
		return max(top-1, 0)
	default:
		return 0
	}
}
