package zonetime

import (
	"time"

	"github.com/aelexs/timetuner/internal/domain"
)

// State is the externally visible state of a Controller.
type State uint8

const (
	Running State = iota
	Paused
	Skipping
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Skipping:
		return "skipping"
	default:
		return "unknown"
	}
}

// Options configures a Controller.
type Options struct {
	Speeds             SpeedPair
	OverflowProtection bool
	// Clock is the wall clock used for phase cache staleness. Defaults to
	// domain.RealClock.
	Clock domain.Clock
}

// Status is a point-in-time view of a Controller.
type Status struct {
	Speeds      SpeedPair
	Phase       Phase
	State       State
	Paused      bool // manual pause requested
	AutoPaused  bool // suppressed by the empty-zone policy
	RawTime     int64
	LastWritten int64
	Accumulated float64
}

// SkipResult reports what a SkipToDay call did.
type SkipResult struct {
	Accepted       bool
	ClearedStorm   bool
	ClearedThunder bool
}

// Controller owns one zone's mutable time state: the accumulated clock, the
// cached phase, the pause flags, the skip-in-progress flag and the speeds.
//
// Manual pause and occupancy auto-pause are tracked separately so the driver
// can toggle the latter every tick without clobbering an operator's pause.
type Controller struct {
	zone               Zone
	clock              domain.Clock
	overflowProtection bool

	speeds         SpeedPair
	accumulated    Clock
	rawLastWritten int64

	paused     bool
	autoPaused bool
	skipping   bool

	phase   Phase
	phaseAt time.Time
}

// NewController creates a Controller seeded from the zone's current raw time.
func NewController(zone Zone, opts Options) *Controller {
	clock := opts.Clock
	if clock == nil {
		clock = domain.RealClock{}
	}
	c := &Controller{
		zone:               zone,
		clock:              clock,
		overflowProtection: opts.OverflowProtection,
		speeds:             opts.Speeds.Sanitize(),
	}
	c.resync()
	return c
}

// State returns Skipping while a skip settles, Paused when either pause flag
// is set, and Running otherwise.
func (c *Controller) State() State {
	switch {
	case c.skipping:
		return Skipping
	case c.paused || c.autoPaused:
		return Paused
	default:
		return Running
	}
}

// IsSkipping reports whether a skip-to-day is still settling.
func (c *Controller) IsSkipping() bool { return c.skipping }

// IsPaused reports whether an operator paused the zone.
func (c *Controller) IsPaused() bool { return c.paused }

// Speeds returns the active speed pair.
func (c *Controller) Speeds() SpeedPair { return c.speeds }

// Accumulated returns the fractional clock.
func (c *Controller) Accumulated() Clock { return c.accumulated }

// Advance moves the clock forward by delta driver ticks at the speed of the
// current phase and writes the new time of day to the host when its integer
// value changed. It returns true when a host write happened.
func (c *Controller) Advance(delta float64) bool {
	if c.State() != Running {
		return false
	}
	speed := c.speeds.For(c.Phase())
	step := speed * delta
	if !(step > 0) {
		return false
	}

	c.accumulated = c.accumulated.Add(step)
	raw := floorMod(c.accumulated.Ticks(), DayLength)
	if raw == c.rawLastWritten {
		return false
	}

	c.write(raw)
	c.rawLastWritten = raw
	c.refreshPhase()
	return true
}

// Pause stops the clock while keeping its value. Returns false if the zone
// was already manually paused.
func (c *Controller) Pause() bool {
	if c.paused {
		return false
	}
	c.paused = true
	return true
}

// Resume clears a manual pause. The accumulator is resynchronized from the
// host first: the host's time may have been changed while paused, and
// continuing from the stale value would jump time back.
func (c *Controller) Resume() bool {
	if !c.paused {
		return false
	}
	c.paused = false
	if !c.autoPaused {
		c.resync()
	}
	return true
}

// SetAutoPaused applies the empty-zone policy. Leaving auto-pause resyncs
// from the host exactly like Resume. Returns true when the flag changed.
func (c *Controller) SetAutoPaused(on bool) bool {
	if c.autoPaused == on {
		return false
	}
	c.autoPaused = on
	if !on && !c.paused {
		c.resync()
	}
	return true
}

// UpdateSpeeds replaces the speed pair. It takes effect on the next Advance.
func (c *Controller) UpdateSpeeds(speeds SpeedPair) {
	c.speeds = speeds.Sanitize()
}

// SetOverflowProtection toggles the full-time reduction applied before writes.
func (c *Controller) SetOverflowProtection(on bool) {
	c.overflowProtection = on
}

// SkipToDay resets the clock to DayStart, writes it to the host, and clears
// storm and thunder only if they were set beforehand. The controller stays
// in Skipping until FinishSkip; a second request in the meantime is rejected.
func (c *Controller) SkipToDay() SkipResult {
	if c.skipping {
		return SkipResult{}
	}

	wasStorming := c.zone.Storming()
	wasThundering := c.zone.Thundering()

	c.skipping = true
	c.accumulated = Clock(DayStart)
	c.write(DayStart)
	c.rawLastWritten = DayStart
	c.refreshPhase()

	if wasStorming {
		c.zone.SetStorming(false)
	}
	if wasThundering {
		c.zone.SetThundering(false)
	}
	return SkipResult{Accepted: true, ClearedStorm: wasStorming, ClearedThunder: wasThundering}
}

// FinishSkip ends the settle period. The zone returns to Running, or stays
// Paused if a pause was requested while skipping.
func (c *Controller) FinishSkip() bool {
	if !c.skipping {
		return false
	}
	c.skipping = false
	return true
}

// Phase returns the cached phase, recomputing it from the last written raw
// time when the cache is older than domain.PhaseCacheTTL.
func (c *Controller) Phase() Phase {
	if domain.Since(c.clock, c.phaseAt) > domain.PhaseCacheTTL {
		c.refreshPhase()
	}
	return c.phase
}

// IsDay reports whether the zone is in its day phase.
func (c *Controller) IsDay() bool {
	return c.Phase() == Day
}

// Status returns a snapshot of the controller and the host's raw time.
func (c *Controller) Status() Status {
	return Status{
		Speeds:      c.speeds,
		Phase:       c.Phase(),
		State:       c.State(),
		Paused:      c.paused,
		AutoPaused:  c.autoPaused,
		RawTime:     c.zone.RawTime(),
		LastWritten: c.rawLastWritten,
		Accumulated: float64(c.accumulated),
	}
}

// write pushes a time-of-day value to the host, first reducing the host's
// full elapsed counter when overflow protection is on. The accumulator is
// never truncated.
func (c *Controller) write(raw int64) {
	if c.overflowProtection {
		if full := c.zone.FullTime(); full > domain.OverflowThreshold {
			c.zone.SetFullTime(full % domain.OverflowThreshold)
		}
	}
	c.zone.SetRawTime(raw)
}

func (c *Controller) resync() {
	raw := floorMod(c.zone.RawTime(), DayLength)
	c.accumulated = Clock(raw)
	c.rawLastWritten = raw
	c.refreshPhase()
}

func (c *Controller) refreshPhase() {
	c.phase = PhaseOf(float64(c.rawLastWritten))
	c.phaseAt = c.clock.Now()
}
