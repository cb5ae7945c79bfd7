// Package zonetime holds the per-zone time simulation: the fractional clock
// accumulator, the day/night phase windows and the Controller state machine
// that advances one zone's clock and writes it back to the host.
//
// Nothing here locks. A Controller is confined to its owner (the registry in
// internal/timetuner/app), which serializes every call.
package zonetime

import "math"

// Phase window constants, in host ticks.
const (
	DayLength  int64 = 24000
	DayStart   int64 = 0
	NightStart int64 = 12000
)

// Phase is the derived day/night state of a clock value.
type Phase uint8

const (
	Day Phase = iota
	Night
)

func (p Phase) String() string {
	if p == Day {
		return "day"
	}
	return "night"
}

// Clock is the accumulated simulated ticks of a zone since simulation start.
// It is never wrapped; time of day is computed on read modulo DayLength, so
// sub-tick speeds keep accumulating instead of rounding away every tick.
type Clock float64

// FromRaw builds a Clock from a host raw time value, normalized into one day.
func FromRaw(raw int64) Clock {
	return Clock(floorMod(raw, DayLength))
}

// Add returns the clock advanced by delta ticks.
func (c Clock) Add(delta float64) Clock {
	return c + Clock(delta)
}

// Since returns the difference c - other in ticks.
func (c Clock) Since(other Clock) float64 {
	return float64(c - other)
}

// Ticks returns the floor of the accumulated value, for integer host writes.
func (c Clock) Ticks() int64 {
	return int64(math.Floor(float64(c)))
}

// TimeOfDay returns the position within the current day, in [0, DayLength).
func (c Clock) TimeOfDay() float64 {
	tod := math.Mod(float64(c), float64(DayLength))
	if tod < 0 {
		tod += float64(DayLength)
	}
	return tod
}

// Between reports whether the time of day lies in the half-open window
// [start, end). Windows with start > end wrap around midnight.
func (c Clock) Between(start, end Clock) bool {
	tod := c.TimeOfDay()
	s := start.TimeOfDay()
	e := end.TimeOfDay()
	if s < e {
		return tod >= s && tod < e
	}
	return tod >= s || tod < e
}

// Phase returns the phase of the clock's time of day.
func (c Clock) Phase() Phase {
	return PhaseOf(float64(c))
}

// PhaseOf returns Day for values whose time of day is in [DayStart, NightStart)
// and Night otherwise.
func PhaseOf(v float64) Phase {
	if Clock(v).Between(Clock(DayStart), Clock(NightStart)) {
		return Day
	}
	return Night
}

func floorMod(v, m int64) int64 {
	r := v % m
	if r < 0 {
		r += m
	}
	return r
}
