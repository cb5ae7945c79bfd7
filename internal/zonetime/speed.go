package zonetime

import "math"

// SpeedPair is the simulated ticks advanced per driver tick in each phase.
type SpeedPair struct {
	Day   float64
	Night float64
}

// For returns the speed that applies in phase p.
func (s SpeedPair) For(p Phase) float64 {
	if p == Day {
		return s.Day
	}
	return s.Night
}

// Valid reports whether both speeds are finite and non-negative.
func (s SpeedPair) Valid() bool {
	return validSpeed(s.Day) && validSpeed(s.Night)
}

// Sanitize replaces every non-finite or negative speed with 0 (paused).
func (s SpeedPair) Sanitize() SpeedPair {
	return SpeedPair{Day: SanitizeSpeed(s.Day), Night: SanitizeSpeed(s.Night)}
}

// SanitizeSpeed clamps v to a usable speed; NaN, infinities and negatives become 0.
func SanitizeSpeed(v float64) float64 {
	if !validSpeed(v) {
		return 0
	}
	return v
}

func validSpeed(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
