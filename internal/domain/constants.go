package domain

import "time"

// Simulation constants. Tick counts are driver ticks unless stated otherwise.
const (
	// HostTickDuration is one tick of the host's real-time clock (20 ticks per second).
	HostTickDuration = 50 * time.Millisecond

	// SkipSettleTicks is how long a zone stays in the skipping state after a
	// skip-to-day so host side effects (weather clearing) can settle.
	SkipSettleTicks = 2

	// SleepRecheckTicks delays the second evaluation of a fresh sleep vote.
	SleepRecheckTicks = 1

	// PhaseCacheTTL bounds how stale a cached day/night answer may be.
	PhaseCacheTTL = 50 * time.Millisecond

	// OverflowThreshold is the host full-time value (72 in-game days) above
	// which the counter is reduced modulo itself before a write.
	OverflowThreshold int64 = 1_728_000

	// ConfigReloadCooldown rejects reloads issued faster than this.
	ConfigReloadCooldown = 1 * time.Second
)

// Compiled configuration defaults.
const (
	DefaultDaySpeed        = 0.5
	DefaultNightSpeed      = 1.0
	DefaultSleepPercentage = 0.5
	DefaultRequiredPlayers = 3
	DefaultTickFrequency   = 1
)

// Timeout contracts.
const (
	RedisTimeout = 2 * time.Second // Max time for Redis operations

	// Graceful shutdown
	GracefulShutdownTimeout = 30 * time.Second
	ShutdownDrainDelay      = 2 * time.Second
	ShutdownHTTPTimeout     = 10 * time.Second
	ShutdownOTELTimeout     = 5 * time.Second
)

// BedEnterResult is the host's classification of a bed-enter attempt.
// The sleep aggregator treats it as an opaque reason code.
type BedEnterResult string

const (
	BedEnterOK              BedEnterResult = "ok"
	BedEnterNotPossibleNow  BedEnterResult = "not_possible_now"
	BedEnterNotPossibleHere BedEnterResult = "not_possible_here"
	BedEnterTooFarAway      BedEnterResult = "too_far_away"
	BedEnterObstructed      BedEnterResult = "obstructed"
	BedEnterNotSafe         BedEnterResult = "not_safe"
	BedEnterOtherProblem    BedEnterResult = "other_problem"
)

// IsValidBedEnterResult checks if a result code is one the host may send.
func IsValidBedEnterResult(r BedEnterResult) bool {
	switch r {
	case BedEnterOK, BedEnterNotPossibleNow, BedEnterNotPossibleHere,
		BedEnterTooFarAway, BedEnterObstructed, BedEnterNotSafe, BedEnterOtherProblem:
		return true
	}
	return false
}
