package zonetime

// Zone is the narrow capability a Controller needs from the host world.
// Implementations live outside the core (see internal/timetuner/adapter);
// the core never holds the host's native world object.
type Zone interface {
	// RawTime returns the host's time-of-day field.
	RawTime() int64
	SetRawTime(ticks int64)

	// FullTime returns the host's total elapsed-time counter.
	FullTime() int64
	SetFullTime(ticks int64)

	// Occupied reports whether any eligible player is in the zone.
	Occupied() bool

	Storming() bool
	SetStorming(on bool)
	Thundering() bool
	SetThundering(on bool)
}
