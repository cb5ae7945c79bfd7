// Package zonetimetest provides test doubles for the zonetime package.
package zonetimetest

import (
	"sync"

	"github.com/aelexs/timetuner/internal/zonetime"
)

// FakeZone is an in-memory zonetime.Zone that records host writes.
type FakeZone struct {
	mu sync.Mutex

	Raw        int64
	Full       int64
	Occupants  int
	Storm      bool
	Thunder    bool
	RawWrites  []int64
	FullWrites []int64
	StormSets  int
	ThundSets  int
}

// NewFakeZone creates a FakeZone at the given raw time with one occupant.
func NewFakeZone(raw int64) *FakeZone {
	return &FakeZone{Raw: raw, Full: raw, Occupants: 1}
}

func (z *FakeZone) RawTime() int64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.Raw
}

func (z *FakeZone) SetRawTime(ticks int64) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.Raw = ticks
	z.RawWrites = append(z.RawWrites, ticks)
}

func (z *FakeZone) FullTime() int64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.Full
}

func (z *FakeZone) SetFullTime(ticks int64) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.Full = ticks
	z.FullWrites = append(z.FullWrites, ticks)
}

func (z *FakeZone) Occupied() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.Occupants > 0
}

func (z *FakeZone) Storming() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.Storm
}

func (z *FakeZone) SetStorming(on bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.Storm = on
	z.StormSets++
}

func (z *FakeZone) Thundering() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.Thunder
}

func (z *FakeZone) SetThundering(on bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.Thunder = on
	z.ThundSets++
}

// Writes returns a copy of the raw-time writes seen so far.
func (z *FakeZone) Writes() []int64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return append([]int64(nil), z.RawWrites...)
}

var _ zonetime.Zone = (*FakeZone)(nil)
