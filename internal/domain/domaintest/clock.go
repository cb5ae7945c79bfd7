// Package domaintest provides test doubles for the domain package.
package domaintest

import (
	"sync"
	"time"

	"github.com/aelexs/timetuner/internal/domain"
)

// FakeClock is a deterministic wall clock. Time only moves on Advance or
// Set, and tickers fire synchronously inside those calls.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	tickers []*FakeTicker
	// created is signalled once per NewTicker call.
	created chan struct{}
}

// NewFakeClock creates a FakeClock set to t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t, created: make(chan struct{}, 16)}
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NewTicker registers a ticker that fires when Advance crosses its deadline.
func (c *FakeClock) NewTicker(d time.Duration) domain.Ticker {
	if d <= 0 {
		panic("domaintest: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	t := &FakeTicker{clock: c, ch: make(chan time.Time, 1), interval: d, next: c.current.Add(d)}
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()

	select {
	case c.created <- struct{}{}:
	default:
	}
	return t
}

// WaitForTicker blocks until a goroutine has called NewTicker, so a test can
// Advance without racing the ticker's creation.
func (c *FakeClock) WaitForTicker(timeout time.Duration) bool {
	select {
	case <-c.created:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Advance moves the clock forward by d and fires every ticker whose deadline
// was reached. A ticker spanning several intervals fires once per interval
// but its one-slot channel drops what the receiver has not drained.
func (c *FakeClock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

// Set changes the fake current time.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
	for _, tk := range c.tickers {
		for !tk.stopped && !tk.next.After(t) {
			select {
			case tk.ch <- tk.next:
			default:
			}
			tk.next = tk.next.Add(tk.interval)
		}
	}
}

// FakeTicker is the Ticker returned by FakeClock.
type FakeTicker struct {
	clock    *FakeClock
	ch       chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

// C returns the tick channel.
func (t *FakeTicker) C() <-chan time.Time { return t.ch }

// Reset restarts the ticker with a new interval from the current fake time.
func (t *FakeTicker) Reset(d time.Duration) {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.interval = d
	t.next = t.clock.current.Add(d)
	t.stopped = false
}

// Stop prevents further ticks.
func (t *FakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

var (
	_ domain.Clock  = (*FakeClock)(nil)
	_ domain.Ticker = (*FakeTicker)(nil)
)
