package adapter

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/timetuner/app"
	"github.com/aelexs/timetuner/internal/zonetime"
)

// maxWorldMessages bounds the broadcast log kept per world.
const maxWorldMessages = 100

// Compile-time checks: Worlds is a zone directory and a broadcaster, World
// is a host zone.
var (
	_ app.Directory = (*Worlds)(nil)
	_ Broadcaster   = (*Worlds)(nil)
	_ app.Host      = (*World)(nil)
)

// Worlds is an in-memory host: a set of simulated zones with their own time,
// weather and players. It backs local mode and the event routes.
type Worlds struct {
	mu     sync.RWMutex
	worlds map[domain.ZoneID]*World
	order  []domain.ZoneID
}

// NewWorlds creates an empty host.
func NewWorlds() *Worlds {
	return &Worlds{worlds: make(map[domain.ZoneID]*World)}
}

// Create adds a world at the given raw time. Creating an existing id
// returns the existing world unchanged.
func (w *Worlds) Create(id domain.ZoneID, name string, raw int64) *World {
	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.worlds[id]; ok {
		return existing
	}
	world := &World{
		id:      id,
		name:    name,
		raw:     raw,
		full:    raw,
		players: make(map[domain.PlayerID]*player),
	}
	w.worlds[id] = world
	w.order = append(w.order, id)
	return world
}

// World returns the world with the given id.
func (w *Worlds) World(id domain.ZoneID) (*World, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	world, ok := w.worlds[id]
	return world, ok
}

// Zone implements app.Directory.
func (w *Worlds) Zone(id domain.ZoneID) (app.Host, bool) {
	world, ok := w.World(id)
	if !ok {
		return nil, false
	}
	return world, true
}

// List returns every world in creation order.
func (w *Worlds) List() []*World {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*World, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.worlds[id])
	}
	return out
}

// Broadcast appends text to the world's message log.
func (w *Worlds) Broadcast(_ context.Context, zone domain.ZoneID, text string) error {
	world, ok := w.World(zone)
	if !ok {
		return fmt.Errorf("broadcast to %s: %w", zone, domain.ErrZoneNotManaged)
	}
	world.mu.Lock()
	defer world.mu.Unlock()
	world.messages = append(world.messages, text)
	if n := len(world.messages); n > maxWorldMessages {
		world.messages = slices.Clone(world.messages[n-maxWorldMessages:])
	}
	return nil
}

type player struct {
	sleeping bool
	// exempt players never count towards the sleep threshold.
	exempt bool
}

// World is one simulated zone.
type World struct {
	id   domain.ZoneID
	name string

	mu         sync.Mutex
	raw        int64
	full       int64
	storming   bool
	thundering bool
	players    map[domain.PlayerID]*player
	messages   []string
}

// ID returns the world's zone id.
func (w *World) ID() domain.ZoneID { return w.id }

// Name returns the world's display name.
func (w *World) Name() string { return w.name }

func (w *World) RawTime() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.raw
}

// SetRawTime sets the time of day. The full elapsed counter moves forward by
// the same amount, wrapping through the next day when ticks is behind.
func (w *World) SetRawTime(ticks int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	diff := (ticks - w.raw) % zonetime.DayLength
	if diff < 0 {
		diff += zonetime.DayLength
	}
	w.full += diff
	w.raw = ticks
}

func (w *World) FullTime() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.full
}

func (w *World) SetFullTime(ticks int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.full = ticks
}

// Occupied reports whether any player is in the world.
func (w *World) Occupied() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.players) > 0
}

func (w *World) Storming() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.storming
}

func (w *World) SetStorming(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.storming = on
}

func (w *World) Thundering() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.thundering
}

func (w *World) SetThundering(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.thundering = on
}

// EligiblePlayers counts players who are not exempt from sleeping.
func (w *World) EligiblePlayers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, p := range w.players {
		if !p.exempt {
			n++
		}
	}
	return n
}

// Sleeping reports whether the player is in a bed in this world.
func (w *World) Sleeping(id domain.PlayerID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[id]
	return ok && p.sleeping
}

// Players returns the number of players in the world.
func (w *World) Players() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.players)
}

// Messages returns the broadcast log, oldest first.
func (w *World) Messages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.messages)
}

// Join adds a player, or updates the exempt flag of one already present.
func (w *World) Join(id domain.PlayerID, exempt bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.players[id]; ok {
		p.exempt = exempt
		return
	}
	w.players[id] = &player{exempt: exempt}
}

// Quit removes a player. Returns false if the player was not present.
func (w *World) Quit(id domain.PlayerID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	return true
}

// SetSleeping marks a present player as in or out of bed.
func (w *World) SetSleeping(id domain.PlayerID, on bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[id]
	if !ok {
		return false
	}
	p.sleeping = on
	return true
}

// SetWeather sets the storm and thunder flags together.
func (w *World) SetWeather(storming, thundering bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.storming = storming
	w.thundering = thundering
}
