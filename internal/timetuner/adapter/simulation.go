package adapter

import (
	"context"
	"fmt"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/timetuner/app"
)

// SleepEvents is the subset of app.Service that consumes player events.
type SleepEvents interface {
	OnBedEnter(ctx context.Context, zone domain.ZoneID, player domain.PlayerID, result domain.BedEnterResult) (app.VoteResult, error)
	OnBedLeave(ctx context.Context, zone domain.ZoneID, player domain.PlayerID) error
	OnPlayerRemoved(ctx context.Context, zone domain.ZoneID, player domain.PlayerID) error
}

var _ SleepEvents = (*app.Service)(nil)

// Simulation applies player events to the in-memory worlds and forwards them
// to the sleep aggregator, in the order a game server would.
type Simulation struct {
	worlds *Worlds
	events SleepEvents
}

// NewSimulation creates a Simulation.
func NewSimulation(worlds *Worlds, events SleepEvents) *Simulation {
	return &Simulation{worlds: worlds, events: events}
}

func (s *Simulation) world(zone domain.ZoneID) (*World, error) {
	w, ok := s.worlds.World(zone)
	if !ok {
		return nil, fmt.Errorf("world %s: %w", zone, domain.ErrZoneNotManaged)
	}
	return w, nil
}

// Join places a player in a world. Exempt players are ignored by the sleep
// threshold.
func (s *Simulation) Join(_ context.Context, zone domain.ZoneID, player domain.PlayerID, exempt bool) error {
	w, err := s.world(zone)
	if err != nil {
		return err
	}
	w.Join(player, exempt)
	return nil
}

// Quit removes a player from a world and drops any sleep vote.
func (s *Simulation) Quit(ctx context.Context, zone domain.ZoneID, player domain.PlayerID) error {
	w, err := s.world(zone)
	if err != nil {
		return err
	}
	if !w.Quit(player) {
		return fmt.Errorf("%w: player %s is not in %s", domain.ErrInvalidInput, player, zone)
	}
	return s.events.OnPlayerRemoved(ctx, zone, player)
}

// EnterBed puts a player to bed when the host accepted the attempt and
// reports the attempt to the aggregator.
func (s *Simulation) EnterBed(ctx context.Context, zone domain.ZoneID, player domain.PlayerID, result domain.BedEnterResult) (app.VoteResult, error) {
	w, err := s.world(zone)
	if err != nil {
		return app.VoteResult{}, err
	}
	if !domain.IsValidBedEnterResult(result) {
		return app.VoteResult{}, fmt.Errorf("%w: unknown bed result %q", domain.ErrInvalidInput, result)
	}
	if !w.SetSleeping(player, result == domain.BedEnterOK) {
		return app.VoteResult{}, fmt.Errorf("%w: player %s is not in %s", domain.ErrInvalidInput, player, zone)
	}
	return s.events.OnBedEnter(ctx, zone, player, result)
}

// LeaveBed wakes a player and drops their vote.
func (s *Simulation) LeaveBed(ctx context.Context, zone domain.ZoneID, player domain.PlayerID) error {
	w, err := s.world(zone)
	if err != nil {
		return err
	}
	if !w.SetSleeping(player, false) {
		return fmt.Errorf("%w: player %s is not in %s", domain.ErrInvalidInput, player, zone)
	}
	return s.events.OnBedLeave(ctx, zone, player)
}

// SetWeather changes a world's weather.
func (s *Simulation) SetWeather(_ context.Context, zone domain.ZoneID, storming, thundering bool) error {
	w, err := s.world(zone)
	if err != nil {
		return err
	}
	w.SetWeather(storming, thundering)
	return nil
}
