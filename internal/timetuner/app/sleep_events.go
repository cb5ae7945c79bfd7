package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/sleep"
)

// VoteOutcome classifies a bed-enter event.
type VoteOutcome string

const (
	VoteAccepted     VoteOutcome = "accepted"
	VoteBlocked      VoteOutcome = "blocked"
	VoteSkipDisabled VoteOutcome = "skip_disabled"
	VoteNotNight     VoteOutcome = "not_night"
	VoteSkipping     VoteOutcome = "skipping"
)

// VoteResult reports what a bed-enter event did.
type VoteResult struct {
	Outcome VoteOutcome
	// Skipped is true when this vote carried the ballot.
	Skipped bool
	Votes   int
	Needed  int
}

// OnBedEnter handles a player entering a bed. An accepted vote is evaluated
// immediately and re-evaluated one driver tick later, once the host has
// settled the player's sleeping state.
func (s *Service) OnBedEnter(ctx context.Context, zone domain.ZoneID, player domain.PlayerID, result domain.BedEnterResult) (VoteResult, error) {
	ctx, span := tracer.Start(ctx, "sleep.bed_enter", trace.WithAttributes(
		attribute.String("zone.id", zone.String()),
		attribute.String("bed.result", string(result)),
	))
	defer span.End()

	if !domain.IsValidBedEnterResult(result) {
		err := fmt.Errorf("%w: unknown bed result %q", domain.ErrInvalidInput, result)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return VoteResult{}, err
	}

	s.mu.Lock()
	z, ok := s.zones[zone]
	if !ok {
		s.mu.Unlock()
		err := fmt.Errorf("bed enter in %s: %w", zone, domain.ErrZoneNotManaged)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return VoteResult{}, err
	}
	vr := s.voteLocked(z, player, result)
	var notices []Notice
	if vr.Outcome == VoteAccepted {
		b := s.ballots[zone]
		b.Add(player)
		n, skipped := s.evaluateLocked(z, b)
		vr.Skipped = skipped
		vr.Votes = b.Len()
		vr.Needed = s.settings.Sleep.Needed(z.host.EligiblePlayers())
		if skipped {
			vr.Votes = 0
		}
		notices = append(notices, n)
		s.scheduleLocked(domain.SleepRecheckTicks, deferredEvent{kind: eventSleepRecheck, zone: zone, epoch: z.epoch, player: player})
	}
	s.mu.Unlock()

	sleepVotesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(vr.Outcome))))
	if vr.Skipped {
		skipsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(SkipReasonSleep))))
	}
	span.SetAttributes(attribute.String("vote.outcome", string(vr.Outcome)), attribute.Bool("vote.skipped", vr.Skipped))
	s.notify(ctx, notices)
	return vr, nil
}

// voteLocked decides whether a bed-enter counts as a vote and makes sure the
// zone's ballot exists when it does. Callers hold s.mu.
func (s *Service) voteLocked(z *managedZone, player domain.PlayerID, result domain.BedEnterResult) VoteResult {
	switch {
	case !s.settings.AllowSleepSkip:
		return VoteResult{Outcome: VoteSkipDisabled}
	case z.ctl.IsSkipping():
		return VoteResult{Outcome: VoteSkipping}
	case sleep.Blocked(result):
		return VoteResult{Outcome: VoteBlocked}
	case !z.sleepWindow():
		return VoteResult{Outcome: VoteNotNight}
	}
	if _, ok := s.ballots[z.id]; !ok {
		s.ballots[z.id] = sleep.NewBallot()
	}
	return VoteResult{Outcome: VoteAccepted}
}

// evaluateLocked applies the sleep policy to the zone's ballot and skips the
// night when it carries. The returned notice is either the skip broadcast or
// a progress update. Callers hold s.mu.
func (s *Service) evaluateLocked(z *managedZone, b *sleep.Ballot) (Notice, bool) {
	online := z.host.EligiblePlayers()
	votes := b.Len()
	if s.settings.Sleep.ShouldSkip(votes, online) {
		if n, ok := s.skipLocked(z, SkipReasonSleep); ok {
			n.Votes = votes
			n.Needed = s.settings.Sleep.Needed(online)
			return n, true
		}
	}
	return Notice{
		Kind:     NoticeVoteProgress,
		Zone:     z.id,
		ZoneName: z.name,
		Votes:    votes,
		Needed:   s.settings.Sleep.Needed(online),
	}, false
}

// OnBedLeave drops the player's vote. It never triggers a skip.
func (s *Service) OnBedLeave(ctx context.Context, zone domain.ZoneID, player domain.PlayerID) error {
	return s.dropVote(ctx, "sleep.bed_leave", zone, player)
}

// OnPlayerRemoved drops the vote of a player who left the zone. It never
// triggers a skip.
func (s *Service) OnPlayerRemoved(ctx context.Context, zone domain.ZoneID, player domain.PlayerID) error {
	return s.dropVote(ctx, "sleep.player_removed", zone, player)
}

func (s *Service) dropVote(ctx context.Context, op string, zone domain.ZoneID, player domain.PlayerID) error {
	_, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("zone.id", zone.String())))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.zones[zone]; !ok {
		err := fmt.Errorf("%s in %s: %w", op, zone, domain.ErrZoneNotManaged)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if b, ok := s.ballots[zone]; ok {
		span.SetAttributes(attribute.Bool("vote.removed", b.Remove(player)))
	}
	return nil
}
