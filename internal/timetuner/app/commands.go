package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/observability"
	"github.com/aelexs/timetuner/internal/zonetime"
)

// Target selects the zones an operator command applies to.
type Target struct {
	zone domain.ZoneID
	all  bool
}

// AllZones targets every managed zone.
var AllZones = Target{all: true}

// ZoneTarget targets a single zone.
func ZoneTarget(id domain.ZoneID) Target { return Target{zone: id} }

// IsAll reports whether the target covers every managed zone.
func (t Target) IsAll() bool { return t.all }

func (t Target) String() string {
	if t.all {
		return "all"
	}
	return t.zone.String()
}

// CommandResult reports the effect of a command on one zone.
type CommandResult struct {
	Zone    domain.ZoneID
	Name    string
	Changed bool
}

// ZoneStatus is the operator view of a managed zone.
type ZoneStatus struct {
	ID       domain.ZoneID
	Name     string
	Override bool
	Votes    int
	Eligible int
	zonetime.Status
}

// resolve returns the zones selected by t. Callers hold s.mu.
func (s *Service) resolve(t Target) ([]*managedZone, error) {
	if t.all {
		zones := make([]*managedZone, 0, len(s.order))
		for _, id := range s.order {
			zones = append(zones, s.zones[id])
		}
		return zones, nil
	}
	z, ok := s.zones[t.zone]
	if !ok {
		return nil, fmt.Errorf("zone %s: %w", t.zone, domain.ErrZoneNotManaged)
	}
	return []*managedZone{z}, nil
}

// Pause stops the clock of the targeted zones.
func (s *Service) Pause(ctx context.Context, t Target) ([]CommandResult, error) {
	return s.setPaused(ctx, t, true)
}

// Resume restarts the clock of the targeted zones, resynchronized from the
// host's current time.
func (s *Service) Resume(ctx context.Context, t Target) ([]CommandResult, error) {
	return s.setPaused(ctx, t, false)
}

func (s *Service) setPaused(ctx context.Context, t Target, paused bool) ([]CommandResult, error) {
	op := "zone.resume"
	if paused {
		op = "zone.pause"
	}
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("target", t.String())))
	defer span.End()

	s.mu.Lock()
	zones, err := s.resolve(t)
	if err != nil {
		s.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	results := make([]CommandResult, 0, len(zones))
	var saves []pendingSave
	for _, z := range zones {
		var changed bool
		if paused {
			changed = z.ctl.Pause()
		} else {
			changed = z.ctl.Resume()
		}
		if changed {
			saves = append(saves, z.snapshot())
		}
		results = append(results, CommandResult{Zone: z.id, Name: z.name, Changed: changed})
	}
	s.mu.Unlock()

	s.persist(ctx, saves)
	observability.WithTraceID(ctx, s.logger).InfoContext(ctx, op,
		"target", t.String(), "changed", len(saves))
	return results, nil
}

// SkipToDay forces the targeted zones to the start of day. A zone that is
// still settling from a previous skip reports Changed=false.
func (s *Service) SkipToDay(ctx context.Context, t Target) ([]CommandResult, error) {
	ctx, span := tracer.Start(ctx, "zone.skip", trace.WithAttributes(attribute.String("target", t.String())))
	defer span.End()

	s.mu.Lock()
	zones, err := s.resolve(t)
	if err != nil {
		s.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	results := make([]CommandResult, 0, len(zones))
	var notices []Notice
	for _, z := range zones {
		n, ok := s.skipLocked(z, SkipReasonCommand)
		if ok {
			notices = append(notices, n)
		}
		results = append(results, CommandResult{Zone: z.id, Name: z.name, Changed: ok})
	}
	s.mu.Unlock()

	for range notices {
		skipsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(SkipReasonCommand))))
	}
	s.notify(ctx, notices)
	observability.WithTraceID(ctx, s.logger).InfoContext(ctx, "zone.skip",
		"target", t.String(), "skipped", len(notices))
	return results, nil
}

// skipLocked performs a skip-to-day on z, schedules the end of the settle
// period and clears the zone's ballot. Callers hold s.mu.
func (s *Service) skipLocked(z *managedZone, reason SkipReason) (Notice, bool) {
	res := z.ctl.SkipToDay()
	if !res.Accepted {
		return Notice{}, false
	}
	s.scheduleLocked(domain.SkipSettleTicks, deferredEvent{kind: eventFinishSkip, zone: z.id, epoch: z.epoch})
	if b, ok := s.ballots[z.id]; ok {
		b.Clear()
	}
	observability.WithZone(s.logger, z.id.String(), z.name).Debug("skip to day",
		"reason", string(reason),
		"cleared_storm", res.ClearedStorm,
		"cleared_thunder", res.ClearedThunder,
	)
	return Notice{Kind: NoticeNightSkipped, Zone: z.id, ZoneName: z.name, Reason: reason}, true
}

// Status returns the state of one zone.
func (s *Service) Status(_ context.Context, id domain.ZoneID) (ZoneStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.zones[id]
	if !ok {
		return ZoneStatus{}, fmt.Errorf("status of %s: %w", id, domain.ErrZoneNotManaged)
	}
	return s.statusLocked(z), nil
}

// List returns the state of every managed zone in registration order.
func (s *Service) List(_ context.Context) []ZoneStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ZoneStatus, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.statusLocked(s.zones[id]))
	}
	return out
}

// Settings returns the active global settings.
func (s *Service) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Service) statusLocked(z *managedZone) ZoneStatus {
	st := ZoneStatus{
		ID:       z.id,
		Name:     z.name,
		Override: z.override != nil,
		Eligible: z.host.EligiblePlayers(),
		Status:   z.ctl.Status(),
	}
	if b, ok := s.ballots[z.id]; ok {
		st.Votes = b.Len()
	}
	return st
}
