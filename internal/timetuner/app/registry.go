package app

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/observability"
	"github.com/aelexs/timetuner/internal/zonetime"
)

// ReloadResult reports how ApplyConfig changed the set of managed zones.
type ReloadResult struct {
	Added   []domain.ZoneID
	Removed []domain.ZoneID
	Updated []domain.ZoneID
	Failed  map[domain.ZoneID]error
}

// RegisterZone starts managing a zone. Stored operator state is restored:
// a persisted pause is re-applied and a persisted speed override replaces
// the configured one.
func (s *Service) RegisterZone(ctx context.Context, zs ZoneSettings) (zonetime.Status, error) {
	ctx, span := tracer.Start(ctx, "zone.register",
		trace.WithAttributes(attribute.String("zone.id", zs.ID.String())))
	defer span.End()

	fail := func(err error) (zonetime.Status, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zonetime.Status{}, err
	}

	if zs.ID.IsZero() {
		return fail(fmt.Errorf("%w: zone id is required", domain.ErrInvalidInput))
	}
	if !zs.Enabled {
		return fail(fmt.Errorf("register %s: %w", zs.ID, domain.ErrZoneDisabled))
	}

	s.mu.Lock()
	_, exists := s.zones[zs.ID]
	s.mu.Unlock()
	if exists {
		return fail(fmt.Errorf("register %s: %w", zs.ID, domain.ErrZoneAlreadyManaged))
	}
	host, ok := s.directory.Zone(zs.ID)
	if !ok {
		return fail(fmt.Errorf("%w: zone %s is not present on the host", domain.ErrInvalidInput, zs.ID))
	}

	var snap *ZoneSnapshot
	if s.snapshots != nil {
		var err error
		if snap, err = s.snapshots.Load(ctx, zs.ID); err != nil {
			// Registration proceeds without the stored state.
			s.logger.WarnContext(ctx, "snapshot load failed", "zone_id", zs.ID.String(), "error", err)
			snap = nil
		}
	}

	s.mu.Lock()
	if _, exists := s.zones[zs.ID]; exists {
		s.mu.Unlock()
		return fail(fmt.Errorf("register %s: %w", zs.ID, domain.ErrZoneAlreadyManaged))
	}
	z := &managedZone{
		id:           zs.ID,
		name:         zs.Name,
		host:         host,
		override:     copySpeeds(zs.Speeds),
		allowThunder: zs.AllowThunderstormSleep,
	}
	s.epochs++
	z.epoch = s.epochs
	if snap != nil && snap.Override != nil {
		z.override = copySpeeds(snap.Override)
	}
	z.ctl = zonetime.NewController(host, zonetime.Options{
		Speeds:             z.speeds(s.settings.Speeds),
		OverflowProtection: s.settings.OverflowProtection,
		Clock:              s.clock,
	})
	if snap != nil && snap.Paused {
		z.ctl.Pause()
	}
	s.zones[zs.ID] = z
	s.order = append(s.order, zs.ID)
	status := z.ctl.Status()
	s.mu.Unlock()

	logger := observability.WithZone(observability.WithTraceID(ctx, s.logger), zs.ID.String(), zs.Name)
	logger.InfoContext(ctx, "zone registered",
		"raw_time", status.RawTime,
		"paused", status.Paused,
	)
	return status, nil
}

// UnregisterZone stops managing a zone and discards its sleep ballot.
// Deferred work queued for the zone becomes a no-op.
func (s *Service) UnregisterZone(ctx context.Context, id domain.ZoneID) error {
	s.mu.Lock()
	if _, ok := s.zones[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("unregister %s: %w", id, domain.ErrZoneNotManaged)
	}
	delete(s.zones, id)
	delete(s.ballots, id)
	s.order = slices.DeleteFunc(s.order, func(z domain.ZoneID) bool { return z == id })
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "zone unregistered", "zone_id", id.String())
	return nil
}

// UpdateGlobalSpeeds replaces the default speed pair and applies it to every
// zone without an override.
func (s *Service) UpdateGlobalSpeeds(ctx context.Context, speeds zonetime.SpeedPair) error {
	if !speeds.Valid() {
		return fmt.Errorf("update global speeds: %w", domain.ErrInvalidSpeed)
	}

	s.mu.Lock()
	s.settings.Speeds = speeds
	for _, id := range s.order {
		if z := s.zones[id]; z.override == nil {
			z.ctl.UpdateSpeeds(speeds)
		}
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "global speeds updated", "day", speeds.Day, "night", speeds.Night)
	return nil
}

// UpdateZoneSpeeds sets a per-zone speed override.
func (s *Service) UpdateZoneSpeeds(ctx context.Context, id domain.ZoneID, speeds zonetime.SpeedPair) error {
	if !speeds.Valid() {
		return fmt.Errorf("update speeds of %s: %w", id, domain.ErrInvalidSpeed)
	}

	s.mu.Lock()
	z, ok := s.zones[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("update speeds of %s: %w", id, domain.ErrZoneNotManaged)
	}
	z.override = &speeds
	z.ctl.UpdateSpeeds(speeds)
	save := z.snapshot()
	s.mu.Unlock()

	s.persist(ctx, []pendingSave{save})
	s.logger.InfoContext(ctx, "zone speeds updated",
		"zone_id", id.String(), "day", speeds.Day, "night", speeds.Night)
	return nil
}

// Zones returns the managed zone ids in registration order.
func (s *Service) Zones() []domain.ZoneID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// ApplyConfig installs new settings at runtime. Zones that became disabled
// or disappeared are unregistered, new enabled zones are registered and the
// rest keep their controllers, so pause states survive. Configured speed
// overrides replace runtime ones and are persisted, so a stored runtime
// override the reload dropped does not return on restart. Calls closer together than
// domain.ConfigReloadCooldown are rejected with domain.ErrReloadThrottled.
func (s *Service) ApplyConfig(ctx context.Context, settings Settings) (ReloadResult, error) {
	ctx, span := tracer.Start(ctx, "config.apply")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)
	settings = settings.sanitize()

	s.mu.Lock()
	now := s.clock.Now()
	if !s.lastReload.IsZero() && now.Sub(s.lastReload) < domain.ConfigReloadCooldown {
		s.mu.Unlock()
		err := fmt.Errorf("apply config: %w", domain.ErrReloadThrottled)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ReloadResult{}, err
	}
	s.lastReload = now
	s.settings = settings

	desired := make(map[domain.ZoneID]ZoneSettings, len(settings.Zones))
	for _, zs := range settings.Zones {
		if zs.Enabled && !zs.ID.IsZero() {
			desired[zs.ID] = zs
		}
	}

	var (
		result ReloadResult
		saves  []pendingSave
	)
	for _, id := range s.order {
		z := s.zones[id]
		zs, keep := desired[id]
		if !keep {
			result.Removed = append(result.Removed, id)
			continue
		}
		z.name = zs.Name
		z.allowThunder = zs.AllowThunderstormSleep
		if !sameSpeeds(z.override, zs.Speeds) {
			z.override = copySpeeds(zs.Speeds)
			saves = append(saves, z.snapshot())
		}
		z.ctl.UpdateSpeeds(z.speeds(settings.Speeds))
		z.ctl.SetOverflowProtection(settings.OverflowProtection)
		result.Updated = append(result.Updated, id)
	}
	var toAdd []ZoneSettings
	for _, zs := range settings.Zones {
		if _, ok := desired[zs.ID]; !ok {
			continue
		}
		if _, managed := s.zones[zs.ID]; !managed {
			toAdd = append(toAdd, zs)
		}
	}
	s.mu.Unlock()

	s.persist(ctx, saves)
	for _, id := range result.Removed {
		if err := s.UnregisterZone(ctx, id); err != nil {
			logger.WarnContext(ctx, "unregister on reload failed", "zone_id", id.String(), "error", err)
		}
	}
	for _, zs := range toAdd {
		if _, err := s.RegisterZone(ctx, zs); err != nil {
			if result.Failed == nil {
				result.Failed = make(map[domain.ZoneID]error)
			}
			result.Failed[zs.ID] = err
			logger.WarnContext(ctx, "register on reload failed", "zone_id", zs.ID.String(), "error", err)
			continue
		}
		result.Added = append(result.Added, zs.ID)
	}

	span.SetAttributes(
		attribute.Int("zones.added", len(result.Added)),
		attribute.Int("zones.removed", len(result.Removed)),
	)
	logger.InfoContext(ctx, "config applied",
		"added", len(result.Added),
		"removed", len(result.Removed),
		"updated", len(result.Updated),
		"failed", len(result.Failed),
		"tick_frequency", settings.TickFrequency,
	)
	return result, nil
}

func sameSpeeds(a, b *zonetime.SpeedPair) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copySpeeds(p *zonetime.SpeedPair) *zonetime.SpeedPair {
	if p == nil {
		return nil
	}
	c := p.Sanitize()
	return &c
}
