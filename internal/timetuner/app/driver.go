package app

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/timetuner/internal/domain"
)

type eventKind uint8

const (
	eventFinishSkip eventKind = iota + 1
	eventSleepRecheck
)

// deferredEvent is work scheduled for a later driver tick. It carries ids,
// not references: the zone and ballot are looked up when the event fires and
// a missing one, or a zone re-registered since (different epoch), turns the
// event into a no-op.
type deferredEvent struct {
	kind   eventKind
	zone   domain.ZoneID
	epoch  uint64
	player domain.PlayerID
}

// scheduleLocked queues ev to run after delay driver ticks. Callers hold s.mu.
func (s *Service) scheduleLocked(delay int, ev deferredEvent) {
	due := s.tick + uint64(max(delay, 1))
	s.deferred[due] = append(s.deferred[due], ev)
}

// TickStats summarizes one driver tick.
type TickStats struct {
	Tick     uint64
	Writes   int
	Deferred int
}

// Tick runs one simulation step: due sleep rechecks first, then the
// empty-zone policy, then one Advance per zone in registration order, then
// due skip completions. Finishing a skip after the advance means a skip
// settling over SkipSettleTicks suppresses exactly that many advances.
func (s *Service) Tick(ctx context.Context) TickStats {
	start := s.clock.Now()

	s.mu.Lock()
	s.tick++
	stats := TickStats{Tick: s.tick}

	due := s.deferred[s.tick]
	delete(s.deferred, s.tick)
	var notices []Notice
	for _, ev := range due {
		if ev.kind == eventFinishSkip {
			continue
		}
		if n, ok := s.fireLocked(ev); ok {
			notices = append(notices, n)
		}
	}
	stats.Deferred = len(due)

	delta := float64(s.settings.TickFrequency)
	for _, id := range s.order {
		z := s.zones[id]
		z.ctl.SetAutoPaused(s.settings.AutoPauseEmpty && !z.host.Occupied())
		if z.ctl.Advance(delta) {
			stats.Writes++
		}
	}
	for _, ev := range due {
		if ev.kind == eventFinishSkip {
			s.fireLocked(ev)
		}
	}
	s.mu.Unlock()

	driverTicksTotal.Add(ctx, 1)
	if stats.Writes > 0 {
		zoneWritesTotal.Add(ctx, int64(stats.Writes))
	}
	for _, n := range notices {
		if n.Kind == NoticeNightSkipped {
			skipsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(n.Reason))))
		}
	}
	tickDurationHisto.Record(ctx, domain.Since(s.clock, start).Seconds())
	s.notify(ctx, notices)
	return stats
}

// fireLocked runs one deferred event. Callers hold s.mu.
func (s *Service) fireLocked(ev deferredEvent) (Notice, bool) {
	z, ok := s.zones[ev.zone]
	if !ok || z.epoch != ev.epoch {
		return Notice{}, false
	}
	switch ev.kind {
	case eventFinishSkip:
		z.ctl.FinishSkip()
	case eventSleepRecheck:
		b, ok := s.ballots[ev.zone]
		if !ok || !b.Has(ev.player) {
			return Notice{}, false
		}
		if !z.host.Sleeping(ev.player) {
			b.Remove(ev.player)
			return Notice{}, false
		}
		if z.ctl.IsSkipping() || !s.settings.AllowSleepSkip || !z.sleepWindow() {
			return Notice{}, false
		}
		if n, skipped := s.evaluateLocked(z, b); skipped {
			return n, true
		}
	}
	return Notice{}, false
}

// Run drives Tick from a ticker until ctx is done. The interval follows
// the configured tick frequency and is re-read after every tick so reloads
// take effect without a restart.
func (s *Service) Run(ctx context.Context) error {
	interval := s.TickInterval()
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "simulation driver started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "simulation driver stopped")
			return nil
		case <-ticker.C():
			s.Tick(ctx)
			if next := s.TickInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}
