// Package app holds the timetuner use cases: the zone registry, the sleep
// vote aggregation, operator commands and the simulation driver. Every
// controller and ballot is owned by one Service and mutated under its lock.
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/sleep"
	"github.com/aelexs/timetuner/internal/zonetime"
)

var tracer = otel.Tracer("timetuner/app")

var (
	driverTicksTotal  metric.Int64Counter
	zoneWritesTotal   metric.Int64Counter
	skipsTotal        metric.Int64Counter
	sleepVotesTotal   metric.Int64Counter
	tickDurationHisto metric.Float64Histogram
)

func init() {
	m := otel.Meter("timetuner/app")

	driverTicksTotal, _ = m.Int64Counter("timetuner_driver_ticks_total",
		metric.WithDescription("Total simulation driver ticks"))
	zoneWritesTotal, _ = m.Int64Counter("timetuner_zone_writes_total",
		metric.WithDescription("Total time-of-day writes pushed to host zones"))
	skipsTotal, _ = m.Int64Counter("timetuner_skips_total",
		metric.WithDescription("Total skip-to-day operations"))
	sleepVotesTotal, _ = m.Int64Counter("timetuner_sleep_votes_total",
		metric.WithDescription("Total bed-enter events by outcome"))
	tickDurationHisto, _ = m.Float64Histogram("timetuner_tick_duration_seconds",
		metric.WithDescription("Wall time spent in one driver tick"),
		metric.WithUnit("s"))
}

// Host is a zone as seen by the service: the time and weather capability
// plus the player signals the sleep aggregator needs.
type Host interface {
	zonetime.Zone
	// EligiblePlayers counts players online in the zone who are not exempt
	// from sleeping.
	EligiblePlayers() int
	// Sleeping reports whether the player is currently in a bed in the zone.
	Sleeping(player domain.PlayerID) bool
}

// Directory resolves zone identifiers to host zones.
type Directory interface {
	Zone(id domain.ZoneID) (Host, bool)
}

// NoticeKind identifies a message broadcast to a zone.
type NoticeKind string

const (
	NoticeNightSkipped NoticeKind = "sleep.skipped"
	NoticeVoteProgress NoticeKind = "sleep.progress"
)

// SkipReason records what triggered a skip-to-day.
type SkipReason string

const (
	SkipReasonSleep   SkipReason = "sleep"
	SkipReasonCommand SkipReason = "command"
)

// Notice is an event delivered to the players of a zone.
type Notice struct {
	Kind     NoticeKind
	Zone     domain.ZoneID
	ZoneName string
	Reason   SkipReason
	Votes    int
	Needed   int
}

// Notifier broadcasts notices to a zone. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// ZoneSnapshot is the operator state that survives restarts.
type ZoneSnapshot struct {
	Paused   bool
	Override *zonetime.SpeedPair
}

// SnapshotStore persists per-zone operator state.
type SnapshotStore interface {
	Save(ctx context.Context, id domain.ZoneID, snap ZoneSnapshot) error
	// Load returns nil, nil when nothing is stored for the zone.
	Load(ctx context.Context, id domain.ZoneID) (*ZoneSnapshot, error)
}

// ZoneSettings configures one zone.
type ZoneSettings struct {
	ID      domain.ZoneID
	Name    string
	Enabled bool
	// Speeds overrides the global pair when non-nil.
	Speeds                 *zonetime.SpeedPair
	AllowThunderstormSleep bool
}

// Settings is the runtime configuration of the service.
type Settings struct {
	Speeds             zonetime.SpeedPair
	Sleep              sleep.Policy
	AllowSleepSkip     bool
	TickFrequency      int
	AutoPauseEmpty     bool
	OverflowProtection bool
	Zones              []ZoneSettings
}

func (s Settings) sanitize() Settings {
	s.Speeds = s.Speeds.Sanitize()
	s.Sleep = s.Sleep.Sanitize()
	if s.TickFrequency < 1 {
		s.TickFrequency = domain.DefaultTickFrequency
	}
	return s
}

// Config holds the dependencies for Service.
type Config struct {
	Directory Directory
	Notifier  Notifier
	Snapshots SnapshotStore
	Clock     domain.Clock
	Logger    *slog.Logger
}

type managedZone struct {
	id           domain.ZoneID
	name         string
	host         Host
	ctl          *zonetime.Controller
	override     *zonetime.SpeedPair
	allowThunder bool
	// epoch distinguishes registrations of the same id. Deferred events
	// carry it and are dropped when it no longer matches.
	epoch uint64
}

// sleepWindow reports whether votes may count: at night, or during a
// thunderstorm when the zone allows thunderstorm sleep.
func (z *managedZone) sleepWindow() bool {
	return !z.ctl.IsDay() || (z.allowThunder && z.host.Thundering())
}

func (z *managedZone) speeds(global zonetime.SpeedPair) zonetime.SpeedPair {
	if z.override != nil {
		return *z.override
	}
	return global
}

// Service is the single owner of every zone controller and sleep ballot.
type Service struct {
	directory Directory
	notifier  Notifier
	snapshots SnapshotStore
	clock     domain.Clock
	logger    *slog.Logger

	mu         sync.Mutex
	settings   Settings
	zones      map[domain.ZoneID]*managedZone
	order      []domain.ZoneID
	ballots    map[domain.ZoneID]*sleep.Ballot
	tick       uint64
	deferred   map[uint64][]deferredEvent
	epochs     uint64
	lastReload time.Time
}

// NewService creates a Service with no managed zones. Call ApplyConfig to
// load settings and register the configured zones.
func NewService(cfg Config) *Service {
	s := &Service{
		directory: cfg.Directory,
		notifier:  cfg.Notifier,
		snapshots: cfg.Snapshots,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		zones:     make(map[domain.ZoneID]*managedZone),
		ballots:   make(map[domain.ZoneID]*sleep.Ballot),
		deferred:  make(map[uint64][]deferredEvent),
		settings: Settings{
			Speeds:             zonetime.SpeedPair{Day: domain.DefaultDaySpeed, Night: domain.DefaultNightSpeed},
			Sleep:              sleep.Policy{Percentage: domain.DefaultSleepPercentage, RequiredPlayers: domain.DefaultRequiredPlayers},
			AllowSleepSkip:     true,
			TickFrequency:      domain.DefaultTickFrequency,
			OverflowProtection: true,
		},
	}
	if s.clock == nil {
		s.clock = domain.RealClock{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// TickInterval is the wall time between driver ticks.
func (s *Service) TickInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.settings.TickFrequency) * domain.HostTickDuration
}

// notify delivers notices outside the service lock.
func (s *Service) notify(ctx context.Context, notices []Notice) {
	if s.notifier == nil {
		return
	}
	for _, n := range notices {
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.WarnContext(ctx, "notice delivery failed",
				"zone_id", n.Zone.String(), "kind", string(n.Kind), "error", err)
		}
	}
}

type pendingSave struct {
	id   domain.ZoneID
	snap ZoneSnapshot
}

// persist writes snapshots outside the service lock. Failures are logged;
// the in-memory state stays authoritative.
func (s *Service) persist(ctx context.Context, saves []pendingSave) {
	if s.snapshots == nil {
		return
	}
	for _, p := range saves {
		if err := s.snapshots.Save(ctx, p.id, p.snap); err != nil {
			s.logger.WarnContext(ctx, "snapshot save failed",
				"zone_id", p.id.String(), "error", err)
		}
	}
}

func (z *managedZone) snapshot() pendingSave {
	snap := ZoneSnapshot{Paused: z.ctl.IsPaused()}
	if z.override != nil {
		o := *z.override
		snap.Override = &o
	}
	return pendingSave{id: z.id, snap: snap}
}
