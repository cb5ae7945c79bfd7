package adapter

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/timetuner/internal/domain"
	redisclient "github.com/aelexs/timetuner/internal/redis"
	"github.com/aelexs/timetuner/internal/timetuner/app"
	"github.com/aelexs/timetuner/internal/zonetime"
)

const (
	// zoneSnapshotPrefix is the Redis key prefix for per-zone operator state.
	// Key pattern: timetuner:zone:{zone_id}, a hash with fields paused, day
	// and night. day and night are present only when a speed override is set.
	zoneSnapshotPrefix = "timetuner:zone:"

	fieldPaused = "paused"
	fieldDay    = "day"
	fieldNight  = "night"
)

// Compile-time check: SnapshotStore satisfies app.SnapshotStore.
var _ app.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore persists zone pause flags and speed overrides in Redis.
type SnapshotStore struct {
	cmd redisclient.Cmdable
}

// NewSnapshotStore creates a SnapshotStore that uses cmd for Redis operations.
func NewSnapshotStore(cmd redisclient.Cmdable) *SnapshotStore {
	return &SnapshotStore{cmd: cmd}
}

func snapshotKey(id domain.ZoneID) string {
	return zoneSnapshotPrefix + id.String()
}

// Save replaces the stored snapshot of a zone.
func (s *SnapshotStore) Save(ctx context.Context, id domain.ZoneID, snap app.ZoneSnapshot) error {
	ctx, span := tracer.Start(ctx, "redis.snapshot.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "HSET"),
	)

	ctx, cancel := context.WithTimeout(ctx, domain.RedisTimeout)
	defer cancel()

	key := snapshotKey(id)
	_, err := s.cmd.TxPipelined(ctx, func(pipe redisclient.Pipeliner) error {
		pipe.HSet(ctx, key, fieldPaused, strconv.FormatBool(snap.Paused))
		if snap.Override != nil {
			pipe.HSet(ctx, key,
				fieldDay, strconv.FormatFloat(snap.Override.Day, 'g', -1, 64),
				fieldNight, strconv.FormatFloat(snap.Override.Night, 'g', -1, 64),
			)
		} else {
			pipe.HDel(ctx, key, fieldDay, fieldNight)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("save snapshot of %s: %w", id, err)
	}
	return nil
}

// Load returns the stored snapshot of a zone, or nil when none exists.
// Malformed fields are ignored rather than failing registration.
func (s *SnapshotStore) Load(ctx context.Context, id domain.ZoneID) (*app.ZoneSnapshot, error) {
	ctx, span := tracer.Start(ctx, "redis.snapshot.load")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "HGETALL"),
	)

	ctx, cancel := context.WithTimeout(ctx, domain.RedisTimeout)
	defer cancel()

	fields, err := s.cmd.HGetAll(ctx, snapshotKey(id)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load snapshot of %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	snap := &app.ZoneSnapshot{}
	snap.Paused, _ = strconv.ParseBool(fields[fieldPaused])

	day, dayErr := strconv.ParseFloat(fields[fieldDay], 64)
	night, nightErr := strconv.ParseFloat(fields[fieldNight], 64)
	if dayErr == nil && nightErr == nil {
		pair := zonetime.SpeedPair{Day: day, Night: night}
		if pair.Valid() {
			snap.Override = &pair
		}
	}
	return snap, nil
}
