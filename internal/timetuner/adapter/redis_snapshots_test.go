package adapter_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/timetuner/internal/domain"
	redisclient "github.com/aelexs/timetuner/internal/redis"
	"github.com/aelexs/timetuner/internal/timetuner/adapter"
	"github.com/aelexs/timetuner/internal/timetuner/app"
	"github.com/aelexs/timetuner/internal/zonetime"
)

func newTestSnapshotStore(t *testing.T) (*adapter.SnapshotStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redisclient.NewClient(redisclient.Config{
		Addr:    mr.Addr(),
		Timeout: 5 * time.Second,
	})
	t.Cleanup(func() {
		require.NoError(t, client.Close())
	})

	return adapter.NewSnapshotStore(client.RDB), mr
}

func TestSnapshotStore_Save(t *testing.T) {
	t.Run("writes pause flag and override", func(t *testing.T) {
		store, mr := newTestSnapshotStore(t)
		id := domain.GenerateZoneID()
		override := zonetime.SpeedPair{Day: 0.25, Night: 2}

		err := store.Save(context.Background(), id, app.ZoneSnapshot{Paused: true, Override: &override})
		require.NoError(t, err)

		key := "timetuner:zone:" + id.String()
		assert.Equal(t, "true", mr.HGet(key, "paused"))
		assert.Equal(t, "0.25", mr.HGet(key, "day"))
		assert.Equal(t, "2", mr.HGet(key, "night"))
	})

	t.Run("clearing the override removes the speed fields", func(t *testing.T) {
		store, mr := newTestSnapshotStore(t)
		ctx := context.Background()
		id := domain.GenerateZoneID()
		override := zonetime.SpeedPair{Day: 1, Night: 1}

		require.NoError(t, store.Save(ctx, id, app.ZoneSnapshot{Override: &override}))
		require.NoError(t, store.Save(ctx, id, app.ZoneSnapshot{Paused: false}))

		key := "timetuner:zone:" + id.String()
		assert.Equal(t, "false", mr.HGet(key, "paused"))
		assert.Empty(t, mr.HGet(key, "day"))
		assert.Empty(t, mr.HGet(key, "night"))
	})

	t.Run("returns error when redis is down", func(t *testing.T) {
		store, mr := newTestSnapshotStore(t)
		mr.Close()

		err := store.Save(context.Background(), domain.GenerateZoneID(), app.ZoneSnapshot{Paused: true})
		require.Error(t, err)
	})
}

func TestSnapshotStore_Load(t *testing.T) {
	t.Run("missing zone returns nil", func(t *testing.T) {
		store, _ := newTestSnapshotStore(t)

		snap, err := store.Load(context.Background(), domain.GenerateZoneID())
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("round trips a saved snapshot", func(t *testing.T) {
		store, _ := newTestSnapshotStore(t)
		ctx := context.Background()
		id := domain.GenerateZoneID()
		override := zonetime.SpeedPair{Day: 3, Night: 0}

		require.NoError(t, store.Save(ctx, id, app.ZoneSnapshot{Paused: true, Override: &override}))

		snap, err := store.Load(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.True(t, snap.Paused)
		require.NotNil(t, snap.Override)
		assert.Equal(t, override, *snap.Override)
	})

	t.Run("ignores malformed speeds", func(t *testing.T) {
		store, mr := newTestSnapshotStore(t)
		id := domain.GenerateZoneID()
		key := "timetuner:zone:" + id.String()
		mr.HSet(key, "paused", "true", "day", "fast", "night", "-1")

		snap, err := store.Load(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.True(t, snap.Paused)
		assert.Nil(t, snap.Override)
	})

	t.Run("returns error when redis is down", func(t *testing.T) {
		store, mr := newTestSnapshotStore(t)
		mr.Close()

		_, err := store.Load(context.Background(), domain.GenerateZoneID())
		require.Error(t, err)
	})
}
