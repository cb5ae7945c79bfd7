package adapter_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/timetuner/adapter"
)

func TestWorlds_Directory(t *testing.T) {
	worlds := adapter.NewWorlds()
	id := domain.ZoneIDFromName("overworld")

	w := worlds.Create(id, "overworld", 1000)
	assert.Same(t, w, worlds.Create(id, "ignored", 5), "create is idempotent")
	assert.Equal(t, "overworld", w.Name())
	assert.Equal(t, id, w.ID())

	host, ok := worlds.Zone(id)
	require.True(t, ok)
	assert.Equal(t, int64(1000), host.RawTime())

	_, ok = worlds.Zone(domain.GenerateZoneID())
	assert.False(t, ok)

	worlds.Create(domain.ZoneIDFromName("nether"), "nether", 0)
	list := worlds.List()
	require.Len(t, list, 2)
	assert.Equal(t, "overworld", list[0].Name())
}

func TestWorld_Time(t *testing.T) {
	w := adapter.NewWorlds().Create(domain.GenerateZoneID(), "w", 23000)

	w.SetRawTime(500)
	assert.Equal(t, int64(500), w.RawTime())
	assert.Equal(t, int64(23000+1500), w.FullTime(), "full time moves forward through midnight")

	w.SetFullTime(42)
	assert.Equal(t, int64(42), w.FullTime())
}

func TestWorld_Players(t *testing.T) {
	w := adapter.NewWorlds().Create(domain.GenerateZoneID(), "w", 0)
	alice, bob := domain.GeneratePlayerID(), domain.GeneratePlayerID()

	assert.False(t, w.Occupied())
	w.Join(alice, false)
	w.Join(bob, true)
	assert.True(t, w.Occupied())
	assert.Equal(t, 2, w.Players())
	assert.Equal(t, 1, w.EligiblePlayers(), "exempt players are not eligible")

	assert.True(t, w.SetSleeping(alice, true))
	assert.True(t, w.Sleeping(alice))
	assert.False(t, w.Sleeping(bob))
	assert.False(t, w.SetSleeping(domain.GeneratePlayerID(), true))

	assert.True(t, w.Quit(alice))
	assert.False(t, w.Quit(alice))
	assert.False(t, w.Sleeping(alice))
}

func TestWorlds_Broadcast(t *testing.T) {
	worlds := adapter.NewWorlds()
	id := domain.GenerateZoneID()
	w := worlds.Create(id, "w", 0)
	ctx := context.Background()

	require.NoError(t, worlds.Broadcast(ctx, id, "hello"))
	assert.Equal(t, []string{"hello"}, w.Messages())

	for i := 0; i < 150; i++ {
		require.NoError(t, worlds.Broadcast(ctx, id, fmt.Sprint(i)))
	}
	msgs := w.Messages()
	assert.Len(t, msgs, 100)
	assert.Equal(t, "149", msgs[len(msgs)-1])

	err := worlds.Broadcast(ctx, domain.GenerateZoneID(), "lost")
	require.ErrorIs(t, err, domain.ErrZoneNotManaged)
}
