package adapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/sleep"
	"github.com/aelexs/timetuner/internal/timetuner/adapter"
	"github.com/aelexs/timetuner/internal/timetuner/app"
	"github.com/aelexs/timetuner/internal/zonetime"
)

type simFixture struct {
	worlds *adapter.Worlds
	world  *adapter.World
	svc    *app.Service
	sim    *adapter.Simulation
	zone   domain.ZoneID
}

func newSimFixture(t *testing.T, raw int64) *simFixture {
	t.Helper()
	worlds := adapter.NewWorlds()
	zone := domain.ZoneIDFromName("overworld")
	world := worlds.Create(zone, "overworld", raw)

	svc := app.NewService(app.Config{
		Directory: worlds,
		Notifier:  adapter.NewNotifier(newTestCatalog(t, "en"), worlds),
	})
	_, err := svc.ApplyConfig(context.Background(), app.Settings{
		Speeds:         zonetime.SpeedPair{Day: 1, Night: 1},
		Sleep:          sleep.Policy{Percentage: 0.5},
		AllowSleepSkip: true,
		TickFrequency:  1,
		Zones:          []app.ZoneSettings{{ID: zone, Name: "overworld", Enabled: true}},
	})
	require.NoError(t, err)

	return &simFixture{worlds: worlds, world: world, svc: svc, sim: adapter.NewSimulation(worlds, svc), zone: zone}
}

func TestSimulation_SleepThroughTheNight(t *testing.T) {
	ctx := context.Background()
	f := newSimFixture(t, 18000)
	alice, bob, carol := domain.GeneratePlayerID(), domain.GeneratePlayerID(), domain.GeneratePlayerID()
	for _, p := range []domain.PlayerID{alice, bob, carol} {
		require.NoError(t, f.sim.Join(ctx, f.zone, p, false))
	}
	require.NoError(t, f.sim.Join(ctx, f.zone, domain.GeneratePlayerID(), true))
	require.NoError(t, f.sim.SetWeather(ctx, f.zone, true, true))

	vr, err := f.sim.EnterBed(ctx, f.zone, alice, domain.BedEnterOK)
	require.NoError(t, err)
	assert.Equal(t, app.VoteAccepted, vr.Outcome)
	assert.False(t, vr.Skipped)
	assert.Equal(t, 2, vr.Needed, "exempt player is not counted")

	vr, err = f.sim.EnterBed(ctx, f.zone, bob, domain.BedEnterOK)
	require.NoError(t, err)
	assert.True(t, vr.Skipped)

	assert.Equal(t, int64(0), f.world.RawTime())
	assert.False(t, f.world.Storming())
	assert.False(t, f.world.Thundering())
	msgs := f.world.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "1/2 players are sleeping in overworld.", msgs[0])
	assert.Equal(t, "The night has been skipped in overworld. Good morning!", msgs[1])
}

func TestSimulation_WakeAndQuit(t *testing.T) {
	ctx := context.Background()
	f := newSimFixture(t, 18000)
	alice, bob, carol := domain.GeneratePlayerID(), domain.GeneratePlayerID(), domain.GeneratePlayerID()
	for _, p := range []domain.PlayerID{alice, bob, carol} {
		require.NoError(t, f.sim.Join(ctx, f.zone, p, false))
	}

	_, err := f.sim.EnterBed(ctx, f.zone, alice, domain.BedEnterOK)
	require.NoError(t, err)
	require.NoError(t, f.sim.LeaveBed(ctx, f.zone, alice))
	require.NoError(t, f.sim.Quit(ctx, f.zone, carol))

	st, err := f.svc.Status(ctx, f.zone)
	require.NoError(t, err)
	assert.Zero(t, st.Votes)
	assert.Equal(t, 2, st.Eligible)
	assert.Equal(t, int64(18000), f.world.RawTime())
}

func TestSimulation_RecheckDropsRejectedSleepers(t *testing.T) {
	ctx := context.Background()
	f := newSimFixture(t, 18000)
	alice, bob := domain.GeneratePlayerID(), domain.GeneratePlayerID()
	require.NoError(t, f.sim.Join(ctx, f.zone, alice, false))
	require.NoError(t, f.sim.Join(ctx, f.zone, bob, false))
	require.NoError(t, f.sim.Join(ctx, f.zone, domain.GeneratePlayerID(), false))

	vr, err := f.sim.EnterBed(ctx, f.zone, alice, domain.BedEnterNotPossibleNow)
	require.NoError(t, err)
	require.Equal(t, app.VoteAccepted, vr.Outcome)

	f.svc.Tick(ctx)
	st, err := f.svc.Status(ctx, f.zone)
	require.NoError(t, err)
	assert.Zero(t, st.Votes, "host never put the player to bed")
}

func TestSimulation_Errors(t *testing.T) {
	ctx := context.Background()
	f := newSimFixture(t, 18000)
	ghost := domain.GeneratePlayerID()

	require.ErrorIs(t, f.sim.Join(ctx, domain.GenerateZoneID(), ghost, false), domain.ErrZoneNotManaged)
	require.ErrorIs(t, f.sim.Quit(ctx, f.zone, ghost), domain.ErrInvalidInput)
	require.ErrorIs(t, f.sim.LeaveBed(ctx, f.zone, ghost), domain.ErrInvalidInput)
	_, err := f.sim.EnterBed(ctx, f.zone, ghost, domain.BedEnterOK)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.sim.EnterBed(ctx, f.zone, ghost, "nope")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.ErrorIs(t, f.sim.SetWeather(ctx, domain.GenerateZoneID(), true, false), domain.ErrZoneNotManaged)
}
