package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/aelexs/timetuner/internal/config"
	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/domain/domaintest"
	"github.com/aelexs/timetuner/internal/server"
	"github.com/aelexs/timetuner/pkg/protocol"
)

func loadYAML(t *testing.T, body string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timetuner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv(config.PathEnv, path)
	cfg, err := config.Load(context.Background())
	require.NoError(t, err)
	return cfg
}

func ptr[T any](v T) *T { return &v }

func TestSettingsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Speeds:   config.SpeedsConfig{Day: 0.5, Night: 1},
		Sleep:    config.SleepConfig{AllowSkip: true, Percentage: 0.3, UseRequiredPlayers: true, RequiredPlayers: 2},
		Advanced: config.AdvancedConfig{TickFrequency: 2, AutoPauseEmpty: true},
		Safety:   config.SafetyConfig{OverflowProtection: true},
		Zones: map[string]config.ZoneConfig{
			"overworld": {NightSpeed: ptr(3.0), AllowThunderstormSleep: true},
			"nether":    {Enabled: ptr(false)},
			"end":       {},
		},
	}

	s, err := settingsFromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, 0.5, s.Speeds.Day)
	assert.True(t, s.AllowSleepSkip)
	assert.True(t, s.Sleep.UseRequiredPlayers)
	assert.Equal(t, 2, s.Sleep.RequiredPlayers)
	assert.Equal(t, 0.3, s.Sleep.Percentage)
	assert.Equal(t, 2, s.TickFrequency)
	assert.True(t, s.AutoPauseEmpty)
	assert.True(t, s.OverflowProtection)

	require.Len(t, s.Zones, 3)
	assert.Equal(t, []string{"end", "nether", "overworld"}, []string{s.Zones[0].Name, s.Zones[1].Name, s.Zones[2].Name})

	assert.Nil(t, s.Zones[0].Speeds)
	assert.True(t, s.Zones[0].Enabled)
	assert.False(t, s.Zones[1].Enabled)

	over := s.Zones[2]
	assert.Equal(t, domain.ZoneIDFromName("overworld"), over.ID)
	require.NotNil(t, over.Speeds)
	assert.Equal(t, 0.5, over.Speeds.Day, "unset side falls back to the global speed")
	assert.Equal(t, 3.0, over.Speeds.Night)
	assert.True(t, over.AllowThunderstormSleep)
}

func TestNewValidator(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantNil bool
		wantErr error
	}{
		{"local without secret disables auth", config.Config{Environment: "local"}, true, nil},
		{"dev without secret fails", config.Config{Environment: "dev"}, true, domain.ErrConfigRequired},
		{"secret enables auth", config.Config{Environment: "dev", Admin: config.AdminConfig{Secret: "s", Issuer: "timetuner"}}, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := newValidator(&tt.cfg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNil, v == nil)
		})
	}
}

type setupResult struct {
	mux     *http.ServeMux
	runners []string
	cleanup func(context.Context) error
}

func runSetup(t *testing.T, cfg *config.Config) (*setupResult, error) {
	t.Helper()
	res := &setupResult{mux: http.NewServeMux()}
	gs := grpc.NewServer()
	t.Cleanup(gs.Stop)

	cleanup, err := setup(context.Background(), server.SetupDeps{
		Config:     cfg,
		Logger:     slog.New(slog.DiscardHandler),
		GRPCServer: gs,
		HTTPMux:    res.mux,
		Go: func(name string, _ func(context.Context) error) {
			res.runners = append(res.runners, name)
		},
	})
	res.cleanup = cleanup
	return res, err
}

func getJSON[T any](t *testing.T, mux http.Handler, path string) T {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestSetup_WiresServiceAndRestoresSnapshots(t *testing.T) {
	mr := miniredis.RunT(t)
	over := domain.ZoneIDFromName("overworld")
	mr.HSet("timetuner:zone:"+over.String(), "paused", "1")

	cfg := loadYAML(t, `
redis:
  addr: `+mr.Addr()+`
zones:
  overworld:
    initial_time: 13000
  nether:
    enabled: false
`)

	res, err := runSetup(t, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, res.cleanup(context.Background())) })

	assert.Equal(t, []string{"driver"}, res.runners)

	list := getJSON[protocol.ZoneList](t, res.mux, "/v1/zones")
	require.Len(t, list.Zones, 1)
	assert.Equal(t, "overworld", list.Zones[0].Name)
	assert.Equal(t, int64(13000), list.Zones[0].RawTime)
	assert.True(t, list.Zones[0].Paused, "pause restored from redis")
}

func TestSetup_ReloadEnablesZones(t *testing.T) {
	fake := domaintest.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	clock = fake
	loadConfig = func(context.Context) (*config.Config, error) {
		return config.LoadFile(writeFile(t, "zones:\n  overworld: {}\n  nether: {}\n"))
	}
	t.Cleanup(func() {
		clock = domain.RealClock{}
		loadConfig = config.Load
	})

	cfg := loadYAML(t, "zones:\n  overworld: {}\n  nether:\n    enabled: false\n")
	res, err := runSetup(t, cfg)
	require.NoError(t, err)

	reload := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		res.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/reload", nil))
		return rec
	}

	rec := reload()
	require.Equal(t, http.StatusTooManyRequests, rec.Code, "setup's ApplyConfig starts the cooldown")

	fake.Advance(2 * domain.ConfigReloadCooldown)
	rec = reload()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp protocol.ReloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{domain.ZoneIDFromName("nether").String()}, resp.Added)

	list := getJSON[protocol.ZoneList](t, res.mux, "/v1/zones")
	assert.Len(t, list.Zones, 2)
}

func TestSetup_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := loadYAML(t, "redis:\n  addr: "+addr+"\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := setup(ctx, server.SetupDeps{
		Config:     cfg,
		Logger:     slog.New(slog.DiscardHandler),
		GRPCServer: grpc.NewServer(),
		HTTPMux:    http.NewServeMux(),
		Go:         func(string, func(context.Context) error) {},
	})
	require.Error(t, err)
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
