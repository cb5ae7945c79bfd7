package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/timetuner/internal/config"
	"github.com/aelexs/timetuner/internal/domain"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timetuner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := config.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.GRPCPort)

	// Simulation defaults
	assert.Equal(t, domain.DefaultDaySpeed, cfg.Speeds.Day)
	assert.Equal(t, domain.DefaultNightSpeed, cfg.Speeds.Night)
	assert.True(t, cfg.Sleep.AllowSkip)
	assert.Equal(t, 0.5, cfg.Sleep.Percentage)
	assert.False(t, cfg.Sleep.UseRequiredPlayers)
	assert.Equal(t, 3, cfg.Sleep.RequiredPlayers)
	assert.Equal(t, 1, cfg.Advanced.TickFrequency)
	assert.False(t, cfg.Advanced.AutoPauseEmpty)
	assert.True(t, cfg.Safety.OverflowProtection)
	assert.Empty(t, cfg.Zones)

	// Infrastructure defaults
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, domain.RedisTimeout, cfg.Redis.Timeout)
	assert.True(t, cfg.Admin.Secret.IsEmpty())
	assert.Equal(t, "timetuner", cfg.Admin.Issuer)
	assert.Equal(t, "en", cfg.Messages.Language)
	assert.Empty(t, cfg.OTEL.Endpoint)
	assert.True(t, cfg.OTEL.Insecure)
	assert.Equal(t, "timetuner", cfg.OTEL.ServiceName)
	assert.Equal(t, 1.0, cfg.OTEL.SampleRatio)
	assert.Equal(t, 15*time.Second, cfg.OTEL.MetricsInterval)
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeYAML(t, `
speeds:
  day: 0.25
  night: 2
sleep:
  percentage: 0.75
  use_required_players: true
  required_players: 2
advanced:
  tick_frequency: 4
  auto_pause_empty: true
zones:
  overworld:
    day_speed: 1.5
    allow_thunderstorm_sleep: true
  nether:
    enabled: false
  the_end:
    id: 1b4e28ba-2fa1-11d2-883f-0016d3cca427
    initial_time: 13000
`)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, config.SpeedsConfig{Day: 0.25, Night: 2}, cfg.Speeds)
	assert.Equal(t, 0.75, cfg.Sleep.Percentage)
	assert.True(t, cfg.Sleep.UseRequiredPlayers)
	assert.Equal(t, 2, cfg.Sleep.RequiredPlayers)
	assert.Equal(t, 4, cfg.Advanced.TickFrequency)
	assert.True(t, cfg.Advanced.AutoPauseEmpty)
	assert.True(t, cfg.Sleep.AllowSkip, "defaults survive a partial file")

	require.Len(t, cfg.Zones, 3)
	over := cfg.Zones["overworld"]
	assert.True(t, over.IsEnabled())
	assert.True(t, over.HasOverride())
	require.NotNil(t, over.DaySpeed)
	assert.Equal(t, 1.5, *over.DaySpeed)
	assert.Nil(t, over.NightSpeed)
	assert.True(t, over.AllowThunderstormSleep)
	id, err := over.ZoneID("overworld")
	require.NoError(t, err)
	assert.Equal(t, domain.ZoneIDFromName("overworld"), id)

	assert.False(t, cfg.Zones["nether"].IsEnabled())
	assert.False(t, cfg.Zones["nether"].HasOverride())

	end := cfg.Zones["the_end"]
	id, err = end.ZoneID("the_end")
	require.NoError(t, err)
	assert.Equal(t, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", id.String())
	assert.Equal(t, int64(13000), end.InitialTime)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeYAML(t, "speeds:\n  day: 0.25\n  night: 2\nlog_level: warn\n")
	t.Setenv(config.PathEnv, path)
	t.Setenv("TIMETUNER_SPEEDS__DAY", "3")
	t.Setenv("TIMETUNER_LOG_LEVEL", "debug")
	t.Setenv("TIMETUNER_SLEEP__ALLOW_SKIP", "false")
	t.Setenv("TIMETUNER_REDIS__TIMEOUT", "500ms")
	t.Setenv("TIMETUNER_OTEL__SAMPLE_RATIO", "0.05")

	cfg, err := config.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3.0, cfg.Speeds.Day)
	assert.Equal(t, 2.0, cfg.Speeds.Night)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Sleep.AllowSkip)
	assert.Equal(t, "500ms", cfg.Redis.Timeout.String())
	assert.Equal(t, 0.05, cfg.OTEL.SampleRatio)
}

func TestLoadFile_Clamps(t *testing.T) {
	path := writeYAML(t, `
speeds:
  day: -2
  night: .inf
sleep:
  percentage: 1.5
  required_players: 0
advanced:
  tick_frequency: -3
zones:
  overworld:
    night_speed: -1
`)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 0.0, cfg.Speeds.Day)
	assert.Equal(t, 0.0, cfg.Speeds.Night)
	assert.Equal(t, 1.0, cfg.Sleep.Percentage)
	assert.Equal(t, 1, cfg.Sleep.RequiredPlayers)
	assert.Equal(t, 1, cfg.Advanced.TickFrequency)
	require.NotNil(t, cfg.Zones["overworld"].NightSpeed)
	assert.Equal(t, 0.0, *cfg.Zones["overworld"].NightSpeed)
}

func TestLoadFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid zone id", func(t *testing.T) {
		path := writeYAML(t, "zones:\n  overworld:\n    id: not-a-uuid\n")
		_, err := config.LoadFile(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidID)
		assert.Contains(t, err.Error(), "zones.overworld.id")
	})
}

func TestIsLocal(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"local returns true", "local", true},
		{"prod returns false", "prod", false},
		{"dev returns false", "dev", false},
		{"empty returns false", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Environment: tt.env}

			assert.Equal(t, tt.want, cfg.IsLocal())
		})
	}
}

func TestIsProd(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"prod returns true", "prod", true},
		{"local returns false", "local", false},
		{"dev returns false", "dev", false},
		{"empty returns false", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Environment: tt.env}

			assert.Equal(t, tt.want, cfg.IsProd())
		})
	}
}

func TestValidateRequired_LocalAllowsMissingFields(t *testing.T) {
	t.Setenv("TIMETUNER_ENVIRONMENT", "local")

	cfg, err := config.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Environment)
}

func TestValidateRequired_ProdRequiresRedisAddr(t *testing.T) {
	t.Setenv("TIMETUNER_ENVIRONMENT", "prod")
	t.Setenv("TIMETUNER_ADMIN__SECRET", "s3cret")

	_, err := config.Load(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigRequired)
	assert.Contains(t, err.Error(), "redis.addr")
}

func TestValidateRequired_ProdRequiresAdminSecret(t *testing.T) {
	t.Setenv("TIMETUNER_ENVIRONMENT", "prod")
	t.Setenv("TIMETUNER_REDIS__ADDR", "redis:6379")

	_, err := config.Load(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigRequired)
	assert.Contains(t, err.Error(), "admin.secret")
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("TIMETUNER_ENVIRONMENT", "prod")
	t.Setenv("TIMETUNER_REDIS__ADDR", "redis:6379")
	t.Setenv("TIMETUNER_ADMIN__SECRET", "s3cret")

	cfg, err := config.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "s3cret", cfg.Admin.Secret.Expose())
}
