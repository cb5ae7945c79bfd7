// Package config provides configuration loading using koanf.
// Precedence: environment → YAML file → compiled defaults.
package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/aelexs/timetuner/internal/domain"
)

// EnvPrefix prefixes every environment variable read by Load. A double
// underscore separates nesting levels: TIMETUNER_SPEEDS__DAY sets speeds.day.
const EnvPrefix = "TIMETUNER_"

// PathEnv names the environment variable holding the optional YAML file path.
const PathEnv = "TIMETUNER_CONFIG"

// Config holds all service configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	// Logging configuration
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	HTTPPort int `koanf:"http_port"`
	GRPCPort int `koanf:"grpc_port"`

	// Simulation configuration
	Speeds   SpeedsConfig          `koanf:"speeds"`
	Sleep    SleepConfig           `koanf:"sleep"`
	Advanced AdvancedConfig        `koanf:"advanced"`
	Safety   SafetyConfig          `koanf:"safety"`
	Zones    map[string]ZoneConfig `koanf:"zones"`

	// Infrastructure configurations
	Redis    RedisConfig    `koanf:"redis"`
	Admin    AdminConfig    `koanf:"admin"`
	Messages MessagesConfig `koanf:"messages"`

	// OpenTelemetry configuration
	OTEL OTELConfig `koanf:"otel"`
}

// SpeedsConfig holds the global simulated ticks per driver tick.
type SpeedsConfig struct {
	Day   float64 `koanf:"day"`
	Night float64 `koanf:"night"`
}

// SleepConfig holds the sleep-skip policy.
type SleepConfig struct {
	AllowSkip          bool    `koanf:"allow_skip"`
	Percentage         float64 `koanf:"percentage"` // fraction in [0,1]
	UseRequiredPlayers bool    `koanf:"use_required_players"`
	RequiredPlayers    int     `koanf:"required_players"`
}

// AdvancedConfig holds driver tuning.
type AdvancedConfig struct {
	TickFrequency  int  `koanf:"tick_frequency"`
	AutoPauseEmpty bool `koanf:"auto_pause_empty"`
}

// SafetyConfig holds host protection switches.
type SafetyConfig struct {
	OverflowProtection bool `koanf:"overflow_protection"`
}

// ZoneConfig configures one zone, keyed by zone name.
type ZoneConfig struct {
	// ID is the zone UUID. Empty derives a stable id from the name.
	ID                     string   `koanf:"id"`
	DaySpeed               *float64 `koanf:"day_speed"`
	NightSpeed             *float64 `koanf:"night_speed"`
	Enabled                *bool    `koanf:"enabled"` // nil means enabled
	AllowThunderstormSleep bool     `koanf:"allow_thunderstorm_sleep"`
	// InitialTime seeds the simulated host world in local mode.
	InitialTime int64 `koanf:"initial_time"`
}

// IsEnabled reports whether the zone should be managed.
func (z ZoneConfig) IsEnabled() bool {
	return z.Enabled == nil || *z.Enabled
}

// HasOverride reports whether the zone overrides the global speeds.
func (z ZoneConfig) HasOverride() bool {
	return z.DaySpeed != nil || z.NightSpeed != nil
}

// RedisConfig holds Redis configuration. An empty Addr disables persistence.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
}

// AdminConfig holds operator authentication configuration.
type AdminConfig struct {
	Secret domain.SecretString `koanf:"secret"` // Empty disables auth in local
	Issuer string              `koanf:"issuer"`
}

// MessagesConfig holds localization configuration.
type MessagesConfig struct {
	Language string `koanf:"language"`
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
	// SampleRatio applies to root spans; 1 records everything.
	SampleRatio     float64       `koanf:"sample_ratio"`
	MetricsInterval time.Duration `koanf:"metrics_interval"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		LogFormat:   "json",
		HTTPPort:    8080,
		GRPCPort:    9090,

		Speeds: SpeedsConfig{
			Day:   domain.DefaultDaySpeed,
			Night: domain.DefaultNightSpeed,
		},
		Sleep: SleepConfig{
			AllowSkip:       true,
			Percentage:      domain.DefaultSleepPercentage,
			RequiredPlayers: domain.DefaultRequiredPlayers,
		},
		Advanced: AdvancedConfig{
			TickFrequency: domain.DefaultTickFrequency,
		},
		Safety: SafetyConfig{
			OverflowProtection: true,
		},
		Redis: RedisConfig{
			Timeout: domain.RedisTimeout,
		},
		Admin: AdminConfig{
			Issuer: "timetuner",
		},
		Messages: MessagesConfig{
			Language: "en",
		},
		OTEL: OTELConfig{
			Insecure:        true,
			ServiceName:     "timetuner",
			SampleRatio:     1,
			MetricsInterval: 15 * time.Second,
		},
	}
}

// Load loads configuration following the precedence:
// 1. Environment variables prefixed with TIMETUNER_ (highest)
// 2. The YAML file named by TIMETUNER_CONFIG, when set
// 3. Compiled defaults (lowest)
//
// Out-of-range numbers are clamped, never rejected. Required keys missing
// in prod cause a startup failure.
func Load(_ context.Context) (*Config, error) {
	return LoadFile(os.Getenv(PathEnv))
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := defaults()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	clamp(cfg)

	if err := validateRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey maps TIMETUNER_SLEEP__ALLOW_SKIP to sleep.allow_skip. The config
// path variable itself is skipped.
func envKey(s string) string {
	if s == PathEnv {
		return ""
	}
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// clamp coerces numeric settings into their usable ranges.
func clamp(cfg *Config) {
	cfg.Speeds.Day = clampSpeed(cfg.Speeds.Day)
	cfg.Speeds.Night = clampSpeed(cfg.Speeds.Night)

	switch {
	case math.IsNaN(cfg.Sleep.Percentage) || cfg.Sleep.Percentage < 0:
		cfg.Sleep.Percentage = 0
	case cfg.Sleep.Percentage > 1:
		cfg.Sleep.Percentage = 1
	}
	if cfg.Sleep.RequiredPlayers < 1 {
		cfg.Sleep.RequiredPlayers = 1
	}
	if cfg.Advanced.TickFrequency < 1 {
		cfg.Advanced.TickFrequency = 1
	}

	for name, z := range cfg.Zones {
		if z.DaySpeed != nil {
			v := clampSpeed(*z.DaySpeed)
			z.DaySpeed = &v
		}
		if z.NightSpeed != nil {
			v := clampSpeed(*z.NightSpeed)
			z.NightSpeed = &v
		}
		cfg.Zones[name] = z
	}
}

func clampSpeed(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// validateRequired checks that required configuration is present.
func validateRequired(cfg *Config) error {
	for name, z := range cfg.Zones {
		if _, err := z.ZoneID(name); err != nil {
			return fmt.Errorf("zones.%s.id: %w", name, err)
		}
	}

	// In local environment, most fields have sensible defaults
	if cfg.Environment == "local" {
		return nil
	}

	if cfg.Environment == "prod" {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr", domain.ErrConfigRequired)
		}
		if cfg.Admin.Secret.IsEmpty() {
			return fmt.Errorf("%w: admin.secret", domain.ErrConfigRequired)
		}
	}

	return nil
}

// ZoneID returns the configured id of the named zone, or the id derived
// from its name when none is set.
func (z ZoneConfig) ZoneID(name string) (domain.ZoneID, error) {
	if z.ID == "" {
		return domain.ZoneIDFromName(name), nil
	}
	return domain.NewZoneID(z.ID)
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
