package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aelexs/timetuner/internal/auth"
	"github.com/aelexs/timetuner/internal/config"
	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/messages"
	"github.com/aelexs/timetuner/internal/redis"
	"github.com/aelexs/timetuner/internal/server"
	"github.com/aelexs/timetuner/internal/sleep"
	"github.com/aelexs/timetuner/internal/timetuner/adapter"
	"github.com/aelexs/timetuner/internal/timetuner/app"
	"github.com/aelexs/timetuner/internal/timetuner/port"
	"github.com/aelexs/timetuner/internal/zonetime"
)

// Overridden by tests.
var (
	// loadConfig re-reads configuration for POST /v1/reload.
	loadConfig = config.Load

	clock domain.Clock = domain.RealClock{}
)

// setup is the timetuner composition root. It creates the simulated host,
// the optional Redis snapshot store, the service and the admin API, and
// registers the simulation driver as a background runner.
func setup(ctx context.Context, deps server.SetupDeps) (func(context.Context) error, error) {
	cfg := deps.Config
	logger := deps.Logger

	// 1. Host and localized notices.
	worlds := adapter.NewWorlds()
	ensureWorlds(worlds, cfg)

	catalog, err := messages.NewCatalog(cfg.Messages.Language, logger)
	if err != nil {
		return nil, fmt.Errorf("timetuner setup: load messages: %w", err)
	}

	// 2. Operator state persistence (optional).
	var (
		snapshots   app.SnapshotStore
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Redis.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("timetuner setup: %w", err)
		}
		snapshots = adapter.NewSnapshotStore(redisClient.RDB)
		logger.InfoContext(ctx, "zone snapshots persisted to redis", slog.String("addr", cfg.Redis.Addr))
	} else {
		logger.WarnContext(ctx, "redis.addr not set, pause state will not survive restarts")
	}

	closeRedis := func(context.Context) error {
		if redisClient == nil {
			return nil
		}
		return redisClient.Close()
	}

	// 3. Service.
	svc := app.NewService(app.Config{
		Directory: worlds,
		Notifier:  adapter.NewNotifier(catalog, worlds),
		Snapshots: snapshots,
		Clock:     clock,
		Logger:    logger,
	})

	settings, err := settingsFromConfig(cfg)
	if err != nil {
		_ = closeRedis(ctx)
		return nil, fmt.Errorf("timetuner setup: %w", err)
	}
	res, err := svc.ApplyConfig(ctx, settings)
	if err != nil {
		_ = closeRedis(ctx)
		return nil, fmt.Errorf("timetuner setup: apply config: %w", err)
	}
	for id, ferr := range res.Failed {
		logger.WarnContext(ctx, "zone not registered", slog.String("zone_id", id.String()), slog.String("error", ferr.Error()))
	}

	// 4. Admin API.
	validator, err := newValidator(cfg)
	if err != nil {
		_ = closeRedis(ctx)
		return nil, fmt.Errorf("timetuner setup: %w", err)
	}
	if validator == nil {
		logger.WarnContext(ctx, "admin.secret not set, admin API is unauthenticated (local only)")
	}

	handler := port.NewHandler(port.Config{
		Service:   svc,
		Events:    adapter.NewSimulation(worlds, svc),
		Reload:    reloader(worlds, svc),
		Validator: validator,
		Catalog:   catalog,
		Logger:    logger,
	})
	handler.Register(deps.HTTPMux)

	// 5. Driver.
	deps.Go("driver", svc.Run)

	logger.InfoContext(ctx, "timetuner initialized",
		slog.Int("zones", len(res.Added)),
		slog.Float64("day_speed", settings.Speeds.Day),
		slog.Float64("night_speed", settings.Speeds.Night),
	)

	return closeRedis, nil
}

// reloader re-reads configuration, creates worlds for new zones and applies
// the result to svc.
func reloader(worlds *adapter.Worlds, svc *app.Service) port.ReloadFunc {
	return func(ctx context.Context) (app.ReloadResult, error) {
		next, err := loadConfig(ctx)
		if err != nil {
			return app.ReloadResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		settings, err := settingsFromConfig(next)
		if err != nil {
			return app.ReloadResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		ensureWorlds(worlds, next)
		return svc.ApplyConfig(ctx, settings)
	}
}

// ensureWorlds creates a simulated world for every configured zone,
// disabled ones included so a reload can enable them later.
func ensureWorlds(worlds *adapter.Worlds, cfg *config.Config) {
	for _, name := range zoneNames(cfg) {
		z := cfg.Zones[name]
		id, err := z.ZoneID(name)
		if err != nil {
			continue
		}
		worlds.Create(id, name, z.InitialTime)
	}
}

// settingsFromConfig converts configuration into service settings. Zones
// are ordered by name so registration order is stable across restarts.
func settingsFromConfig(cfg *config.Config) (app.Settings, error) {
	global := zonetime.SpeedPair{Day: cfg.Speeds.Day, Night: cfg.Speeds.Night}

	settings := app.Settings{
		Speeds: global,
		Sleep: sleep.Policy{
			UseRequiredPlayers: cfg.Sleep.UseRequiredPlayers,
			RequiredPlayers:    cfg.Sleep.RequiredPlayers,
			Percentage:         cfg.Sleep.Percentage,
		},
		AllowSleepSkip:     cfg.Sleep.AllowSkip,
		TickFrequency:      cfg.Advanced.TickFrequency,
		AutoPauseEmpty:     cfg.Advanced.AutoPauseEmpty,
		OverflowProtection: cfg.Safety.OverflowProtection,
	}

	for _, name := range zoneNames(cfg) {
		z := cfg.Zones[name]
		id, err := z.ZoneID(name)
		if err != nil {
			return app.Settings{}, fmt.Errorf("zones.%s.id: %w", name, err)
		}
		zs := app.ZoneSettings{
			ID:                     id,
			Name:                   name,
			Enabled:                z.IsEnabled(),
			AllowThunderstormSleep: z.AllowThunderstormSleep,
		}
		if z.HasOverride() {
			pair := global
			if z.DaySpeed != nil {
				pair.Day = *z.DaySpeed
			}
			if z.NightSpeed != nil {
				pair.Night = *z.NightSpeed
			}
			zs.Speeds = &pair
		}
		settings.Zones = append(settings.Zones, zs)
	}
	return settings, nil
}

func zoneNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Zones))
	for name := range cfg.Zones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// newValidator returns nil when authentication is disabled, which is only
// allowed in the local environment.
func newValidator(cfg *config.Config) (port.TokenValidator, error) {
	if cfg.Admin.Secret.IsEmpty() {
		if !cfg.IsLocal() {
			return nil, fmt.Errorf("%w: admin.secret", domain.ErrConfigRequired)
		}
		return nil, nil
	}
	return auth.NewValidator(auth.ValidatorConfig{
		Secret: cfg.Admin.Secret,
		Issuer: cfg.Admin.Issuer,
	}), nil
}
