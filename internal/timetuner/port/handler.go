// Package port exposes the timetuner admin API over HTTP. Routes map onto
// app.Service commands and, in simulation mode, onto adapter.Simulation
// player events.
package port

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"

	apiv1 "github.com/aelexs/timetuner/api/v1"
	"github.com/aelexs/timetuner/internal/auth"
	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/messages"
	"github.com/aelexs/timetuner/internal/timetuner/app"
	"github.com/aelexs/timetuner/internal/zonetime"
)

var tracer = otel.Tracer("timetuner/port")

// commands is the consumer-defined view of app.Service the handler needs.
type commands interface {
	Pause(ctx context.Context, t app.Target) ([]app.CommandResult, error)
	Resume(ctx context.Context, t app.Target) ([]app.CommandResult, error)
	SkipToDay(ctx context.Context, t app.Target) ([]app.CommandResult, error)
	Status(ctx context.Context, id domain.ZoneID) (app.ZoneStatus, error)
	List(ctx context.Context) []app.ZoneStatus
	Settings() app.Settings
	UpdateGlobalSpeeds(ctx context.Context, speeds zonetime.SpeedPair) error
	UpdateZoneSpeeds(ctx context.Context, id domain.ZoneID, speeds zonetime.SpeedPair) error
}

var _ commands = (*app.Service)(nil)

// Events delivers simulated player events. *adapter.Simulation satisfies it.
type Events interface {
	Join(ctx context.Context, zone domain.ZoneID, player domain.PlayerID, exempt bool) error
	Quit(ctx context.Context, zone domain.ZoneID, player domain.PlayerID) error
	EnterBed(ctx context.Context, zone domain.ZoneID, player domain.PlayerID, result domain.BedEnterResult) (app.VoteResult, error)
	LeaveBed(ctx context.Context, zone domain.ZoneID, player domain.PlayerID) error
	SetWeather(ctx context.Context, zone domain.ZoneID, storming, thundering bool) error
}

// TokenValidator checks operator bearer tokens. *auth.Validator satisfies it.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

var _ TokenValidator = (*auth.Validator)(nil)

// ReloadFunc re-reads configuration and applies it to the service.
type ReloadFunc func(ctx context.Context) (app.ReloadResult, error)

// Config holds the dependencies for Handler.
type Config struct {
	Service *app.Service
	// Events enables the player event routes when non-nil.
	Events Events
	// Reload enables POST /v1/reload when non-nil.
	Reload ReloadFunc
	// Validator enables bearer authentication when non-nil.
	Validator TokenValidator
	Catalog   *messages.Catalog
	Logger    *slog.Logger
}

// Handler serves the admin API.
type Handler struct {
	svc       commands
	events    Events
	reload    ReloadFunc
	validator TokenValidator
	catalog   *messages.Catalog
	logger    *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(cfg Config) *Handler {
	return newHandler(cfg.Service, cfg)
}

func newHandler(svc commands, cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:       svc,
		events:    cfg.Events,
		reload:    cfg.Reload,
		validator: cfg.Validator,
		catalog:   cfg.Catalog,
		logger:    logger,
	}
}

// Register installs every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/openapi.json", h.openAPI)

	h.handle(mux, "GET /v1/status", auth.PermStatus, h.status)
	h.handle(mux, "GET /v1/zones", auth.PermWorlds, h.listZones)
	h.handle(mux, "GET /v1/zones/{zone}", auth.PermStatus, h.getZone)
	h.handle(mux, "POST /v1/zones/{zone}/pause", auth.PermPause, h.pause)
	h.handle(mux, "POST /v1/zones/{zone}/resume", auth.PermPause, h.resume)
	h.handle(mux, "POST /v1/zones/{zone}/skip", auth.PermReset, h.skip)
	h.handle(mux, "PUT /v1/zones/{zone}/speeds", auth.PermWorldSpeed, h.setZoneSpeeds)
	h.handle(mux, "PUT /v1/speeds", auth.PermSpeed, h.setSpeeds)

	if h.reload != nil {
		h.handle(mux, "POST /v1/reload", auth.PermReload, h.reloadConfig)
	}
	if h.events != nil {
		h.handle(mux, "PUT /v1/zones/{zone}/weather", auth.PermEvents, h.setWeather)
		h.handle(mux, "POST /v1/zones/{zone}/players/{player}/join", auth.PermEvents, h.join)
		h.handle(mux, "POST /v1/zones/{zone}/players/{player}/quit", auth.PermEvents, h.quit)
		h.handle(mux, "POST /v1/zones/{zone}/players/{player}/bed-enter", auth.PermEvents, h.bedEnter)
		h.handle(mux, "POST /v1/zones/{zone}/players/{player}/bed-leave", auth.PermEvents, h.bedLeave)
	}
}

func (h *Handler) handle(mux *http.ServeMux, pattern, perm string, fn http.HandlerFunc) {
	mux.Handle(pattern, h.traced(pattern, h.authorize(perm, fn)))
}

func (h *Handler) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(apiv1.Document)
}
