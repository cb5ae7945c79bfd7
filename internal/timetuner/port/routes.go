package port

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/messages"
	"github.com/aelexs/timetuner/internal/observability"
	"github.com/aelexs/timetuner/internal/timetuner/app"
	"github.com/aelexs/timetuner/internal/zonetime"
	"github.com/aelexs/timetuner/pkg/protocol"
)

// zoneID resolves the {zone} path value. It accepts a zone UUID or the name
// of a managed zone; any other name maps to its name-derived id.
func (h *Handler) zoneID(r *http.Request) (domain.ZoneID, error) {
	raw := r.PathValue("zone")
	if raw == "" {
		return domain.ZoneID{}, domain.ErrEmptyID
	}
	if id, err := domain.NewZoneID(raw); err == nil {
		return id, nil
	}
	for _, z := range h.svc.List(r.Context()) {
		if z.Name == raw {
			return z.ID, nil
		}
	}
	return domain.ZoneIDFromName(raw), nil
}

func (h *Handler) target(r *http.Request) (app.Target, error) {
	if r.PathValue("zone") == protocol.AllZones {
		return app.AllZones, nil
	}
	id, err := h.zoneID(r)
	if err != nil {
		return app.Target{}, err
	}
	return app.ZoneTarget(id), nil
}

func (h *Handler) playerID(r *http.Request) (domain.PlayerID, error) {
	id, err := domain.NewPlayerID(r.PathValue("player"))
	if err != nil {
		return domain.PlayerID{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return id, nil
}

func toZoneStatus(z app.ZoneStatus) protocol.ZoneStatus {
	return protocol.ZoneStatus{
		ID:          z.ID.String(),
		Name:        z.Name,
		State:       z.State.String(),
		Phase:       z.Phase.String(),
		Paused:      z.Paused,
		AutoPaused:  z.AutoPaused,
		RawTime:     z.RawTime,
		LastWritten: z.LastWritten,
		Accumulated: z.Accumulated,
		DaySpeed:    z.Speeds.Day,
		NightSpeed:  z.Speeds.Night,
		Override:    z.Override,
		Votes:       z.Votes,
		Eligible:    z.Eligible,
	}
}

func toZoneStatuses(zones []app.ZoneStatus) []protocol.ZoneStatus {
	out := make([]protocol.ZoneStatus, 0, len(zones))
	for _, z := range zones {
		out = append(out, toZoneStatus(z))
	}
	return out
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	s := h.svc.Settings()
	writeJSON(w, http.StatusOK, protocol.Status{
		DaySpeed:       s.Speeds.Day,
		NightSpeed:     s.Speeds.Night,
		TickFrequency:  s.TickFrequency,
		AllowSleepSkip: s.AllowSleepSkip,
		AutoPauseEmpty: s.AutoPauseEmpty,
		Zones:          toZoneStatuses(h.svc.List(r.Context())),
	})
}

func (h *Handler) listZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.ZoneList{Zones: toZoneStatuses(h.svc.List(r.Context()))})
}

func (h *Handler) getZone(w http.ResponseWriter, r *http.Request) {
	id, err := h.zoneID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.svc.Status(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toZoneStatus(st))
}

type commandFunc func(ctx context.Context, t app.Target) ([]app.CommandResult, error)

func (h *Handler) command(w http.ResponseWriter, r *http.Request, run commandFunc, msgID string) {
	t, err := h.target(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	results, err := run(r.Context(), t)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := protocol.CommandResponse{Results: make([]protocol.CommandResult, 0, len(results))}
	changed := 0
	for _, res := range results {
		if res.Changed {
			changed++
		}
		resp.Results = append(resp.Results, protocol.CommandResult{
			Zone: res.Zone.String(), Name: res.Name, Changed: res.Changed,
		})
	}
	resp.Message = h.localize(r, msgID, map[string]any{"Count": changed})

	observability.WithTraceID(r.Context(), h.logger).InfoContext(r.Context(), "admin command",
		"route", r.Pattern, "operator", Operator(r.Context()), "target", t.String(), "changed", changed)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) pause(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.svc.Pause, messages.CommandPaused)
}

func (h *Handler) resume(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.svc.Resume, messages.CommandResumed)
}

func (h *Handler) skip(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.svc.SkipToDay, messages.CommandSkipped)
}

func decodeSpeeds(w http.ResponseWriter, r *http.Request) (zonetime.SpeedPair, error) {
	var req protocol.SpeedRequest
	if err := decode(w, r, &req); err != nil {
		return zonetime.SpeedPair{}, err
	}
	if req.Day == nil || req.Night == nil {
		return zonetime.SpeedPair{}, fmt.Errorf("%w: day and night are required", domain.ErrInvalidInput)
	}
	return zonetime.SpeedPair{Day: *req.Day, Night: *req.Night}, nil
}

func (h *Handler) setSpeeds(w http.ResponseWriter, r *http.Request) {
	speeds, err := decodeSpeeds(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.UpdateGlobalSpeeds(r.Context(), speeds); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.SpeedResponse{
		Day:     speeds.Day,
		Night:   speeds.Night,
		Message: h.localize(r, messages.CommandSpeed, map[string]any{"Day": speeds.Day, "Night": speeds.Night}),
	})
}

func (h *Handler) setZoneSpeeds(w http.ResponseWriter, r *http.Request) {
	id, err := h.zoneID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	speeds, err := decodeSpeeds(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.UpdateZoneSpeeds(r.Context(), id, speeds); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.SpeedResponse{
		Day:   speeds.Day,
		Night: speeds.Night,
		Message: h.localize(r, messages.CommandZoneSpeed, map[string]any{
			"Zone": r.PathValue("zone"), "Day": speeds.Day, "Night": speeds.Night,
		}),
	})
}

func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	res, err := h.reload(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := protocol.ReloadResponse{
		Added:   idStrings(res.Added),
		Removed: idStrings(res.Removed),
		Updated: idStrings(res.Updated),
		Message: h.localize(r, messages.CommandReloaded, map[string]any{
			"Added": len(res.Added), "Removed": len(res.Removed),
		}),
	}
	if len(res.Failed) > 0 {
		resp.Failed = make(map[string]string, len(res.Failed))
		for id, ferr := range res.Failed {
			resp.Failed[id.String()] = ferr.Error()
		}
	}
	observability.WithTraceID(r.Context(), h.logger).InfoContext(r.Context(), "config reloaded",
		"operator", Operator(r.Context()),
		"added", len(res.Added), "removed", len(res.Removed), "failed", len(res.Failed))
	writeJSON(w, http.StatusOK, resp)
}

func idStrings(ids []domain.ZoneID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func (h *Handler) setWeather(w http.ResponseWriter, r *http.Request) {
	id, err := h.zoneID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req protocol.WeatherRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.events.SetWeather(r.Context(), id, req.Storming, req.Thundering); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// playerRoute resolves both path values of a player event route.
func (h *Handler) playerRoute(w http.ResponseWriter, r *http.Request) (domain.ZoneID, domain.PlayerID, bool) {
	zone, err := h.zoneID(r)
	if err != nil {
		h.writeError(w, r, err)
		return domain.ZoneID{}, domain.PlayerID{}, false
	}
	player, err := h.playerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return domain.ZoneID{}, domain.PlayerID{}, false
	}
	return zone, player, true
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	zone, player, ok := h.playerRoute(w, r)
	if !ok {
		return
	}
	var req protocol.JoinRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if err := h.events.Join(r.Context(), zone, player, req.Exempt); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) quit(w http.ResponseWriter, r *http.Request) {
	zone, player, ok := h.playerRoute(w, r)
	if !ok {
		return
	}
	if err := h.events.Quit(r.Context(), zone, player); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) bedEnter(w http.ResponseWriter, r *http.Request) {
	zone, player, ok := h.playerRoute(w, r)
	if !ok {
		return
	}
	var req protocol.BedRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.events.EnterBed(r.Context(), zone, player, domain.BedEnterResult(req.Result))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.VoteResponse{
		Outcome: string(res.Outcome),
		Skipped: res.Skipped,
		Votes:   res.Votes,
		Needed:  res.Needed,
	})
}

func (h *Handler) bedLeave(w http.ResponseWriter, r *http.Request) {
	zone, player, ok := h.playerRoute(w, r)
	if !ok {
		return
	}
	if err := h.events.LeaveBed(r.Context(), zone, player); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}
