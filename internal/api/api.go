/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/pauta/internal/events"
	"github.com/friendsincode/pauta/internal/models"
	"github.com/friendsincode/pauta/internal/scheduling"
	"github.com/friendsincode/pauta/internal/telemetry"
	ws "nhooyr.io/websocket"
)

// API exposes HTTP handlers.
type API struct {
	scheduler *scheduling.Service
	bus       *events.Bus
	location  *time.Location
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(scheduler *scheduling.Service, bus *events.Bus, location *time.Location, logger zerolog.Logger) *API {
	return &API{
		scheduler: scheduler,
		bus:       bus,
		location:  location,
		logger:    logger,
	}
}

// Routes registers all API routes on the given router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/schedule", func(r chi.Router) {
			r.Post("/check-conflict", a.handleCheckConflict)
			r.Post("/suggest", a.handleSuggest)
		})

		r.Route("/events", func(r chi.Router) {
			r.Post("/", a.handleCreateEvent)
			r.Get("/", a.handleEventFeed)
			r.Route("/{eventID}", func(r chi.Router) {
				r.Get("/", a.handleGetEvent)
				r.Patch("/", a.handleUpdateEvent)
				r.Delete("/", a.handleCancelEvent)
			})
		})

		r.Get("/agenda", a.handleAgenda)
		r.Get("/resources", a.handleResources)
		r.Get("/holidays", a.handleHolidays)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type checkConflictRequest struct {
	ResourceID     string    `json:"resource_id"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	ExcludeEventID string    `json:"exclude_event_id,omitempty"`
}

func (a *API) handleCheckConflict(w http.ResponseWriter, r *http.Request) {
	var req checkConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	result, err := a.scheduler.CheckConflict(r.Context(), scheduling.CheckRequest{
		ResourceID:     req.ResourceID,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		ExcludeEventID: req.ExcludeEventID,
	})
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"has_conflict": len(result.Conflicts) > 0,
		"conflicts":    result.Conflicts,
		"holidays":     result.Holidays,
	})
}

type suggestRequest struct {
	ResourceID      string `json:"resource_id"`
	EventType       string `json:"event_type"`
	PreferredDate   string `json:"preferred_date"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

func (a *API) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	preferred, err := a.parseDate(req.PreferredDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_preferred_date")
		return
	}

	result, err := a.scheduler.Suggest(r.Context(), scheduling.SuggestRequest{
		ResourceID:      req.ResourceID,
		EventType:       models.EventType(req.EventType),
		PreferredDate:   preferred,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}

	response := map[string]any{
		"found":    result.Found,
		"holidays": result.Holidays,
	}
	if result.Found {
		response["starts_at"] = result.Slot.StartsAt
		response["ends_at"] = result.Slot.EndsAt
	}
	writeJSON(w, http.StatusOK, response)
}

type eventRequest struct {
	ResourceID   string    `json:"resource_id"`
	Type         string    `json:"type"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	CreativeMode *string   `json:"creative_mode,omitempty"`
	PieceCount   *int      `json:"piece_count,omitempty"`
	Location     string    `json:"location,omitempty"`
	EquipmentIDs []string  `json:"equipment_ids,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

func (req *eventRequest) toModel() *models.Event {
	event := &models.Event{
		ResourceID:   req.ResourceID,
		Type:         models.EventType(req.Type),
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		PieceCount:   req.PieceCount,
		Location:     req.Location,
		EquipmentIDs: req.EquipmentIDs,
		Notes:        req.Notes,
	}
	if req.CreativeMode != nil {
		mode := models.CreativeMode(*req.CreativeMode)
		event.CreativeMode = &mode
	}
	return event
}

func (a *API) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	event, err := a.scheduler.Commit(r.Context(), req.toModel(), false)
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

func (a *API) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")
	event, err := a.scheduler.Event(r.Context(), id)
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (a *API) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	event := req.toModel()
	event.ID = chi.URLParam(r, "eventID")

	updated, err := a.scheduler.Commit(r.Context(), event, true)
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleCancelEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")
	if err := a.scheduler.Cancel(r.Context(), id); err != nil {
		a.writeSchedulingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAgenda(w http.ResponseWriter, r *http.Request) {
	resourceID := r.URL.Query().Get("resource_id")
	if resourceID == "" {
		writeError(w, http.StatusBadRequest, "resource_id_required")
		return
	}

	date, err := a.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	agenda, err := a.scheduler.Agenda(r.Context(), resourceID, date)
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, agenda)
}

func (a *API) handleResources(w http.ResponseWriter, r *http.Request) {
	resources, err := a.scheduler.Resources(r.Context())
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resources)
}

func (a *API) handleHolidays(w http.ResponseWriter, r *http.Request) {
	date, err := a.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	holidays, err := a.scheduler.HolidaysOn(r.Context(), date)
	if err != nil {
		a.writeSchedulingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holidays)
}

func (a *API) handleEventFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = events.KnownEventTypes
	}

	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Error().Err(err).Msg("websocket ping failed")
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		default:
			sent := false
			for i, sub := range subscribers {
				select {
				case payload := <-sub:
					if err := a.writeEvent(ctx, conn, eventTypes[i], payload); err != nil {
						a.logger.Error().Err(err).Msg("websocket write failed")
						conn.Close(ws.StatusInternalError, "write failed")
						return
					}
					sent = true
				default:
				}
			}
			if !sent {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

func (a *API) writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	data := map[string]any{
		"type":    eventType,
		"payload": payload,
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, bytes)
}

// writeSchedulingError maps engine errors onto the HTTP surface. Conflicts
// carry the colliding events in the body so portals can render them.
func (a *API) writeSchedulingError(w http.ResponseWriter, err error) {
	var conflict *scheduling.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "conflict",
			"conflicts": conflict.Conflicts,
		})
		return
	}

	var batch *scheduling.BatchViolationError
	if errors.As(err, &batch) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":       "batch_policy_violation",
			"piece_count": batch.PieceCount,
			"message":     batch.Error(),
		})
		return
	}

	var validation *scheduling.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "validation_failed",
			"field":   validation.Field,
			"message": validation.Reason,
		})
		return
	}

	if errors.Is(err, scheduling.ErrStoreUnavailable) {
		a.logger.Error().Err(err).Msg("store unavailable")
		writeError(w, http.StatusBadGateway, "store_unavailable")
		return
	}

	a.logger.Error().Err(err).Msg("unhandled scheduling error")
	writeError(w, http.StatusInternalServerError, "internal_error")
}

// parseDate accepts YYYY-MM-DD in the configured timezone or a full RFC 3339
// timestamp. Empty means today.
func (a *API) parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().In(a.location), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, a.location); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, events.EventType(strings.TrimSpace(part)))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
