/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/pauta/internal/events"
	"github.com/friendsincode/pauta/internal/models"
	"github.com/friendsincode/pauta/internal/telemetry"
)

// Service is the scheduling facade, the only entry point external callers
// use. CheckConflict and Suggest are pure reads safe to call on every
// keystroke; Commit is the single mutating path and re-validates immediately
// before persisting, with the store's exclusion invariant as the
// authoritative backstop.
type Service struct {
	store     EventStore
	holidays  HolidayCalendar
	directory ResourceDirectory
	detector  *Detector
	suggester *Suggester
	hours     BusinessHours
	bus       events.Publisher
	logger    zerolog.Logger
}

// NewService wires the engine components around the given stores.
func NewService(store EventStore, holidays HolidayCalendar, directory ResourceDirectory, policy DurationPolicy, hours BusinessHours, lookaheadDays int, bus events.Publisher, logger zerolog.Logger) *Service {
	detector := NewDetector(store, logger)
	return &Service{
		store:     store,
		holidays:  holidays,
		directory: directory,
		detector:  detector,
		suggester: NewSuggester(detector, policy, hours, lookaheadDays, logger),
		hours:     hours,
		bus:       bus,
		logger:    logger.With().Str("component", "scheduling").Logger(),
	}
}

// CheckRequest is a candidate interval on one resource's timeline.
type CheckRequest struct {
	ResourceID     string
	StartsAt       time.Time
	EndsAt         time.Time
	ExcludeEventID string
}

// CheckResult reports colliding events plus holiday advisories for the dates
// the candidate interval spans.
type CheckResult struct {
	Conflicts []models.Event   `json:"conflicts"`
	Holidays  []models.Holiday `json:"holidays"`
}

// CheckConflict validates the candidate range against the resource's
// bookings. A populated conflict list is a normal outcome, not an error.
func (s *Service) CheckConflict(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	if err := s.validateRange(ctx, req.ResourceID, req.StartsAt, req.EndsAt); err != nil {
		return nil, err
	}

	telemetry.ConflictChecksTotal.Inc()

	conflicts, err := s.detector.FindConflicts(ctx, req.ResourceID, req.StartsAt, req.EndsAt, req.ExcludeEventID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		telemetry.ConflictsFoundTotal.Inc()
	}

	holidays, err := s.holidaysInRange(ctx, req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}

	return &CheckResult{Conflicts: conflicts, Holidays: holidays}, nil
}

// SuggestRequest asks for the earliest free slot for an event type.
type SuggestRequest struct {
	ResourceID      string
	EventType       models.EventType
	PreferredDate   time.Time
	DurationMinutes int // 0 resolves from the duration policy
}

// SuggestResult carries the earliest valid slot, or Found=false when the
// bounded lookahead holds no fitting gap.
type SuggestResult struct {
	Found    bool             `json:"found"`
	Slot     Slot             `json:"slot,omitempty"`
	Holidays []models.Holiday `json:"holidays"`
}

// Suggest searches for the earliest non-overlapping, business-hours slot on
// or after the preferred date. The chosen date's holidays are attached as
// advisories; they never remove capacity from the search.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResult, error) {
	if req.ResourceID == "" {
		return nil, &ValidationError{Field: "resource_id", Reason: "required"}
	}
	if _, err := s.resource(ctx, req.ResourceID); err != nil {
		return nil, err
	}

	slot, found, err := s.suggester.Suggest(ctx, req.ResourceID, req.EventType, req.PreferredDate, req.DurationMinutes)
	if err != nil {
		telemetry.SuggestionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if !found {
		telemetry.SuggestionsTotal.WithLabelValues("none").Inc()
		return &SuggestResult{Found: false, Holidays: []models.Holiday{}}, nil
	}
	telemetry.SuggestionsTotal.WithLabelValues("found").Inc()

	holidays, err := s.holidays.HolidaysOnDate(ctx, slot.StartsAt)
	if err != nil {
		return nil, fmt.Errorf("%w: holiday lookup: %v", ErrStoreUnavailable, err)
	}

	return &SuggestResult{Found: true, Slot: slot, Holidays: nonNilHolidays(holidays)}, nil
}

// Commit persists a new or edited event under the conflict guard. Validation
// (including batch policy) runs before any conflict check; conflicts are
// returned as *ConflictError with the colliding events and nothing is
// partially persisted. A commit that loses the race against a concurrent
// writer surfaces the same *ConflictError the pre-check would have produced.
func (s *Service) Commit(ctx context.Context, event *models.Event, isUpdate bool) (*models.Event, error) {
	if err := s.validateEvent(ctx, event, isUpdate); err != nil {
		telemetry.CommitsTotal.WithLabelValues("validation_rejected").Inc()
		return nil, err
	}

	exclude := ""
	if isUpdate {
		exclude = event.ID
	}
	conflicts, err := s.detector.FindConflicts(ctx, event.ResourceID, event.StartsAt, event.EndsAt, exclude)
	if err != nil {
		telemetry.CommitsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(conflicts) > 0 {
		telemetry.CommitsTotal.WithLabelValues("conflict").Inc()
		return nil, &ConflictError{Conflicts: conflicts}
	}

	if event.Status == "" {
		event.Status = models.EventScheduled
	}

	busEvent := events.EventCommitted
	if isUpdate {
		busEvent = events.EventUpdated
		err = s.store.Update(ctx, event)
	} else {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		err = s.store.Insert(ctx, event)
	}
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			// Lost the check-then-act race; the storage exclusion invariant
			// held and the caller sees an ordinary conflict outcome.
			telemetry.CommitsTotal.WithLabelValues("conflict").Inc()
			return nil, conflict
		}
		telemetry.CommitsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: persist event: %v", ErrStoreUnavailable, err)
	}

	telemetry.CommitsTotal.WithLabelValues("committed").Inc()
	s.publish(busEvent, event)
	return event, nil
}

// Cancel frees the event's interval for future bookings.
func (s *Service) Cancel(ctx context.Context, id string) error {
	event, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: load event: %v", ErrStoreUnavailable, err)
	}
	if event == nil {
		return &ValidationError{Field: "event_id", Reason: "unknown event"}
	}
	if err := s.store.Cancel(ctx, id); err != nil {
		return fmt.Errorf("%w: cancel event: %v", ErrStoreUnavailable, err)
	}
	event.Status = models.EventCancelled
	s.publish(events.EventCancelled, event)
	return nil
}

// Event loads one event by ID. A missing event is (nil, nil).
func (s *Service) Event(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load event: %v", ErrStoreUnavailable, err)
	}
	return event, nil
}

// AgendaResult is one resource's day view plus holiday advisories.
type AgendaResult struct {
	Resource *models.Resource `json:"resource"`
	Events   []models.Event   `json:"events"`
	Holidays []models.Holiday `json:"holidays"`
}

// Agenda lists a resource's scheduled events for one calendar day.
func (s *Service) Agenda(ctx context.Context, resourceID string, date time.Time) (*AgendaResult, error) {
	resource, err := s.resource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	year, month, day := date.In(s.hours.Location).Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, s.hours.Location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	eventsOfDay, err := s.store.ListForResourceBetween(ctx, resourceID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", ErrStoreUnavailable, err)
	}

	holidays, err := s.holidays.HolidaysOnDate(ctx, dayStart)
	if err != nil {
		return nil, fmt.Errorf("%w: holiday lookup: %v", ErrStoreUnavailable, err)
	}

	return &AgendaResult{
		Resource: resource,
		Events:   eventsOfDay,
		Holidays: nonNilHolidays(holidays),
	}, nil
}

// Resources exposes the read-only directory listing.
func (s *Service) Resources(ctx context.Context) ([]models.Resource, error) {
	resources, err := s.directory.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list resources: %v", ErrStoreUnavailable, err)
	}
	return resources, nil
}

// HolidaysOn exposes the advisory holiday lookup for a single date.
func (s *Service) HolidaysOn(ctx context.Context, date time.Time) ([]models.Holiday, error) {
	holidays, err := s.holidays.HolidaysOnDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%w: holiday lookup: %v", ErrStoreUnavailable, err)
	}
	return nonNilHolidays(holidays), nil
}

func (s *Service) validateRange(ctx context.Context, resourceID string, start, end time.Time) error {
	if resourceID == "" {
		return &ValidationError{Field: "resource_id", Reason: "required"}
	}
	if start.IsZero() || end.IsZero() {
		return &ValidationError{Field: "range", Reason: "starts_at and ends_at are required"}
	}
	if !end.After(start) {
		return &ValidationError{Field: "range", Reason: "ends_at must be after starts_at"}
	}
	_, err := s.resource(ctx, resourceID)
	return err
}

func (s *Service) validateEvent(ctx context.Context, event *models.Event, isUpdate bool) error {
	if event == nil {
		return &ValidationError{Field: "event", Reason: "required"}
	}
	if err := s.validateRange(ctx, event.ResourceID, event.StartsAt, event.EndsAt); err != nil {
		return err
	}
	if !event.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown event type %q", event.Type)}
	}
	if event.CreativeMode != nil && !event.Type.IsCreative() {
		return &ValidationError{Field: "creative_mode", Reason: "only applies to creation and edit types"}
	}
	if event.PieceCount != nil && (event.CreativeMode == nil || *event.CreativeMode != models.ModeBatch) {
		return &ValidationError{Field: "piece_count", Reason: "only applies to batch mode"}
	}
	if err := ValidateBatch(event.CreativeMode, event.PieceCount); err != nil {
		return err
	}
	if isUpdate {
		if event.ID == "" {
			return &ValidationError{Field: "event_id", Reason: "required for update"}
		}
		existing, err := s.store.Get(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("%w: load event: %v", ErrStoreUnavailable, err)
		}
		if existing == nil {
			return &ValidationError{Field: "event_id", Reason: "unknown event"}
		}
	}
	return nil
}

func (s *Service) resource(ctx context.Context, id string) (*models.Resource, error) {
	resource, err := s.directory.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve resource: %v", ErrStoreUnavailable, err)
	}
	if resource == nil {
		return nil, &ValidationError{Field: "resource_id", Reason: "unknown resource"}
	}
	return resource, nil
}

// maxAdvisoryDays bounds how many calendar dates holidaysInRange annotates.
// One store lookup runs per date, so an absurd multi-year interval must not
// fan out into thousands of queries.
const maxAdvisoryDays = 31

// holidaysInRange collects advisories for the calendar dates the half-open
// interval [start, end) touches, up to maxAdvisoryDays.
func (s *Service) holidaysInRange(ctx context.Context, start, end time.Time) ([]models.Holiday, error) {
	holidays := []models.Holiday{}
	year, month, day := start.In(s.hours.Location).Date()
	cursor := time.Date(year, month, day, 0, 0, 0, 0, s.hours.Location)
	for days := 0; cursor.Before(end) && days < maxAdvisoryDays; days++ {
		found, err := s.holidays.HolidaysOnDate(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: holiday lookup: %v", ErrStoreUnavailable, err)
		}
		holidays = append(holidays, found...)
		cursor = cursor.AddDate(0, 0, 1)
	}
	return holidays, nil
}

func (s *Service) publish(eventType events.EventType, event *models.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventType, events.Payload{
		"event_id":    event.ID,
		"resource_id": event.ResourceID,
		"type":        event.Type,
		"starts_at":   event.StartsAt,
		"ends_at":     event.EndsAt,
		"status":      event.Status,
	})
}

func nonNilHolidays(holidays []models.Holiday) []models.Holiday {
	if holidays == nil {
		return []models.Holiday{}
	}
	return holidays
}
