/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/pauta/internal/models"
)

func newTestService(store EventStore, calendar HolidayCalendar) *Service {
	if calendar == nil {
		calendar = newMemCalendar()
	}
	directory := newMemDirectory("studio-a", "studio-b")
	hours := DefaultBusinessHours(time.UTC)
	return NewService(store, calendar, directory, DefaultDurationPolicy(), hours, DefaultLookaheadDays, nil, zerolog.Nop())
}

func TestCheckConflict_OverlapReported(t *testing.T) {
	store := newMemStore()
	booked := store.add("studio-a", at(testDay, 9, 0), at(testDay, 9, 35))
	svc := newTestService(store, nil)

	result, err := svc.CheckConflict(context.Background(), CheckRequest{
		ResourceID: "studio-a",
		StartsAt:   at(testDay, 9, 10),
		EndsAt:     at(testDay, 9, 40),
	})
	if err != nil {
		t.Fatalf("CheckConflict() error = %v", err)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].ID != booked.ID {
		t.Fatalf("CheckConflict() conflicts = %+v, want the 09:00-09:35 booking", result.Conflicts)
	}
}

func TestCheckConflict_IsIdempotent(t *testing.T) {
	store := newMemStore()
	store.add("studio-a", at(testDay, 9, 0), at(testDay, 10, 0))
	svc := newTestService(store, nil)

	req := CheckRequest{ResourceID: "studio-a", StartsAt: at(testDay, 9, 30), EndsAt: at(testDay, 10, 30)}
	first, err := svc.CheckConflict(context.Background(), req)
	if err != nil {
		t.Fatalf("CheckConflict() error = %v", err)
	}
	second, err := svc.CheckConflict(context.Background(), req)
	if err != nil {
		t.Fatalf("CheckConflict() second call error = %v", err)
	}
	if len(first.Conflicts) != len(second.Conflicts) {
		t.Errorf("CheckConflict() not idempotent: %d then %d conflicts", len(first.Conflicts), len(second.Conflicts))
	}
}

func TestCheckConflict_RejectsInvertedRange(t *testing.T) {
	svc := newTestService(newMemStore(), nil)

	_, err := svc.CheckConflict(context.Background(), CheckRequest{
		ResourceID: "studio-a",
		StartsAt:   at(testDay, 10, 0),
		EndsAt:     at(testDay, 9, 0),
	})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("CheckConflict() error = %v, want *ValidationError", err)
	}
}

func TestCheckConflict_UnknownResource(t *testing.T) {
	svc := newTestService(newMemStore(), nil)

	_, err := svc.CheckConflict(context.Background(), CheckRequest{
		ResourceID: "no-such-studio",
		StartsAt:   at(testDay, 9, 0),
		EndsAt:     at(testDay, 10, 0),
	})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("CheckConflict() error = %v, want *ValidationError", err)
	}
	if validation.Field != "resource_id" {
		t.Errorf("ValidationError.Field = %q, want resource_id", validation.Field)
	}
}

func TestCheckConflict_HolidayAdvisoryDoesNotBlock(t *testing.T) {
	store := newMemStore()
	calendar := newMemCalendar()
	calendar.add(testDay, "Feriado Municipal", models.HolidayMunicipal)
	svc := newTestService(store, calendar)

	result, err := svc.CheckConflict(context.Background(), CheckRequest{
		ResourceID: "studio-a",
		StartsAt:   at(testDay, 9, 0),
		EndsAt:     at(testDay, 10, 0),
	})
	if err != nil {
		t.Fatalf("CheckConflict() error = %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("CheckConflict() conflicts = %d, holiday must not create conflicts", len(result.Conflicts))
	}
	if len(result.Holidays) != 1 || result.Holidays[0].Name != "Feriado Municipal" {
		t.Errorf("CheckConflict() holidays = %+v, want the municipal advisory", result.Holidays)
	}
}

func TestCheckConflict_AdvisoryLookupsBounded(t *testing.T) {
	store := newMemStore()
	calendar := newMemCalendar()
	svc := newTestService(store, calendar)

	// A three-year interval must not fan out into one lookup per day.
	_, err := svc.CheckConflict(context.Background(), CheckRequest{
		ResourceID: "studio-a",
		StartsAt:   at(testDay, 9, 0),
		EndsAt:     at(testDay.AddDate(3, 0, 0), 10, 0),
	})
	if err != nil {
		t.Fatalf("CheckConflict() error = %v", err)
	}
	if calendar.calls > maxAdvisoryDays {
		t.Errorf("holiday lookups = %d, want at most %d", calendar.calls, maxAdvisoryDays)
	}
}

func TestCommit_PersistsAndDefaultsStatus(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)

	event := &models.Event{
		ResourceID: "studio-a",
		Type:       models.EventMeeting,
		StartsAt:   at(testDay, 9, 0),
		EndsAt:     at(testDay, 10, 0),
	}
	committed, err := svc.Commit(context.Background(), event, false)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if committed.ID == "" {
		t.Error("Commit() did not assign an ID")
	}
	if committed.Status != models.EventScheduled {
		t.Errorf("Commit() status = %q, want scheduled", committed.Status)
	}

	stored, err := store.Get(context.Background(), committed.ID)
	if err != nil || stored == nil {
		t.Fatalf("Get() after commit = (%v, %v), want stored event", stored, err)
	}
}

func TestCommit_ConflictRejectsAtomically(t *testing.T) {
	store := newMemStore()
	store.add("studio-a", at(testDay, 9, 0), at(testDay, 9, 35))
	svc := newTestService(store, nil)

	event := &models.Event{
		ResourceID: "studio-a",
		Type:       models.EventSingleCreation,
		StartsAt:   at(testDay, 9, 10),
		EndsAt:     at(testDay, 9, 40),
	}
	_, err := svc.Commit(context.Background(), event, false)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Commit() error = %v, want *ConflictError", err)
	}
	if len(conflict.Conflicts) != 1 {
		t.Errorf("ConflictError.Conflicts = %d, want 1", len(conflict.Conflicts))
	}

	listed, err := store.ListForResourceBetween(context.Background(), "studio-a", at(testDay, 0, 0), at(testDay, 23, 59))
	if err != nil {
		t.Fatalf("ListForResourceBetween() error = %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("rejected commit left %d events, want 1", len(listed))
	}
}

func TestCommit_BatchViolationBeforeConflictCheck(t *testing.T) {
	store := newMemStore()
	// The same interval also conflicts; the batch rejection must win.
	store.add("studio-a", at(testDay, 9, 0), at(testDay, 11, 0))
	svc := newTestService(store, nil)

	batch := models.ModeBatch
	pieces := 13
	event := &models.Event{
		ResourceID:   "studio-a",
		Type:         models.EventBatchCreation,
		StartsAt:     at(testDay, 9, 0),
		EndsAt:       at(testDay, 11, 0),
		CreativeMode: &batch,
		PieceCount:   &pieces,
	}
	_, err := svc.Commit(context.Background(), event, false)
	var violation *BatchViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("Commit() error = %v, want *BatchViolationError before any conflict check", err)
	}
	if violation.PieceCount != 13 {
		t.Errorf("BatchViolationError.PieceCount = %d, want 13", violation.PieceCount)
	}
}

func TestCommit_BatchBoundsAccepted(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)

	batch := models.ModeBatch
	for i, pieces := range []int{1, 12} {
		pieces := pieces
		event := &models.Event{
			ResourceID:   "studio-a",
			Type:         models.EventBatchCreation,
			StartsAt:     at(testDay.AddDate(0, 0, i), 9, 0),
			EndsAt:       at(testDay.AddDate(0, 0, i), 11, 0),
			CreativeMode: &batch,
			PieceCount:   &pieces,
		}
		if _, err := svc.Commit(context.Background(), event, false); err != nil {
			t.Errorf("Commit() with %d pieces error = %v, want accepted", pieces, err)
		}
	}
}

func TestCommit_PieceCountRequiresBatchMode(t *testing.T) {
	svc := newTestService(newMemStore(), nil)

	single := models.ModeSingle
	pieces := 3
	event := &models.Event{
		ResourceID:   "studio-a",
		Type:         models.EventSingleCreation,
		StartsAt:     at(testDay, 9, 0),
		EndsAt:       at(testDay, 9, 35),
		CreativeMode: &single,
		PieceCount:   &pieces,
	}
	_, err := svc.Commit(context.Background(), event, false)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Commit() error = %v, want *ValidationError", err)
	}
	if validation.Field != "piece_count" {
		t.Errorf("ValidationError.Field = %q, want piece_count", validation.Field)
	}
}

func TestCommit_CreativeModeOnlyOnCreativeTypes(t *testing.T) {
	svc := newTestService(newMemStore(), nil)

	single := models.ModeSingle
	event := &models.Event{
		ResourceID:   "studio-a",
		Type:         models.EventMeeting,
		StartsAt:     at(testDay, 9, 0),
		EndsAt:       at(testDay, 10, 0),
		CreativeMode: &single,
	}
	_, err := svc.Commit(context.Background(), event, false)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Commit() error = %v, want *ValidationError", err)
	}
}

func TestCommit_UpdateExcludesOwnInterval(t *testing.T) {
	store := newMemStore()
	booked := store.add("studio-a", at(testDay, 9, 0), at(testDay, 10, 0))
	svc := newTestService(store, nil)

	// Shift the same booking 30 minutes later; it overlaps only itself.
	updated := booked
	updated.StartsAt = at(testDay, 9, 30)
	updated.EndsAt = at(testDay, 10, 30)
	if _, err := svc.Commit(context.Background(), &updated, true); err != nil {
		t.Fatalf("Commit(update) error = %v, want self-overlap ignored", err)
	}
}

// raceStore reports a free pre-check but loses the insert race, as when a
// concurrent writer lands between check and act.
type raceStore struct {
	*memStore
	winner models.Event
}

func (s *raceStore) ListForResourceBetween(ctx context.Context, resourceID string, from, to time.Time) ([]models.Event, error) {
	return []models.Event{}, nil
}

func (s *raceStore) Insert(ctx context.Context, event *models.Event) error {
	return &ConflictError{Conflicts: []models.Event{s.winner}}
}

func TestCommit_LostRaceSurfacesAsConflict(t *testing.T) {
	winner := models.Event{ID: "rival", ResourceID: "studio-a", StartsAt: at(testDay, 9, 0), EndsAt: at(testDay, 10, 0)}
	store := &raceStore{memStore: newMemStore(), winner: winner}
	svc := newTestService(store, nil)

	event := &models.Event{
		ResourceID: "studio-a",
		Type:       models.EventMeeting,
		StartsAt:   at(testDay, 9, 0),
		EndsAt:     at(testDay, 10, 0),
	}
	_, err := svc.Commit(context.Background(), event, false)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Commit() error = %v, want *ConflictError from the storage guard", err)
	}
	if len(conflict.Conflicts) != 1 || conflict.Conflicts[0].ID != "rival" {
		t.Errorf("ConflictError.Conflicts = %+v, want the rival booking", conflict.Conflicts)
	}
}

func TestCancel_FreesInterval(t *testing.T) {
	store := newMemStore()
	booked := store.add("studio-a", at(testDay, 9, 0), at(testDay, 10, 0))
	svc := newTestService(store, nil)

	if err := svc.Cancel(context.Background(), booked.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	result, err := svc.CheckConflict(context.Background(), CheckRequest{
		ResourceID: "studio-a",
		StartsAt:   at(testDay, 9, 0),
		EndsAt:     at(testDay, 10, 0),
	})
	if err != nil {
		t.Fatalf("CheckConflict() after cancel error = %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("cancelled booking still conflicts: %+v", result.Conflicts)
	}
}

func TestCancel_UnknownEvent(t *testing.T) {
	svc := newTestService(newMemStore(), nil)

	err := svc.Cancel(context.Background(), "missing")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Cancel() error = %v, want *ValidationError", err)
	}
}

func TestSuggest_AttachesHolidayAdvisory(t *testing.T) {
	store := newMemStore()
	calendar := newMemCalendar()
	calendar.add(testDay, "Feriado Nacional", models.HolidayNational)
	svc := newTestService(store, calendar)

	result, err := svc.Suggest(context.Background(), SuggestRequest{
		ResourceID:    "studio-a",
		EventType:     models.EventMeeting,
		PreferredDate: testDay,
	})
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if !result.Found {
		t.Fatal("Suggest() found = false, holidays must not remove capacity")
	}
	if len(result.Holidays) != 1 {
		t.Errorf("Suggest() holidays = %d, want the advisory for the chosen date", len(result.Holidays))
	}
}

func TestAgenda_DayView(t *testing.T) {
	store := newMemStore()
	store.add("studio-a", at(testDay, 9, 0), at(testDay, 10, 0))
	store.add("studio-a", at(testDay.AddDate(0, 0, 1), 9, 0), at(testDay.AddDate(0, 0, 1), 10, 0))
	svc := newTestService(store, nil)

	agenda, err := svc.Agenda(context.Background(), "studio-a", testDay)
	if err != nil {
		t.Fatalf("Agenda() error = %v", err)
	}
	if len(agenda.Events) != 1 {
		t.Errorf("Agenda() = %d events, want only the requested day", len(agenda.Events))
	}
	if agenda.Resource == nil || agenda.Resource.ID != "studio-a" {
		t.Errorf("Agenda() resource = %+v, want studio-a", agenda.Resource)
	}
}
