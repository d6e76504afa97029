/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/pauta/internal/models"
)

// Business-hours and lookahead defaults.
const (
	DefaultDayStartHour  = 8
	DefaultDayEndHour    = 18
	DefaultLookaheadDays = 14
)

// BusinessHours is the daily window suggestions must fall inside.
type BusinessHours struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// DefaultBusinessHours returns the 08:00-18:00 local window.
func DefaultBusinessHours(loc *time.Location) BusinessHours {
	if loc == nil {
		loc = time.Local
	}
	return BusinessHours{StartHour: DefaultDayStartHour, EndHour: DefaultDayEndHour, Location: loc}
}

// WindowFor resolves the business-hours interval of the given calendar day.
func (h BusinessHours) WindowFor(day time.Time) (time.Time, time.Time) {
	year, month, d := day.In(h.Location).Date()
	start := time.Date(year, month, d, h.StartHour, 0, 0, 0, h.Location)
	end := time.Date(year, month, d, h.EndHour, 0, 0, 0, h.Location)
	return start, end
}

// Slot is a candidate free interval.
type Slot struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// Suggester searches a resource's timeline for the earliest free interval of
// the required length, reusing the conflict detector as its occupancy oracle.
type Suggester struct {
	detector      *Detector
	policy        DurationPolicy
	hours         BusinessHours
	lookaheadDays int
	logger        zerolog.Logger
}

// NewSuggester creates a slot suggester. A non-positive lookahead falls back
// to the default so the search is always bounded.
func NewSuggester(detector *Detector, policy DurationPolicy, hours BusinessHours, lookaheadDays int, logger zerolog.Logger) *Suggester {
	if lookaheadDays <= 0 {
		lookaheadDays = DefaultLookaheadDays
	}
	if policy == nil {
		policy = DefaultDurationPolicy()
	}
	return &Suggester{
		detector:      detector,
		policy:        policy,
		hours:         hours,
		lookaheadDays: lookaheadDays,
		logger:        logger.With().Str("component", "slot_suggester").Logger(),
	}
}

// Suggest finds the earliest business-hours slot of durationMinutes on or
// after the preferred date. A zero durationMinutes resolves from the duration
// policy by event type. The boolean is false when the bounded lookahead is
// exhausted without a fit; that is a legitimate negative result, not an
// error. Holiday dates are not skipped here: the facade annotates the chosen
// date and leaves the call to a human.
func (s *Suggester) Suggest(ctx context.Context, resourceID string, eventType models.EventType, preferred time.Time, durationMinutes int) (Slot, bool, error) {
	if durationMinutes <= 0 {
		durationMinutes = s.policy.DurationMinutes(eventType)
	}
	need := time.Duration(durationMinutes) * time.Minute

	day := preferred.In(s.hours.Location)
	for i := 0; i < s.lookaheadDays; i++ {
		windowStart, windowEnd := s.hours.WindowFor(day)
		if windowEnd.Sub(windowStart) >= need {
			slot, ok, err := s.scanDay(ctx, resourceID, windowStart, windowEnd, need)
			if err != nil {
				return Slot{}, false, err
			}
			if ok {
				return slot, true, nil
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	s.logger.Debug().
		Str("resource", resourceID).
		Str("event_type", string(eventType)).
		Int("duration_minutes", durationMinutes).
		Msg("no slot within lookahead")
	return Slot{}, false, nil
}

// scanDay walks the gaps between the window edges and the merged busy set,
// returning the first gap long enough.
func (s *Suggester) scanDay(ctx context.Context, resourceID string, windowStart, windowEnd time.Time, need time.Duration) (Slot, bool, error) {
	busyEvents, err := s.detector.FindConflicts(ctx, resourceID, windowStart, windowEnd, "")
	if err != nil {
		return Slot{}, false, err
	}

	busy := mergeBusy(busyEvents, windowStart, windowEnd)

	cursor := windowStart
	for _, interval := range busy {
		if interval.start.Sub(cursor) >= need {
			return Slot{StartsAt: cursor, EndsAt: cursor.Add(need)}, true, nil
		}
		if interval.end.After(cursor) {
			cursor = interval.end
		}
	}
	if windowEnd.Sub(cursor) >= need {
		return Slot{StartsAt: cursor, EndsAt: cursor.Add(need)}, true, nil
	}
	return Slot{}, false, nil
}

type interval struct {
	start time.Time
	end   time.Time
}

// mergeBusy clamps events to the window and merges adjacent or overlapping
// intervals. The detector already sorts by start; merging is defensive so a
// messy timeline can never produce an overlapping suggestion.
func mergeBusy(events []models.Event, windowStart, windowEnd time.Time) []interval {
	merged := make([]interval, 0, len(events))
	for _, event := range events {
		iv := interval{start: event.StartsAt, end: event.EndsAt}
		if iv.start.Before(windowStart) {
			iv.start = windowStart
		}
		if iv.end.After(windowEnd) {
			iv.end = windowEnd
		}
		if !iv.end.After(iv.start) {
			continue
		}
		if n := len(merged); n > 0 && !iv.start.After(merged[n-1].end) {
			if iv.end.After(merged[n-1].end) {
				merged[n-1].end = iv.end
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
