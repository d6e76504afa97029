/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/pauta/internal/models"
)

// Detector answers whether a candidate interval collides with a resource's
// existing bookings. It is a pure read-side query; cross-resource overlap is
// never a conflict.
type Detector struct {
	store  EventStore
	logger zerolog.Logger
}

// NewDetector creates a conflict detector over the given event store.
func NewDetector(store EventStore, logger zerolog.Logger) *Detector {
	return &Detector{
		store:  store,
		logger: logger.With().Str("component", "conflict_detector").Logger(),
	}
}

// FindConflicts returns the resource's events overlapping the half-open
// candidate interval [start, end), ascending by start time. excludeEventID,
// when non-empty, removes the record being edited from the check. An empty
// result means the range is free; a store failure is propagated and must not
// be read as "no conflict".
func (d *Detector) FindConflicts(ctx context.Context, resourceID string, start, end time.Time, excludeEventID string) ([]models.Event, error) {
	events, err := d.store.ListForResourceBetween(ctx, resourceID, start, end)
	if err != nil {
		d.logger.Error().Err(err).Str("resource", resourceID).Msg("conflict lookup failed")
		return nil, fmt.Errorf("%w: list events: %v", ErrStoreUnavailable, err)
	}

	conflicts := make([]models.Event, 0, len(events))
	for _, event := range events {
		if excludeEventID != "" && event.ID == excludeEventID {
			continue
		}
		if event.Overlaps(start, end) {
			conflicts = append(conflicts, event)
		}
	}

	// The store already orders by start; keep the report deterministic even
	// if an implementation does not.
	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].StartsAt.Before(conflicts[j].StartsAt)
	})

	return conflicts, nil
}
