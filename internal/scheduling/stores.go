/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"time"

	"github.com/friendsincode/pauta/internal/models"
)

// EventStore is the narrow persistence interface the engine reads and writes
// through. Implementations enforce the per-resource non-overlap exclusion
// invariant on Insert/Update as the last line of defense; a lost race is
// reported as a *ConflictError exactly like a check-time rejection.
type EventStore interface {
	// ListForResourceBetween returns the resource's scheduled (non-cancelled)
	// events whose half-open interval intersects [from, to), ordered by start.
	ListForResourceBetween(ctx context.Context, resourceID string, from, to time.Time) ([]models.Event, error)
	Get(ctx context.Context, id string) (*models.Event, error)
	Insert(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Cancel(ctx context.Context, id string) error
}

// HolidayCalendar maps a calendar date to zero or more holiday records.
// Read-only and purely advisory.
type HolidayCalendar interface {
	HolidaysOnDate(ctx context.Context, date time.Time) ([]models.Holiday, error)
}

// ResourceDirectory resolves resource identifiers. The engine treats the
// identifiers as opaque keys owned elsewhere.
type ResourceDirectory interface {
	Get(ctx context.Context, id string) (*models.Resource, error)
	List(ctx context.Context) ([]models.Resource, error)
}
