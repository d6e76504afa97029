/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"errors"
	"fmt"

	"github.com/friendsincode/pauta/internal/models"
)

// ErrStoreUnavailable marks infrastructure failures (event store or holiday
// calendar unreachable). Callers must never read it as "the time is free".
var ErrStoreUnavailable = errors.New("scheduling store unavailable")

// ValidationError rejects malformed input before it reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError carries the colliding events for a well-formed request that
// overlaps existing bookings. It is a normal negative outcome, not a fault.
type ConflictError struct {
	Conflicts []models.Event
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schedule conflict with %d event(s)", len(e.Conflicts))
}

// BatchViolationError rejects batch piece counts outside [1,12].
type BatchViolationError struct {
	PieceCount int
}

func (e *BatchViolationError) Error() string {
	return fmt.Sprintf("batch piece count %d out of range [%d,%d]", e.PieceCount, BatchMinPieces, BatchMaxPieces)
}
