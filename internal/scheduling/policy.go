/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import "github.com/friendsincode/pauta/internal/models"

// Batch events carry between 1 and 12 pieces, inclusive.
const (
	BatchMinPieces = 1
	BatchMaxPieces = 12
)

// DefaultDurationMinutes is the fallback for unrecognized event types.
const DefaultDurationMinutes = 60

// DurationPolicy maps an event type to its default span in minutes. It only
// pre-fills suggestions; a manually chosen range is never validated against
// it.
type DurationPolicy map[models.EventType]int

// DefaultDurationPolicy returns the agency's standard duration table.
func DefaultDurationPolicy() DurationPolicy {
	return DurationPolicy{
		models.EventSingleCreation:  35,
		models.EventBatchCreation:   120,
		models.EventShortEdit:       30,
		models.EventLongEdit:        90,
		models.EventInternalCapture: 60,
		models.EventExternalCapture: 180,
		models.EventPlanning:        60,
		models.EventMeeting:         60,
	}
}

// DurationMinutes resolves the default duration for an event type.
func (p DurationPolicy) DurationMinutes(t models.EventType) int {
	if minutes, ok := p[t]; ok && minutes > 0 {
		return minutes
	}
	return DefaultDurationMinutes
}

// ValidateBatch enforces the piece-count range for batch-mode events. It is
// a no-op for single-piece mode or events without a creative mode. Out of
// range counts are rejected, never clamped.
func ValidateBatch(mode *models.CreativeMode, pieceCount *int) error {
	if mode == nil || *mode != models.ModeBatch {
		return nil
	}
	if pieceCount == nil {
		return &ValidationError{Field: "piece_count", Reason: "required for batch mode"}
	}
	if *pieceCount < BatchMinPieces || *pieceCount > BatchMaxPieces {
		return &BatchViolationError{PieceCount: *pieceCount}
	}
	return nil
}
