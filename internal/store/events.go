/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store implements the engine's persistence adapters on top of gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/pauta/internal/models"
	"github.com/friendsincode/pauta/internal/scheduling"
)

// pgExclusionViolation is the SQLSTATE raised when the events table's
// range-exclusion constraint rejects an overlapping insert.
const pgExclusionViolation = "23P01"

// EventStore persists events and enforces the per-resource non-overlap
// exclusion invariant as the last line of defense. Commits are serialized
// per resource by locking the resource row inside the write transaction; on
// postgres the EXCLUDE constraint additionally makes a lost race impossible
// to persist even across process instances.
type EventStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewEventStore creates the event store adapter.
func NewEventStore(database *gorm.DB, logger zerolog.Logger) *EventStore {
	return &EventStore{
		db:     database,
		logger: logger.With().Str("component", "event_store").Logger(),
	}
}

// ListForResourceBetween returns the resource's scheduled events whose
// half-open interval intersects [from, to), ascending by start. No events is
// an empty list, never an error.
func (s *EventStore) ListForResourceBetween(ctx context.Context, resourceID string, from, to time.Time) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("resource_id = ? AND starts_at < ? AND ends_at > ? AND status <> ?",
			resourceID, to, from, models.EventCancelled).
		Order("starts_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Get loads one event by id; a missing record returns (nil, nil).
func (s *EventStore) Get(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).First(&event, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	return &event, nil
}

// Insert persists a new event, re-checking overlap inside the write
// transaction. A collision surfaces as *scheduling.ConflictError whether it
// is caught by the transactional re-check or by the storage constraint.
func (s *EventStore) Insert(ctx context.Context, event *models.Event) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockResource(tx, event.ResourceID); err != nil {
			return err
		}
		if err := s.guardOverlap(tx, event, ""); err != nil {
			return err
		}
		return tx.Create(event).Error
	})
	return s.mapWriteError(ctx, err, event, "")
}

// Update persists changes to an existing event under the same guard,
// excluding the record itself from the overlap check.
func (s *EventStore) Update(ctx context.Context, event *models.Event) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockResource(tx, event.ResourceID); err != nil {
			return err
		}
		if err := s.guardOverlap(tx, event, event.ID); err != nil {
			return err
		}
		return tx.Save(event).Error
	})
	return s.mapWriteError(ctx, err, event, event.ID)
}

// Cancel marks the event cancelled, freeing its interval.
func (s *EventStore) Cancel(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Update("status", models.EventCancelled)
	if result.Error != nil {
		return fmt.Errorf("cancel event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("cancel event: %s not found", id)
	}
	return nil
}

// lockResource serializes concurrent commits for one resource. SQLite has a
// single writer and no row locks, so the clause is skipped there.
func (s *EventStore) lockResource(tx *gorm.DB, resourceID string) error {
	if tx.Dialector.Name() == "sqlite" {
		return nil
	}
	var resource models.Resource
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&resource, "id = ?", resourceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Unknown resources are rejected by the facade before the write
		// path; reaching here means the directory row vanished mid-commit.
		return fmt.Errorf("lock resource: %s not found", resourceID)
	}
	return err
}

// guardOverlap re-runs the overlap query inside the write transaction so the
// check and the insert observe the same timeline.
func (s *EventStore) guardOverlap(tx *gorm.DB, event *models.Event, excludeID string) error {
	query := tx.
		Where("resource_id = ? AND starts_at < ? AND ends_at > ? AND status <> ?",
			event.ResourceID, event.EndsAt, event.StartsAt, models.EventCancelled)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var conflicts []models.Event
	if err := query.Order("starts_at ASC").Find(&conflicts).Error; err != nil {
		return fmt.Errorf("overlap guard: %w", err)
	}
	if len(conflicts) > 0 {
		return &scheduling.ConflictError{Conflicts: conflicts}
	}
	return nil
}

// mapWriteError turns a postgres exclusion violation into the same
// *scheduling.ConflictError a check-time rejection produces, loading the
// colliding events for the report.
func (s *EventStore) mapWriteError(ctx context.Context, err error, event *models.Event, excludeID string) error {
	if err == nil {
		return nil
	}

	var conflict *scheduling.ConflictError
	if errors.As(err, &conflict) {
		return conflict
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
		conflicts, lookupErr := s.conflictsFor(ctx, event, excludeID)
		if lookupErr != nil {
			s.logger.Warn().Err(lookupErr).Msg("conflict report lookup failed after exclusion violation")
		}
		return &scheduling.ConflictError{Conflicts: conflicts}
	}

	return fmt.Errorf("persist event: %w", err)
}

func (s *EventStore) conflictsFor(ctx context.Context, event *models.Event, excludeID string) ([]models.Event, error) {
	events, err := s.ListForResourceBetween(ctx, event.ResourceID, event.StartsAt, event.EndsAt)
	if err != nil || excludeID == "" {
		return events, err
	}
	filtered := events[:0]
	for _, candidate := range events {
		if candidate.ID != excludeID {
			filtered = append(filtered, candidate)
		}
	}
	return filtered, nil
}
