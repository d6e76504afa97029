/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/pauta/internal/cache"
	"github.com/friendsincode/pauta/internal/models"
)

// HolidayStore serves the advisory holiday calendar, optionally fronted by
// the Redis cache since the same few dates are queried on every keystroke.
type HolidayStore struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewHolidayStore creates the holiday calendar adapter. cache may be nil.
func NewHolidayStore(database *gorm.DB, c *cache.Cache, logger zerolog.Logger) *HolidayStore {
	return &HolidayStore{
		db:     database,
		cache:  c,
		logger: logger.With().Str("component", "holiday_store").Logger(),
	}
}

// HolidaysOnDate returns every holiday record on the given calendar date.
// Dates are normalized to UTC midnight, which is how seeding stores them.
func (s *HolidayStore) HolidaysOnDate(ctx context.Context, date time.Time) ([]models.Holiday, error) {
	day := normalizeDate(date)

	if cached, ok := s.cache.GetHolidays(ctx, day); ok {
		return cached, nil
	}

	var holidays []models.Holiday
	err := s.db.WithContext(ctx).
		Where("date = ?", day).
		Order("class ASC, name ASC").
		Find(&holidays).Error
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}

	s.cache.SetHolidays(ctx, day, holidays)
	return holidays, nil
}

// Upsert stores a holiday fact, keyed by date+name so reseeding a year is
// idempotent.
func (s *HolidayStore) Upsert(ctx context.Context, holiday models.Holiday) error {
	holiday.Date = normalizeDate(holiday.Date)

	var existing models.Holiday
	err := s.db.WithContext(ctx).
		First(&existing, "date = ? AND name = ?", holiday.Date, holiday.Name).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if holiday.ID == "" {
			holiday.ID = uuid.NewString()
		}
		if err := s.db.WithContext(ctx).Create(&holiday).Error; err != nil {
			return fmt.Errorf("create holiday: %w", err)
		}
	case err != nil:
		return fmt.Errorf("load holiday: %w", err)
	default:
		existing.Class = holiday.Class
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return fmt.Errorf("update holiday: %w", err)
		}
	}

	s.cache.InvalidateHolidays(ctx, holiday.Date)
	return nil
}

func normalizeDate(date time.Time) time.Time {
	year, month, day := date.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
