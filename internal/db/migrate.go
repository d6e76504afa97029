/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/pauta/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate, then
// installs the per-resource range-exclusion constraint where the backend
// supports it. The constraint is the authoritative backstop for the
// non-overlap invariant; the in-process conflict check alone is advisory.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Resource{},
		&models.Event{},
		&models.Holiday{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	if database.Dialector.Name() == "postgres" {
		if err := installExclusionConstraint(database); err != nil {
			return fmt.Errorf("install exclusion constraint: %w", err)
		}
	}

	return nil
}

// installExclusionConstraint adds the postgres EXCLUDE constraint that makes
// overlapping scheduled events on one resource impossible to persist, no
// matter how many process instances are committing.
func installExclusionConstraint(database *gorm.DB) error {
	if err := database.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		return err
	}

	var count int64
	err := database.Raw(
		`SELECT COUNT(*) FROM pg_constraint WHERE conname = 'events_resource_no_overlap'`,
	).Scan(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return database.Exec(`
		ALTER TABLE events ADD CONSTRAINT events_resource_no_overlap
		EXCLUDE USING gist (
			resource_id WITH =,
			tstzrange(starts_at, ends_at) WITH &&
		) WHERE (status <> 'cancelled')
	`).Error
}
