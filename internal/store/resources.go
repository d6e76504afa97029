/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/pauta/internal/cache"
	"github.com/friendsincode/pauta/internal/models"
)

// ResourceDirectory resolves resource identifiers to directory metadata.
// The engine only reads it; ownership of the records lives with the people
// directory. Create exists for fixtures and operational seeding.
type ResourceDirectory struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewResourceDirectory creates the directory adapter. cache may be nil.
func NewResourceDirectory(database *gorm.DB, c *cache.Cache, logger zerolog.Logger) *ResourceDirectory {
	return &ResourceDirectory{
		db:     database,
		cache:  c,
		logger: logger.With().Str("component", "resource_directory").Logger(),
	}
}

// Get resolves one resource; a missing record returns (nil, nil).
func (d *ResourceDirectory) Get(ctx context.Context, id string) (*models.Resource, error) {
	if cached, ok := d.cache.GetResource(ctx, id); ok {
		return cached, nil
	}

	var resource models.Resource
	err := d.db.WithContext(ctx).First(&resource, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load resource: %w", err)
	}

	d.cache.SetResource(ctx, &resource)
	return &resource, nil
}

// List returns every resource ordered by name.
func (d *ResourceDirectory) List(ctx context.Context) ([]models.Resource, error) {
	var resources []models.Resource
	if err := d.db.WithContext(ctx).Order("name ASC").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// Create registers a resource.
func (d *ResourceDirectory) Create(ctx context.Context, resource *models.Resource) error {
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	if err := d.db.WithContext(ctx).Create(resource).Error; err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	d.cache.SetResource(ctx, resource)
	return nil
}
