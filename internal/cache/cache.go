/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based read-through cache for the lookups
// that run at keystroke frequency: holiday-by-date and resource directory
// entries. It degrades to a no-op when Redis is unreachable.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/pauta/internal/models"
)

// Default TTL values for the cached lookups.
const (
	DefaultHolidayTTL  = 12 * time.Hour
	DefaultResourceTTL = 5 * time.Minute
)

// Key prefixes for Redis cache.
const (
	KeyHolidays = "pauta:cache:holidays:" // + YYYY-MM-DD
	KeyResource = "pauta:cache:resource:" // + resource_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HolidayTTL  time.Duration
	ResourceTTL time.Duration

	// DisableOnError trips the circuit breaker on the first Redis failure.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		HolidayTTL:     DefaultHolidayTTL,
		ResourceTTL:    DefaultResourceTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a new cache instance. A failing ping leaves the cache disabled
// rather than failing startup; the engine works without it.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	if cfg.HolidayTTL <= 0 {
		cfg.HolidayTTL = DefaultHolidayTTL
	}
	if cfg.ResourceTTL <= 0 {
		cfg.ResourceTTL = DefaultResourceTTL
	}

	componentLogger := logger.With().Str("component", "cache").Logger()

	if cfg.RedisAddr == "" {
		return &Cache{logger: componentLogger, config: cfg, disabled: true}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		componentLogger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{logger: componentLogger, config: cfg, disabled: true}, nil
	}

	componentLogger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")
	return &Cache{client: client, logger: componentLogger, config: cfg}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// GetHolidays returns the cached holidays for a date, if present.
func (c *Cache) GetHolidays(ctx context.Context, date time.Time) ([]models.Holiday, bool) {
	var holidays []models.Holiday
	if ok := c.get(ctx, KeyHolidays+dateKey(date), &holidays); !ok {
		return nil, false
	}
	return holidays, true
}

// SetHolidays stores the holidays for a date.
func (c *Cache) SetHolidays(ctx context.Context, date time.Time, holidays []models.Holiday) {
	if !c.IsAvailable() {
		return
	}
	c.set(ctx, KeyHolidays+dateKey(date), holidays, c.config.HolidayTTL)
}

// InvalidateHolidays drops the cached entry for a date (used by seeding).
func (c *Cache) InvalidateHolidays(ctx context.Context, date time.Time) {
	if !c.IsAvailable() {
		return
	}
	if err := c.client.Del(ctx, KeyHolidays+dateKey(date)).Err(); err != nil {
		c.handleError(err, "invalidate_holidays")
	}
}

// GetResource returns the cached resource, if present.
func (c *Cache) GetResource(ctx context.Context, id string) (*models.Resource, bool) {
	var resource models.Resource
	if ok := c.get(ctx, KeyResource+id, &resource); !ok {
		return nil, false
	}
	return &resource, true
}

// SetResource stores a directory entry.
func (c *Cache) SetResource(ctx context.Context, resource *models.Resource) {
	if resource == nil || !c.IsAvailable() {
		return
	}
	c.set(ctx, KeyResource+resource.ID, resource, c.config.ResourceTTL)
}

func (c *Cache) get(ctx context.Context, key string, dest any) bool {
	if !c.IsAvailable() {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.handleError(err, "get")
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache entry unmarshal failed")
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.IsAvailable() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
	}
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

func dateKey(date time.Time) string {
	return date.Format("2006-01-02")
}
