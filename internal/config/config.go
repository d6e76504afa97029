/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	DBBackend DatabaseBackend
	DBDSN     string

	// Scheduling policy knobs.
	Timezone         string
	BusinessDayStart int // hour, local time
	BusinessDayEnd   int // hour, local time
	LookaheadDays    int

	// Event distribution.
	NATSURL string

	// Read caching.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Tracing configuration.
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("PAUTA_ENV", "development"),
		HTTPBind:    getEnv("PAUTA_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("PAUTA_HTTP_PORT", 8080),
		MetricsBind: getEnv("PAUTA_METRICS_BIND", "127.0.0.1:9000"),

		DBBackend: DatabaseBackend(getEnv("PAUTA_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:     getEnv("PAUTA_DB_DSN", ""),

		Timezone:         getEnv("PAUTA_TIMEZONE", "America/Sao_Paulo"),
		BusinessDayStart: getEnvInt("PAUTA_BUSINESS_DAY_START", 8),
		BusinessDayEnd:   getEnvInt("PAUTA_BUSINESS_DAY_END", 18),
		LookaheadDays:    getEnvInt("PAUTA_SUGGEST_LOOKAHEAD_DAYS", 14),

		NATSURL: getEnv("PAUTA_NATS_URL", ""),

		RedisAddr:     getEnv("PAUTA_REDIS_ADDR", ""),
		RedisPassword: getEnv("PAUTA_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("PAUTA_REDIS_DB", 0),

		TracingEnabled:    getEnvBool("PAUTA_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("PAUTA_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("PAUTA_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("PAUTA_DB_DSN must be provided")
	}
	if cfg.BusinessDayStart < 0 || cfg.BusinessDayEnd > 24 || cfg.BusinessDayStart >= cfg.BusinessDayEnd {
		return nil, fmt.Errorf("business hours %02d:00-%02d:00 are not a valid window", cfg.BusinessDayStart, cfg.BusinessDayEnd)
	}
	if cfg.LookaheadDays <= 0 {
		return nil, fmt.Errorf("PAUTA_SUGGEST_LOOKAHEAD_DAYS must be positive")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid PAUTA_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location resolves the configured timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
