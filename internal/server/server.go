/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/pauta/internal/api"
	"github.com/friendsincode/pauta/internal/cache"
	"github.com/friendsincode/pauta/internal/config"
	"github.com/friendsincode/pauta/internal/db"
	"github.com/friendsincode/pauta/internal/eventbus"
	"github.com/friendsincode/pauta/internal/events"
	"github.com/friendsincode/pauta/internal/scheduling"
	"github.com/friendsincode/pauta/internal/store"
	"github.com/friendsincode/pauta/internal/telemetry"
)

// Server bundles the HTTP surface and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db        *gorm.DB
	cache     *cache.Cache
	bus       *events.Bus
	bridge    *eventbus.Bridge
	scheduler *scheduling.Service
	api       *api.API
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()
	installMiddleware(router)

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

// installMiddleware applies the full production middleware chain. Kept as
// one unit so handler tests exercise the same stack serve runs.
func installMiddleware(router chi.Router) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("pauta-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for the WebSocket event feed.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	cacheCfg := cache.DefaultConfig()
	cacheCfg.RedisAddr = s.cfg.RedisAddr
	cacheCfg.RedisPassword = s.cfg.RedisPassword
	cacheCfg.RedisDB = s.cfg.RedisDB
	entityCache, err := cache.New(cacheCfg, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
	} else {
		s.cache = entityCache
		s.DeferClose(func() error { return s.cache.Close() })
	}

	bridge, err := eventbus.New(s.cfg.NATSURL, s.bus, s.logger)
	if err != nil {
		// Booking still works without the NATS mirror; the in-process feed
		// keeps serving local subscribers.
		s.logger.Warn().Err(err).Msg("NATS bridge unavailable, events stay in-process")
		bridge, _ = eventbus.New("", s.bus, s.logger)
	}
	s.bridge = bridge
	s.DeferClose(func() error { return s.bridge.Close() })

	eventStore := store.NewEventStore(database, s.logger)
	holidayStore := store.NewHolidayStore(database, s.cache, s.logger)
	directory := store.NewResourceDirectory(database, s.cache, s.logger)

	hours := scheduling.BusinessHours{
		StartHour: s.cfg.BusinessDayStart,
		EndHour:   s.cfg.BusinessDayEnd,
		Location:  s.cfg.Location(),
	}
	s.scheduler = scheduling.NewService(
		eventStore,
		holidayStore,
		directory,
		scheduling.DefaultDurationPolicy(),
		hours,
		s.cfg.LookaheadDays,
		s.bridge,
		s.logger,
	)

	s.api = api.New(s.scheduler, s.bus, s.cfg.Location(), s.logger)
	return nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.api.Routes(s.router)
}

// HTTPServer exposes the configured server for the serve command.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer returns a dedicated listener serving /metrics on the
// operator-facing bind address.
func (s *Server) MetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	return &http.Server{
		Addr:              s.cfg.MetricsBind,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
}

// DB exposes the database handle for maintenance commands.
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
