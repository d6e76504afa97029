/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts API requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pauta_http_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "endpoint", "status"})

	// HTTPRequestDuration observes request latency per route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pauta_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pauta_http_active_connections",
		Help: "In-flight HTTP requests.",
	})

	// APIWebSocketConnections gauges open live-feed sockets.
	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pauta_websocket_connections",
		Help: "Open event feed WebSocket connections.",
	})

	// ConflictChecksTotal counts conflict-detector invocations via the facade.
	ConflictChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pauta_conflict_checks_total",
		Help: "Conflict checks performed.",
	})

	// ConflictsFoundTotal counts checks that reported at least one collision.
	ConflictsFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pauta_conflicts_found_total",
		Help: "Conflict checks that found overlapping events.",
	})

	// SuggestionsTotal counts slot searches by outcome (found, none, error).
	SuggestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pauta_slot_suggestions_total",
		Help: "Slot suggestion searches by outcome.",
	}, []string{"outcome"})

	// CommitsTotal counts commit attempts by outcome.
	CommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pauta_commits_total",
		Help: "Event commit attempts by outcome.",
	}, []string{"outcome"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
