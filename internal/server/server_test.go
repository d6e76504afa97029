/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/pauta/internal/api"
	"github.com/friendsincode/pauta/internal/events"
	"github.com/friendsincode/pauta/internal/models"
	"github.com/friendsincode/pauta/internal/scheduling"
	"github.com/friendsincode/pauta/internal/store"
	ws "nhooyr.io/websocket"
)

// newChainedServer mounts the API behind the same middleware chain New
// installs, so these tests see exactly what serve serves.
func newChainedServer(t *testing.T) (*httptest.Server, models.Resource) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Resource{}, &models.Event{}, &models.Holiday{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	logger := zerolog.Nop()
	eventStore := store.NewEventStore(db, logger)
	holidayStore := store.NewHolidayStore(db, nil, logger)
	directory := store.NewResourceDirectory(db, nil, logger)

	resource := models.Resource{Name: "Studio A", Specialty: "video"}
	if err := directory.Create(context.Background(), &resource); err != nil {
		t.Fatalf("create resource: %v", err)
	}

	bus := events.NewBus()
	svc := scheduling.NewService(
		eventStore,
		holidayStore,
		directory,
		scheduling.DefaultDurationPolicy(),
		scheduling.DefaultBusinessHours(time.UTC),
		scheduling.DefaultLookaheadDays,
		bus,
		logger,
	)

	router := chi.NewRouter()
	installMiddleware(router)
	api.New(svc, bus, time.UTC, logger).Routes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, resource
}

func TestEventFeedUpgradesThroughMiddleware(t *testing.T) {
	server, _ := newChainedServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, resp, err := ws.Dial(ctx, server.URL+"/api/v1/events", nil)
	if err != nil {
		t.Fatalf("websocket dial through middleware chain: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("upgrade status = %d, want 101", resp.StatusCode)
	}
}

func TestEventFeedDeliversCommit(t *testing.T) {
	server, resource := newChainedServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, server.URL+"/api/v1/events?types=event.committed", nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	// Give the feed handler a moment to register its bus subscription.
	time.Sleep(200 * time.Millisecond)

	day := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	payload, _ := json.Marshal(map[string]any{
		"resource_id": resource.ID,
		"type":        "reuniao",
		"starts_at":   day.Add(9 * time.Hour),
		"ends_at":     day.Add(10 * time.Hour),
	})
	post, err := http.Post(server.URL+"/api/v1/events", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST event: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", post.StatusCode)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read feed frame: %v", err)
		}
		var frame struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("decode feed frame %q: %v", data, err)
		}
		if frame.Type == "ping" {
			continue
		}
		if frame.Type != "event.committed" {
			t.Fatalf("feed frame type = %q, want event.committed", frame.Type)
		}
		return
	}
}

func TestRESTThroughMiddleware(t *testing.T) {
	server, resource := newChainedServer(t)

	payload, _ := json.Marshal(map[string]any{
		"resource_id": resource.ID,
		"starts_at":   time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC),
		"ends_at":     time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC),
	})
	resp, err := http.Post(server.URL+"/api/v1/schedule/check-conflict", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST check-conflict: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("check-conflict status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}
