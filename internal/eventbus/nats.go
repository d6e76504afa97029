/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process bus to NATS so portals and report
// jobs on other hosts see booking changes without polling the API.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/pauta/internal/events"
)

// SubjectPrefix is prepended to the event type, e.g. pauta.events.event.committed.
const SubjectPrefix = "pauta.events."

// Bridge publishes bus events locally and, when connected, mirrors them to
// NATS subjects. An empty URL yields a purely in-process bridge.
type Bridge struct {
	bus    *events.Bus
	conn   *nats.Conn
	logger zerolog.Logger
}

type message struct {
	Type      events.EventType `json:"type"`
	Payload   events.Payload   `json:"payload"`
	EmittedAt time.Time        `json:"emitted_at"`
}

// New connects the bridge. A NATS connection failure is an error; callers
// that can run degraded pass an empty URL instead.
func New(natsURL string, bus *events.Bus, logger zerolog.Logger) (*Bridge, error) {
	bridge := &Bridge{
		bus:    bus,
		logger: logger.With().Str("component", "eventbus").Logger(),
	}

	if natsURL == "" {
		bridge.logger.Info().Msg("no NATS URL configured, events stay in-process")
		return bridge, nil
	}

	conn, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			bridge.logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			bridge.logger.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect NATS: %w", err)
	}

	bridge.conn = conn
	bridge.logger.Info().Str("url", natsURL).Msg("NATS event bridge connected")
	return bridge, nil
}

// Publish fans the event out to in-process subscribers and to NATS.
func (b *Bridge) Publish(eventType events.EventType, payload events.Payload) {
	b.bus.Publish(eventType, payload)

	if b.conn == nil {
		return
	}

	data, err := json.Marshal(message{
		Type:      eventType,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("event payload marshal failed")
		return
	}

	if err := b.conn.Publish(SubjectPrefix+string(eventType), data); err != nil {
		b.logger.Warn().Err(err).Str("type", string(eventType)).Msg("NATS publish failed")
	}
}

// Close drains the NATS connection.
func (b *Bridge) Close() error {
	if b.conn == nil {
		return nil
	}
	if err := b.conn.Drain(); err != nil {
		return err
	}
	return nil
}
