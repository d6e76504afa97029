/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/friendsincode/pauta/internal/models"
)

// memStore is an in-memory EventStore enforcing the same non-overlap
// invariant as the real store.
type memStore struct {
	mu     sync.Mutex
	events map[string]models.Event
	nextID int
	fail   bool
}

func newMemStore() *memStore {
	return &memStore{events: map[string]models.Event{}}
}

var errStoreDown = errors.New("store down")

func (s *memStore) ListForResourceBetween(ctx context.Context, resourceID string, from, to time.Time) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStoreDown
	}
	out := []models.Event{}
	for _, event := range s.events {
		if event.ResourceID != resourceID || event.Status == models.EventCancelled {
			continue
		}
		if event.Overlaps(from, to) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *memStore) Get(ctx context.Context, id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStoreDown
	}
	event, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	return &event, nil
}

func (s *memStore) Insert(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	if err := s.guard(event); err != nil {
		return err
	}
	if event.ID == "" {
		s.nextID++
		event.ID = fmt.Sprintf("evt-%d", s.nextID)
	}
	s.events[event.ID] = *event
	return nil
}

func (s *memStore) Update(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	if _, ok := s.events[event.ID]; !ok {
		return errors.New("no such event")
	}
	if err := s.guard(event); err != nil {
		return err
	}
	s.events[event.ID] = *event
	return nil
}

func (s *memStore) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	event, ok := s.events[id]
	if !ok {
		return errors.New("no such event")
	}
	event.Status = models.EventCancelled
	s.events[id] = event
	return nil
}

func (s *memStore) guard(candidate *models.Event) error {
	conflicts := []models.Event{}
	for _, event := range s.events {
		if event.ID == candidate.ID || event.ResourceID != candidate.ResourceID || event.Status == models.EventCancelled {
			continue
		}
		if event.Overlaps(candidate.StartsAt, candidate.EndsAt) {
			conflicts = append(conflicts, event)
		}
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

// add seeds a scheduled event directly, bypassing the guard.
func (s *memStore) add(resourceID string, start, end time.Time) models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	event := models.Event{
		ID:         fmt.Sprintf("evt-%d", s.nextID),
		ResourceID: resourceID,
		Type:       models.EventMeeting,
		StartsAt:   start,
		EndsAt:     end,
		Status:     models.EventScheduled,
	}
	s.events[event.ID] = event
	return event
}

type memCalendar struct {
	holidays map[string][]models.Holiday
	fail     bool
	calls    int
}

func newMemCalendar() *memCalendar {
	return &memCalendar{holidays: map[string][]models.Holiday{}}
}

func (c *memCalendar) HolidaysOnDate(ctx context.Context, date time.Time) ([]models.Holiday, error) {
	c.calls++
	if c.fail {
		return nil, errStoreDown
	}
	return c.holidays[date.UTC().Format("2006-01-02")], nil
}

func (c *memCalendar) add(date time.Time, name string, class models.HolidayClass) {
	key := date.UTC().Format("2006-01-02")
	c.holidays[key] = append(c.holidays[key], models.Holiday{
		ID:    name,
		Date:  date,
		Name:  name,
		Class: class,
	})
}

type memDirectory struct {
	resources map[string]models.Resource
}

func newMemDirectory(ids ...string) *memDirectory {
	d := &memDirectory{resources: map[string]models.Resource{}}
	for _, id := range ids {
		d.resources[id] = models.Resource{ID: id, Name: id}
	}
	return d
}

func (d *memDirectory) Get(ctx context.Context, id string) (*models.Resource, error) {
	resource, ok := d.resources[id]
	if !ok {
		return nil, nil
	}
	return &resource, nil
}

func (d *memDirectory) List(ctx context.Context) ([]models.Resource, error) {
	out := make([]models.Resource, 0, len(d.resources))
	for _, resource := range d.resources {
		out = append(out, resource)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// at builds a UTC timestamp on the given day with hour:minute.
func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

var testDay = time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC) // a Monday
