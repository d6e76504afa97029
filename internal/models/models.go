package models

import (
	"time"
)

// EventType enumerates the bookable kinds of work. The tags are the wire
// values used by every calling surface, so they never change spelling.
type EventType string

const (
	EventSingleCreation  EventType = "criacao_avulso"
	EventBatchCreation   EventType = "criacao_lote"
	EventShortEdit       EventType = "edicao_curta"
	EventLongEdit        EventType = "edicao_longa"
	EventInternalCapture EventType = "captacao_interna"
	EventExternalCapture EventType = "captacao_externa"
	EventPlanning        EventType = "planejamento"
	EventMeeting         EventType = "reuniao"
)

// KnownEventTypes lists every tag in a stable order.
var KnownEventTypes = []EventType{
	EventSingleCreation,
	EventBatchCreation,
	EventShortEdit,
	EventLongEdit,
	EventInternalCapture,
	EventExternalCapture,
	EventPlanning,
	EventMeeting,
}

// Valid reports whether the tag is part of the closed enumeration.
func (t EventType) Valid() bool {
	for _, known := range KnownEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsCreative reports whether creative-mode applies to this type.
func (t EventType) IsCreative() bool {
	switch t {
	case EventSingleCreation, EventBatchCreation, EventShortEdit, EventLongEdit:
		return true
	}
	return false
}

// IsCapture reports whether location/equipment fields apply to this type.
func (t EventType) IsCapture() bool {
	return t == EventInternalCapture || t == EventExternalCapture
}

// CreativeMode distinguishes single-piece work from multi-piece batches.
type CreativeMode string

const (
	ModeSingle CreativeMode = "avulso"
	ModeBatch  CreativeMode = "lote"
)

// EventStatus tracks the lifecycle of a booking.
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventCancelled EventStatus = "cancelled"
)

// Resource is a bookable specialist. The directory that owns resources is
// external; the engine only reads them.
type Resource struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(255);not null" json:"name"`
	Specialty string `gorm:"type:varchar(64);index" json:"specialty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is a scheduled unit of work on exactly one resource's timeline.
// Intervals are half-open [StartsAt, EndsAt); for a given resource no two
// scheduled events may overlap.
type Event struct {
	ID         string      `gorm:"type:uuid;primaryKey" json:"id"`
	ResourceID string      `gorm:"type:uuid;index:idx_events_resource;not null" json:"resource_id"`
	Type       EventType   `gorm:"type:varchar(32);not null" json:"type"`
	StartsAt   time.Time   `gorm:"not null;index" json:"starts_at"`
	EndsAt     time.Time   `gorm:"not null" json:"ends_at"`
	Status     EventStatus `gorm:"type:varchar(16);not null;default:'scheduled'" json:"status"`

	// Creative fields, meaningful only for creation/edit types.
	CreativeMode *CreativeMode `gorm:"type:varchar(16)" json:"creative_mode,omitempty"`
	PieceCount   *int          `json:"piece_count,omitempty"`

	// Capture fields, meaningful only for capture types.
	Location     string   `gorm:"type:varchar(255)" json:"location,omitempty"`
	EquipmentIDs []string `gorm:"serializer:json;type:text" json:"equipment_ids,omitempty"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	Resource *Resource `gorm:"foreignKey:ResourceID" json:"resource,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Event) TableName() string {
	return "events"
}

// Duration returns the event span.
func (e *Event) Duration() time.Duration {
	return e.EndsAt.Sub(e.StartsAt)
}

// Overlaps reports whether two half-open intervals intersect. Back-to-back
// events (one ending exactly when the other starts) do not overlap.
func (e *Event) Overlaps(start, end time.Time) bool {
	return e.StartsAt.Before(end) && start.Before(e.EndsAt)
}
