package events

import "time"

// Source is the EventBridge source all lyric events are published under.
const Source = "annotune.lyrics"

const (
	TypeLyricCreated      = "lyric.created"
	TypeLyricUpdated      = "lyric.updated"
	TypeLyricShared       = "lyric.shared"
	TypeLyricDeleted      = "lyric.deleted"
	TypeAnnotationCreated = "annotation.created"
	TypeAnnotationUpdated = "annotation.updated"
	TypeAnnotationDeleted = "annotation.deleted"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Lyric events

// LyricCreated is raised when a new document is stored
type LyricCreated struct {
	BaseEvent
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
}

// NewLyricCreated creates a LyricCreated event
func NewLyricCreated(docID, ownerID, title string, timestamp time.Time) LyricCreated {
	return LyricCreated{
		BaseEvent: BaseEvent{AggregateID: docID, EventType: TypeLyricCreated, Timestamp: timestamp, Version: 1},
		OwnerID:   ownerID,
		Title:     title,
	}
}

// LyricUpdated is raised after a content update bumps the document version
type LyricUpdated struct {
	BaseEvent
	OwnerID string `json:"owner_id"`
}

// NewLyricUpdated creates a LyricUpdated event
func NewLyricUpdated(docID, ownerID string, version int, timestamp time.Time) LyricUpdated {
	return LyricUpdated{
		BaseEvent: BaseEvent{AggregateID: docID, EventType: TypeLyricUpdated, Timestamp: timestamp, Version: version},
		OwnerID:   ownerID,
	}
}

// LyricShared is raised when the public visibility flag changes
type LyricShared struct {
	BaseEvent
	OwnerID      string `json:"owner_id"`
	IsPublicView bool   `json:"is_public_view"`
}

// NewLyricShared creates a LyricShared event
func NewLyricShared(docID, ownerID string, version int, isPublic bool, timestamp time.Time) LyricShared {
	return LyricShared{
		BaseEvent:    BaseEvent{AggregateID: docID, EventType: TypeLyricShared, Timestamp: timestamp, Version: version},
		OwnerID:      ownerID,
		IsPublicView: isPublic,
	}
}

// LyricDeleted is raised after the document item is removed. Consumers use
// it to purge the document's annotations and snapshots.
type LyricDeleted struct {
	BaseEvent
	OwnerID string `json:"owner_id"`
}

// NewLyricDeleted creates a LyricDeleted event
func NewLyricDeleted(docID, ownerID string, timestamp time.Time) LyricDeleted {
	return LyricDeleted{
		BaseEvent: BaseEvent{AggregateID: docID, EventType: TypeLyricDeleted, Timestamp: timestamp, Version: 1},
		OwnerID:   ownerID,
	}
}

// Annotation events

// AnnotationChanged is raised when an annotation is created, updated or
// deleted. EventType tells which.
type AnnotationChanged struct {
	BaseEvent
	AnnotationID string `json:"annotation_id"`
	OwnerID      string `json:"owner_id"`
	Start        int    `json:"start"`
	End          int    `json:"end"`
	Tag          string `json:"tag,omitempty"`
}

// NewAnnotationChanged creates an AnnotationChanged event. The aggregate is
// the owning document.
func NewAnnotationChanged(eventType, docID, annotationID, ownerID string, start, end int, tag string, version int, timestamp time.Time) AnnotationChanged {
	return AnnotationChanged{
		BaseEvent:    BaseEvent{AggregateID: docID, EventType: eventType, Timestamp: timestamp, Version: version},
		AnnotationID: annotationID,
		OwnerID:      ownerID,
		Start:        start,
		End:          end,
		Tag:          tag,
	}
}
