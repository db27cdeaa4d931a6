package ports

import (
	"context"
	"time"

	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/domain/events"
)

// LyricRepository defines the interface for document persistence
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type LyricRepository interface {
	// Create stores a new document. Fails with AlreadyExists if the key is taken.
	Create(ctx context.Context, doc *entities.LyricDocument) error

	// GetByID retrieves a document by its ID. Fails with NotFound.
	GetByID(ctx context.Context, docID string) (*entities.LyricDocument, error)

	// ListByOwner retrieves all documents owned by ownerID
	ListByOwner(ctx context.Context, ownerID string) ([]*entities.LyricDocument, error)

	// ListPublic retrieves all documents whose public flag is set
	ListPublic(ctx context.Context) ([]*entities.LyricDocument, error)

	// UpdateContent replaces title, artist and text and increments the
	// version, in one conditional write guarded on owner and expected
	// version. Fails with VersionConflictOrForbidden when the guard does
	// not hold. Returns the document as stored after the write.
	UpdateContent(ctx context.Context, docID, ownerID string, expectedVersion int, changes ContentChanges, now time.Time) (*entities.LyricDocument, error)

	// UpdateSharing sets the public flag, and the display name when
	// ownerName is non-nil, guarded on owner. Does not touch the version.
	// Fails with Forbidden when the guard does not hold.
	UpdateSharing(ctx context.Context, docID, ownerID string, isPublic bool, ownerName *string) (*entities.LyricDocument, error)

	// Delete removes the document item, guarded on owner. Fails with
	// Forbidden when the guard does not hold, including a missing item.
	Delete(ctx context.Context, docID, ownerID string) error
}

// ContentChanges carries the editable document fields
type ContentChanges struct {
	Title  string
	Artist string
	Text   string
}

// AnnotationRepository defines the interface for annotation persistence
type AnnotationRepository interface {
	// Create stores a new annotation. Fails with AlreadyExists.
	Create(ctx context.Context, annotation *entities.Annotation) error

	// ListByDoc returns the annotations of docID visible to ownerID, in
	// store order.
	ListByDoc(ctx context.Context, docID, ownerID string) ([]*entities.Annotation, error)

	// Update rewrites an annotation guarded on existence and ownership.
	// Fails with NotFound when the guard does not hold.
	Update(ctx context.Context, docID, annotationID, ownerID string, changes AnnotationChanges, now time.Time) (*entities.Annotation, error)

	// Delete removes an annotation guarded on existence and ownership.
	// Fails with NotFound when the guard does not hold.
	Delete(ctx context.Context, docID, annotationID, ownerID string) error

	// DeleteAllByDoc removes every annotation of docID regardless of owner
	DeleteAllByDoc(ctx context.Context, docID string) (int, error)
}

// AnnotationChanges carries the editable annotation fields
type AnnotationChanges struct {
	Start   int
	End     int
	Tag     string
	Comment string
	Props   map[string]interface{}
}

// VersionRepository defines the interface for the append-only snapshot log
type VersionRepository interface {
	// Append writes a snapshot unconditionally
	Append(ctx context.Context, snapshot *entities.VersionSnapshot) error

	// AppendIfAbsent writes a snapshot only when none exists for its
	// version. Reports whether it wrote.
	AppendIfAbsent(ctx context.Context, snapshot *entities.VersionSnapshot) (bool, error)

	// List returns all snapshots of docID, newest version first
	List(ctx context.Context, docID string) ([]*entities.VersionSnapshot, error)

	// Get returns one snapshot. Fails with NotFound.
	Get(ctx context.Context, docID string, version int) (*entities.VersionSnapshot, error)

	// DeleteAll removes every snapshot of docID
	DeleteAll(ctx context.Context, docID string) (int, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// DocumentLocker serializes work on a named resource across processes
type DocumentLocker interface {
	// Acquire blocks until the lock is held or the wait budget is spent.
	// Fails with LockContention when the lock stays held by someone else.
	Acquire(ctx context.Context, resource string) (release func(context.Context) error, err error)
}

// Metrics records business counters
type Metrics interface {
	IncrementCounter(ctx context.Context, name string, dimensions map[string]string)
}
