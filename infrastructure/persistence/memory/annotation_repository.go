package memory

import (
	"context"
	"time"

	"github.com/aokaito/annotune-sub000/application/ports"
	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/pkg/errors"
)

// AnnotationRepository is the in-memory ports.AnnotationRepository
type AnnotationRepository struct {
	store *Store
}

// Create stores a new annotation
func (r *AnnotationRepository) Create(ctx context.Context, annotation *entities.Annotation) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.annotations[annotation.DocID] {
		if a.AnnotationID == annotation.AnnotationID {
			return errors.AlreadyExists("annotation", annotation.AnnotationID)
		}
	}
	s.annotations[annotation.DocID] = append(s.annotations[annotation.DocID], annotation.Clone())
	return nil
}

// ListByDoc returns the annotations of docID visible to ownerID in insertion order
func (r *AnnotationRepository) ListByDoc(ctx context.Context, docID, ownerID string) ([]*entities.Annotation, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entities.Annotation, 0)
	for _, a := range s.annotations[docID] {
		if a.VisibleTo(ownerID, s.allowOwnerless) {
			result = append(result, a.Clone())
		}
	}
	return result, nil
}

// Update rewrites an annotation under the existence+ownership guard. A
// legacy annotation gets the caller's owner stamp.
func (r *AnnotationRepository) Update(ctx context.Context, docID, annotationID, ownerID string, changes ports.AnnotationChanges, now time.Time) (*entities.Annotation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	a := r.find(docID, annotationID)
	if a == nil || !a.VisibleTo(ownerID, s.allowOwnerless) {
		return nil, errors.NotFound("annotation", annotationID)
	}

	a.OwnerID = ownerID
	a.Start = changes.Start
	a.End = changes.End
	a.Tag = changes.Tag
	a.Comment = changes.Comment
	a.Props = (&entities.Annotation{Props: changes.Props}).Clone().Props
	a.UpdatedAt = now
	a.Version++
	return a.Clone(), nil
}

// Delete removes an annotation under the existence+ownership guard
func (r *AnnotationRepository) Delete(ctx context.Context, docID, annotationID, ownerID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.annotations[docID]
	for i, a := range list {
		if a.AnnotationID != annotationID {
			continue
		}
		if !a.VisibleTo(ownerID, s.allowOwnerless) {
			break
		}
		s.annotations[docID] = append(list[:i], list[i+1:]...)
		return nil
	}
	return errors.NotFound("annotation", annotationID)
}

// DeleteAllByDoc removes every annotation of docID
func (r *AnnotationRepository) DeleteAllByDoc(ctx context.Context, docID string) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.annotations[docID])
	delete(s.annotations, docID)
	return n, nil
}

// find must be called with the lock held
func (r *AnnotationRepository) find(docID, annotationID string) *entities.Annotation {
	for _, a := range r.store.annotations[docID] {
		if a.AnnotationID == annotationID {
			return a
		}
	}
	return nil
}
