package memory

import (
	"context"
	"time"

	"github.com/aokaito/annotune-sub000/application/ports"
	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/pkg/errors"
)

// LyricRepository is the in-memory ports.LyricRepository
type LyricRepository struct {
	store *Store
}

// Create stores a new document
func (r *LyricRepository) Create(ctx context.Context, doc *entities.LyricDocument) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.lyrics[doc.DocID]; exists {
		return errors.AlreadyExists("lyric", doc.DocID)
	}
	s.lyrics[doc.DocID] = cloneLyric(doc)
	s.lyricOrder = append(s.lyricOrder, doc.DocID)
	return nil
}

// GetByID retrieves a document by its ID
func (r *LyricRepository) GetByID(ctx context.Context, docID string) (*entities.LyricDocument, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.lyrics[docID]
	if !exists {
		return nil, errors.NotFound("lyric", docID)
	}
	return cloneLyric(doc), nil
}

// ListByOwner retrieves all documents owned by ownerID
func (r *LyricRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.LyricDocument, error) {
	return r.list(func(d *entities.LyricDocument) bool { return d.OwnerID == ownerID }), nil
}

// ListPublic retrieves all shared documents
func (r *LyricRepository) ListPublic(ctx context.Context) ([]*entities.LyricDocument, error) {
	return r.list(func(d *entities.LyricDocument) bool { return d.IsPublicView }), nil
}

func (r *LyricRepository) list(keep func(*entities.LyricDocument) bool) []*entities.LyricDocument {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entities.LyricDocument, 0)
	for _, id := range s.lyricOrder {
		doc, exists := s.lyrics[id]
		if exists && keep(doc) {
			result = append(result, cloneLyric(doc))
		}
	}
	return result
}

// UpdateContent replaces content under the owner+version guard
func (r *LyricRepository) UpdateContent(ctx context.Context, docID, ownerID string, expectedVersion int, changes ports.ContentChanges, now time.Time) (*entities.LyricDocument, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.lyrics[docID]
	if !exists || doc.OwnerID != ownerID || doc.Version != expectedVersion {
		return nil, errors.VersionConflictOrForbidden(docID, expectedVersion)
	}

	doc.Title = changes.Title
	doc.Artist = changes.Artist
	doc.Text = changes.Text
	doc.UpdatedAt = now
	doc.Version++
	return cloneLyric(doc), nil
}

// UpdateSharing sets the public flag under the owner guard
func (r *LyricRepository) UpdateSharing(ctx context.Context, docID, ownerID string, isPublic bool, ownerName *string) (*entities.LyricDocument, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.lyrics[docID]
	if !exists || doc.OwnerID != ownerID {
		return nil, errors.Forbidden("lyric is missing or owned by another user")
	}

	doc.IsPublicView = isPublic
	if ownerName != nil {
		doc.OwnerName = *ownerName
	}
	return cloneLyric(doc), nil
}

// Delete removes the document under the owner guard
func (r *LyricRepository) Delete(ctx context.Context, docID, ownerID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.lyrics[docID]
	if !exists || doc.OwnerID != ownerID {
		return errors.Forbidden("lyric is missing or owned by another user")
	}

	delete(s.lyrics, docID)
	for i, id := range s.lyricOrder {
		if id == docID {
			s.lyricOrder = append(s.lyricOrder[:i], s.lyricOrder[i+1:]...)
			break
		}
	}
	return nil
}
