package memory

import (
	"context"
	"sort"

	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/pkg/errors"
)

// VersionRepository is the in-memory ports.VersionRepository
type VersionRepository struct {
	store *Store
}

// Append writes a snapshot unconditionally
func (r *VersionRepository) Append(ctx context.Context, snapshot *entities.VersionSnapshot) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	r.put(snapshot)
	return nil
}

// AppendIfAbsent writes a snapshot only when its version has none
func (r *VersionRepository) AppendIfAbsent(ctx context.Context, snapshot *entities.VersionSnapshot) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.versions[snapshot.DocID][snapshot.Version]; exists {
		return false, nil
	}
	r.put(snapshot)
	return true, nil
}

func (r *VersionRepository) put(snapshot *entities.VersionSnapshot) {
	byVersion, ok := r.store.versions[snapshot.DocID]
	if !ok {
		byVersion = make(map[int]*entities.VersionSnapshot)
		r.store.versions[snapshot.DocID] = byVersion
	}
	byVersion[snapshot.Version] = cloneSnapshot(snapshot)
}

// List returns all snapshots of docID, newest first
func (r *VersionRepository) List(ctx context.Context, docID string) ([]*entities.VersionSnapshot, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entities.VersionSnapshot, 0, len(s.versions[docID]))
	for _, snap := range s.versions[docID] {
		result = append(result, cloneSnapshot(snap))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Version > result[j].Version
	})
	return result, nil
}

// Get returns one snapshot
func (r *VersionRepository) Get(ctx context.Context, docID string, version int) (*entities.VersionSnapshot, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.versions[docID][version]
	if !exists {
		return nil, errors.NotFound("version", docID)
	}
	return cloneSnapshot(snap), nil
}

// DeleteAll removes every snapshot of docID
func (r *VersionRepository) DeleteAll(ctx context.Context, docID string) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.versions[docID])
	delete(s.versions, docID)
	return n, nil
}
