package memory

import (
	"sync"

	"github.com/aokaito/annotune-sub000/application/ports"
	"github.com/aokaito/annotune-sub000/domain/core/entities"
)

// Store keeps documents, annotations and snapshots in process memory. It
// applies the same conditional-write guards as the DynamoDB stores, each
// under a single mutex, so it can stand in for them locally and in tests.
type Store struct {
	mu             sync.RWMutex
	lyrics         map[string]*entities.LyricDocument
	lyricOrder     []string
	annotations    map[string][]*entities.Annotation
	versions       map[string]map[int]*entities.VersionSnapshot
	allowOwnerless bool
}

// NewStore creates an empty store. allowOwnerless controls whether
// annotations without an owner stamp are visible and mutable by the
// document owner.
func NewStore(allowOwnerless bool) *Store {
	return &Store{
		lyrics:         make(map[string]*entities.LyricDocument),
		annotations:    make(map[string][]*entities.Annotation),
		versions:       make(map[string]map[int]*entities.VersionSnapshot),
		allowOwnerless: allowOwnerless,
	}
}

// Lyrics returns the document repository view of the store
func (s *Store) Lyrics() ports.LyricRepository {
	return &LyricRepository{store: s}
}

// Annotations returns the annotation repository view of the store
func (s *Store) Annotations() ports.AnnotationRepository {
	return &AnnotationRepository{store: s}
}

// Versions returns the snapshot repository view of the store
func (s *Store) Versions() ports.VersionRepository {
	return &VersionRepository{store: s}
}

func cloneLyric(doc *entities.LyricDocument) *entities.LyricDocument {
	cp := *doc
	return &cp
}

func cloneSnapshot(snap *entities.VersionSnapshot) *entities.VersionSnapshot {
	cp := *snap
	return &cp
}
