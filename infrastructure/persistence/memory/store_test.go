package memory

import (
	"context"
	"testing"
	"time"

	"github.com/aokaito/annotune-sub000/application/ports"
	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func seedLyric(t *testing.T, s *Store, docID, ownerID string) {
	t.Helper()
	doc := entities.NewLyricDocument(docID, ownerID, "", "Title "+docID, "Artist", "hello world", testNow)
	require.NoError(t, s.Lyrics().Create(context.Background(), doc))
}

func TestLyricRepository_Guards(t *testing.T) {
	ctx := context.Background()
	s := NewStore(false)
	repo := s.Lyrics()
	seedLyric(t, s, "doc-1", "alice")

	t.Run("duplicate create", func(t *testing.T) {
		err := repo.Create(ctx, entities.NewLyricDocument("doc-1", "bob", "", "t", "", "x", testNow))
		assert.True(t, errors.IsConflict(err))
	})

	t.Run("update with stale version", func(t *testing.T) {
		_, err := repo.UpdateContent(ctx, "doc-1", "alice", 2, ports.ContentChanges{Title: "t", Text: "x"}, testNow)
		assert.True(t, errors.IsVersionConflict(err))
	})

	t.Run("update by another owner", func(t *testing.T) {
		_, err := repo.UpdateContent(ctx, "doc-1", "bob", 1, ports.ContentChanges{Title: "t", Text: "x"}, testNow)
		assert.True(t, errors.IsVersionConflict(err))
	})

	t.Run("update bumps version", func(t *testing.T) {
		doc, err := repo.UpdateContent(ctx, "doc-1", "alice", 1, ports.ContentChanges{Title: "New", Text: "changed"}, testNow.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 2, doc.Version)
		assert.Equal(t, "New", doc.Title)
		assert.Equal(t, testNow.Add(time.Minute), doc.UpdatedAt)
	})

	t.Run("sharing keeps version", func(t *testing.T) {
		name := "Alice"
		doc, err := repo.UpdateSharing(ctx, "doc-1", "alice", true, &name)
		require.NoError(t, err)
		assert.Equal(t, 2, doc.Version)
		assert.True(t, doc.IsPublicView)
		assert.Equal(t, "Alice", doc.OwnerName)

		_, err = repo.UpdateSharing(ctx, "doc-1", "bob", false, nil)
		assert.True(t, errors.IsForbidden(err))
	})

	t.Run("delete guarded on owner", func(t *testing.T) {
		assert.True(t, errors.IsForbidden(repo.Delete(ctx, "doc-1", "bob")))
		require.NoError(t, repo.Delete(ctx, "doc-1", "alice"))
		assert.True(t, errors.IsForbidden(repo.Delete(ctx, "doc-1", "alice")))

		_, err := repo.GetByID(ctx, "doc-1")
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestLyricRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore(false)
	seedLyric(t, s, "doc-1", "alice")

	doc, err := s.Lyrics().GetByID(ctx, "doc-1")
	require.NoError(t, err)
	doc.Title = "mutated"

	again, err := s.Lyrics().GetByID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Title doc-1", again.Title)
}

func TestLyricRepository_ListsInCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore(false)
	seedLyric(t, s, "doc-b", "alice")
	seedLyric(t, s, "doc-a", "alice")
	seedLyric(t, s, "doc-c", "bob")

	_, err := s.Lyrics().UpdateSharing(ctx, "doc-c", "bob", true, nil)
	require.NoError(t, err)

	owned, err := s.Lyrics().ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "doc-b", owned[0].DocID)
	assert.Equal(t, "doc-a", owned[1].DocID)

	public, err := s.Lyrics().ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "doc-c", public[0].DocID)

	none, err := s.Lyrics().ListByOwner(ctx, "carol")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestAnnotationRepository_OwnerlessVisibility(t *testing.T) {
	ctx := context.Background()
	legacy := &entities.Annotation{AnnotationID: "a-legacy", DocID: "doc-1", Start: 0, End: 2, Tag: "old", Version: 1}
	stamped := entities.NewAnnotation("a-1", "doc-1", "alice", "alice", 3, 5, "chorus", "", nil, testNow)

	tests := []struct {
		name           string
		allowOwnerless bool
		want           []string
	}{
		{"ownerless hidden", false, []string{"a-1"}},
		{"ownerless shown", true, []string{"a-legacy", "a-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.allowOwnerless)
			repo := s.Annotations()
			require.NoError(t, repo.Create(ctx, legacy))
			require.NoError(t, repo.Create(ctx, stamped))

			got, err := repo.ListByDoc(ctx, "doc-1", "alice")
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, a := range got {
				ids = append(ids, a.AnnotationID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestAnnotationRepository_UpdateStampsLegacyOwner(t *testing.T) {
	ctx := context.Background()
	s := NewStore(true)
	repo := s.Annotations()
	require.NoError(t, repo.Create(ctx, &entities.Annotation{AnnotationID: "a-legacy", DocID: "doc-1", Start: 0, End: 2, Tag: "old", Version: 1}))

	updated, err := repo.Update(ctx, "doc-1", "a-legacy", "alice", ports.AnnotationChanges{
		Start: 1, End: 4, Tag: "verse", Props: map[string]interface{}{"color": "red"},
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.OwnerID)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "verse", updated.Tag)

	_, err = repo.Update(ctx, "doc-1", "a-legacy", "bob", ports.AnnotationChanges{Start: 0, End: 1, Tag: "x"}, testNow)
	assert.True(t, errors.IsNotFound(err), "stamped annotation is no longer ownerless")
}

func TestAnnotationRepository_DeleteGuards(t *testing.T) {
	ctx := context.Background()
	s := NewStore(false)
	repo := s.Annotations()
	require.NoError(t, repo.Create(ctx, entities.NewAnnotation("a-1", "doc-1", "alice", "alice", 0, 2, "t", "", nil, testNow)))
	require.NoError(t, repo.Create(ctx, entities.NewAnnotation("a-2", "doc-1", "alice", "alice", 2, 4, "t", "", nil, testNow)))

	assert.True(t, errors.IsConflict(repo.Create(ctx, entities.NewAnnotation("a-1", "doc-1", "alice", "alice", 5, 6, "t", "", nil, testNow))))
	assert.True(t, errors.IsNotFound(repo.Delete(ctx, "doc-1", "a-1", "bob")))
	require.NoError(t, repo.Delete(ctx, "doc-1", "a-1", "alice"))
	assert.True(t, errors.IsNotFound(repo.Delete(ctx, "doc-1", "a-1", "alice")))

	n, err := repo.DeleteAllByDoc(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVersionRepository(t *testing.T) {
	ctx := context.Background()
	s := NewStore(false)
	repo := s.Versions()

	doc := entities.NewLyricDocument("doc-1", "alice", "", "t", "", "v1", testNow)
	require.NoError(t, repo.Append(ctx, doc.Snapshot("alice", testNow)))

	wrote, err := repo.AppendIfAbsent(ctx, doc.Snapshot("alice", testNow))
	require.NoError(t, err)
	assert.False(t, wrote)

	doc.Version = 2
	doc.Text = "v2"
	wrote, err = repo.AppendIfAbsent(ctx, doc.Snapshot("alice", testNow))
	require.NoError(t, err)
	assert.True(t, wrote)

	list, err := repo.List(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Version)
	assert.Equal(t, 1, list[1].Version)

	snap, err := repo.Get(ctx, "doc-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "v1", snap.Text)

	_, err = repo.Get(ctx, "doc-1", 3)
	assert.True(t, errors.IsNotFound(err))

	n, err := repo.DeleteAll(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err = repo.List(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDocumentLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewDocumentLocker(20 * time.Millisecond)

	release, err := locker.Acquire(ctx, "doc-1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "doc-1")
	assert.True(t, errors.IsConflict(err), "held lock should time out as contention")

	other, err := locker.Acquire(ctx, "doc-2")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))

	again, err := locker.Acquire(ctx, "doc-1")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestDocumentLocker_ContextCancelled(t *testing.T) {
	locker := NewDocumentLocker(time.Second)
	release, err := locker.Acquire(context.Background(), "doc-1")
	require.NoError(t, err)
	defer release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Acquire(ctx, "doc-1")
	assert.ErrorIs(t, err, context.Canceled)
}
