package services

import (
	"context"
	"strings"
	"time"

	"github.com/aokaito/annotune-sub000/application/ports"
	"github.com/aokaito/annotune-sub000/domain/config"
	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/domain/core/validators"
	"github.com/aokaito/annotune-sub000/domain/core/valueobjects"
	"github.com/aokaito/annotune-sub000/domain/events"
	"github.com/aokaito/annotune-sub000/pkg/errors"
	"go.uber.org/zap"
)

// Business counter names
const (
	MetricLyricsCreated          = "LyricsCreated"
	MetricLyricsUpdated          = "LyricsUpdated"
	MetricLyricsDeleted          = "LyricsDeleted"
	MetricVersionConflicts       = "VersionConflicts"
	MetricSnapshotAppendFailures = "SnapshotAppendFailures"
	MetricSnapshotsRepaired      = "SnapshotsRepaired"
	MetricAnnotationsCreated     = "AnnotationsCreated"
	MetricOverlapRejections      = "OverlapRejections"
	MetricOrphansPurged          = "OrphansPurged"
)

// LyricService orchestrates documents, their annotations and their version
// history. It talks to the stores directly, without a command bus, and
// holds no state of its own between calls.
type LyricService struct {
	lyrics      ports.LyricRepository
	annotations ports.AnnotationRepository
	versions    ports.VersionRepository
	publisher   ports.EventPublisher
	locker      ports.DocumentLocker
	metrics     ports.Metrics
	validator   *validators.LyricValidator
	cfg         *config.DomainConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewLyricService creates a new lyric service. locker may be nil, in which
// case annotation writes are never serialized.
func NewLyricService(
	lyrics ports.LyricRepository,
	annotations ports.AnnotationRepository,
	versions ports.VersionRepository,
	publisher ports.EventPublisher,
	locker ports.DocumentLocker,
	metrics ports.Metrics,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *LyricService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &LyricService{
		lyrics:      lyrics,
		annotations: annotations,
		versions:    versions,
		publisher:   publisher,
		locker:      locker,
		metrics:     metrics,
		validator:   validators.NewLyricValidator(cfg),
		cfg:         cfg,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateLyricInput carries the fields of a new document
type CreateLyricInput struct {
	Title     string
	Artist    string
	Text      string
	OwnerName string
}

// UpdateLyricInput carries new content and the version the caller last saw
type UpdateLyricInput struct {
	Title   string
	Artist  string
	Text    string
	Version int
}

// PublicFilter narrows the public listing. Empty fields match everything.
type PublicFilter struct {
	Title  string
	Artist string
	Author string
}

// CreateLyric stores a new private document at version 1 and records its
// first snapshot.
func (s *LyricService) CreateLyric(ctx context.Context, ownerID string, in CreateLyricInput) (*entities.LyricDocument, error) {
	if ownerID == "" {
		return nil, errors.Unauthorized("owner is required")
	}
	if err := s.validator.ValidateContent(in.Title, in.Artist, in.Text); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateOwnerName(in.OwnerName); err != nil {
		return nil, err
	}

	now := s.now()
	doc := entities.NewLyricDocument(valueobjects.NewDocID().String(), ownerID, in.OwnerName, in.Title, in.Artist, in.Text, now)

	if err := s.lyrics.Create(ctx, doc); err != nil {
		return nil, errors.Wrap(err, "failed to create lyric")
	}

	if err := s.appendSnapshot(ctx, doc.Snapshot(ownerID, now)); err != nil {
		return nil, err
	}

	s.logger.Info("Lyric created",
		zap.String("docID", doc.DocID),
		zap.String("ownerID", ownerID),
	)
	s.count(ctx, MetricLyricsCreated)
	s.publish(ctx, events.NewLyricCreated(doc.DocID, ownerID, doc.Title, now))

	return doc, nil
}

// GetLyric returns a document with the annotations visible to its owner.
// An empty ownerID skips the ownership check.
func (s *LyricService) GetLyric(ctx context.Context, docID, ownerID string) (*entities.LyricView, error) {
	doc, err := s.lyrics.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && !doc.IsOwnedBy(ownerID) {
		return nil, errors.Forbidden("lyric is owned by another user")
	}

	return s.withAnnotations(ctx, doc)
}

// GetLyricForPublic returns a shared document for an anonymous reader
func (s *LyricService) GetLyricForPublic(ctx context.Context, docID string) (*entities.LyricView, error) {
	doc, err := s.lyrics.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !doc.IsPublicView {
		return nil, errors.Forbidden("lyric is not shared")
	}

	return s.withAnnotations(ctx, doc.PublicView())
}

// GetLyricAnnotations returns only the annotations of an owned document
func (s *LyricService) GetLyricAnnotations(ctx context.Context, docID, ownerID string) ([]*entities.Annotation, error) {
	view, err := s.GetLyric(ctx, docID, ownerID)
	if err != nil {
		return nil, err
	}
	return view.Annotations, nil
}

// ListLyrics returns every document owned by ownerID
func (s *LyricService) ListLyrics(ctx context.Context, ownerID string) ([]*entities.LyricDocument, error) {
	if ownerID == "" {
		return nil, errors.Unauthorized("owner is required")
	}
	docs, err := s.lyrics.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list lyrics")
	}
	return docs, nil
}

// ListPublicLyrics returns shared documents whose title, artist and
// resolved author name contain the corresponding filter values, compared
// case-insensitively.
func (s *LyricService) ListPublicLyrics(ctx context.Context, filter PublicFilter) ([]*entities.LyricDocument, error) {
	docs, err := s.lyrics.ListPublic(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list public lyrics")
	}

	title := strings.ToLower(strings.TrimSpace(filter.Title))
	artist := strings.ToLower(strings.TrimSpace(filter.Artist))
	author := strings.ToLower(strings.TrimSpace(filter.Author))

	result := make([]*entities.LyricDocument, 0, len(docs))
	for _, doc := range docs {
		if !doc.IsPublicView {
			continue
		}
		view := doc.PublicView()
		if !containsFold(view.Title, title) || !containsFold(view.Artist, artist) {
			continue
		}
		if author != "" && (view.OwnerName == "" || !containsFold(view.OwnerName, author)) {
			continue
		}
		result = append(result, view)
	}
	return result, nil
}

// UpdateLyric replaces a document's content if the caller owns it and
// still holds the current version, then records the new snapshot.
func (s *LyricService) UpdateLyric(ctx context.Context, docID, ownerID string, in UpdateLyricInput) (*entities.LyricDocument, error) {
	if ownerID == "" {
		return nil, errors.Unauthorized("owner is required")
	}
	if err := s.validator.ValidateContent(in.Title, in.Artist, in.Text); err != nil {
		return nil, err
	}
	if in.Version < 1 {
		return nil, errors.NewValidationError("version", "version must be at least 1")
	}

	now := s.now()
	updated, err := s.lyrics.UpdateContent(ctx, docID, ownerID, in.Version, ports.ContentChanges{
		Title:  in.Title,
		Artist: in.Artist,
		Text:   in.Text,
	}, now)
	if err != nil {
		if errors.IsVersionConflict(err) {
			s.logger.Info("Lyric update rejected by version guard",
				zap.String("docID", docID),
				zap.Int("expectedVersion", in.Version),
			)
			s.count(ctx, MetricVersionConflicts)
		}
		return nil, errors.Wrap(err, "failed to update lyric")
	}

	if err := s.appendSnapshot(ctx, updated.Snapshot(ownerID, now)); err != nil {
		return nil, err
	}

	s.logger.Info("Lyric updated",
		zap.String("docID", docID),
		zap.Int("version", updated.Version),
	)
	s.count(ctx, MetricLyricsUpdated)
	s.publish(ctx, events.NewLyricUpdated(docID, ownerID, updated.Version, now))

	return updated, nil
}

// DeleteLyric removes the document item. Its annotations and snapshots are
// purged asynchronously by the consumer of the lyric.deleted event.
func (s *LyricService) DeleteLyric(ctx context.Context, docID, ownerID string) error {
	if ownerID == "" {
		return errors.Unauthorized("owner is required")
	}
	if err := s.lyrics.Delete(ctx, docID, ownerID); err != nil {
		return errors.Wrap(err, "failed to delete lyric")
	}

	s.logger.Info("Lyric deleted",
		zap.String("docID", docID),
		zap.String("ownerID", ownerID),
	)
	s.count(ctx, MetricLyricsDeleted)
	s.publish(ctx, events.NewLyricDeleted(docID, ownerID, s.now()))

	return nil
}

// ShareLyric sets the public flag and optionally the display name. The
// version is left unchanged.
func (s *LyricService) ShareLyric(ctx context.Context, docID, ownerID string, isPublic bool, ownerName *string) (*entities.LyricDocument, error) {
	if ownerID == "" {
		return nil, errors.Unauthorized("owner is required")
	}
	if ownerName != nil {
		if err := s.validator.ValidateOwnerName(*ownerName); err != nil {
			return nil, err
		}
	}

	doc, err := s.lyrics.UpdateSharing(ctx, docID, ownerID, isPublic, ownerName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to share lyric")
	}

	s.logger.Info("Lyric sharing changed",
		zap.String("docID", docID),
		zap.Bool("isPublicView", isPublic),
	)
	s.publish(ctx, events.NewLyricShared(docID, ownerID, doc.Version, isPublic, s.now()))

	return doc, nil
}

// loadOwnedLyric fetches a document and checks that ownerID owns it
func (s *LyricService) loadOwnedLyric(ctx context.Context, docID, ownerID string) (*entities.LyricDocument, error) {
	if ownerID == "" {
		return nil, errors.Unauthorized("owner is required")
	}
	doc, err := s.lyrics.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !doc.IsOwnedBy(ownerID) {
		return nil, errors.Forbidden("lyric is owned by another user")
	}
	return doc, nil
}

// withAnnotations attaches the annotations scoped to the document owner
func (s *LyricService) withAnnotations(ctx context.Context, doc *entities.LyricDocument) (*entities.LyricView, error) {
	annotations, err := s.annotations.ListByDoc(ctx, doc.DocID, doc.OwnerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list annotations")
	}
	if annotations == nil {
		annotations = []*entities.Annotation{}
	}
	return &entities.LyricView{LyricDocument: doc, Annotations: annotations}, nil
}

// appendSnapshot is the second step of a create or update. The document
// write already succeeded, so a failure here leaves the version without a
// snapshot until RepairSnapshot runs.
func (s *LyricService) appendSnapshot(ctx context.Context, snapshot *entities.VersionSnapshot) error {
	if err := s.versions.Append(ctx, snapshot); err != nil {
		s.logger.Error("Failed to append version snapshot",
			zap.String("docID", snapshot.DocID),
			zap.Int("version", snapshot.Version),
			zap.Error(err),
		)
		s.count(ctx, MetricSnapshotAppendFailures)
		return errors.SnapshotAppendFailed(snapshot.DocID, snapshot.Version, err)
	}
	return nil
}

// publish is best-effort; the write it describes has already happened
func (s *LyricService) publish(ctx context.Context, event events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("eventType", event.GetEventType()),
			zap.String("aggregateID", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}

func (s *LyricService) count(ctx context.Context, name string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementCounter(ctx, name, nil)
}

func containsFold(value, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), needle)
}
