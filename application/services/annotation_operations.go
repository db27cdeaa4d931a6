package services

import (
	"context"

	"github.com/aokaito/annotune-sub000/application/ports"
	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/domain/core/validators"
	"github.com/aokaito/annotune-sub000/domain/core/valueobjects"
	"github.com/aokaito/annotune-sub000/domain/events"
	"github.com/aokaito/annotune-sub000/pkg/errors"
	"go.uber.org/zap"
)

// AnnotationInput carries the editable fields of an annotation
type AnnotationInput struct {
	Start   int
	End     int
	Tag     string
	Comment string
	Props   map[string]interface{}
}

// CreateAnnotation adds an annotation to an owned document. The range
// must fit the current text and must not overlap any visible annotation.
//
// Without strict locking the overlap check and the insert are separate
// steps, so two concurrent creates can both pass the check.
func (s *LyricService) CreateAnnotation(ctx context.Context, docID, ownerID, authorID string, in AnnotationInput) (*entities.Annotation, error) {
	if err := s.validator.ValidateAnnotation(in.Tag, in.Comment, in.Props); err != nil {
		return nil, err
	}
	if authorID == "" {
		authorID = ownerID
	}

	release, err := s.lockAnnotations(ctx, docID)
	if err != nil {
		return nil, err
	}
	defer release()

	view, err := s.ownedView(ctx, docID, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.checkPlacement(ctx, view, in, ""); err != nil {
		return nil, err
	}

	now := s.now()
	annotation := entities.NewAnnotation(
		valueobjects.NewAnnotationID().String(),
		docID,
		view.OwnerID,
		authorID,
		in.Start, in.End,
		in.Tag, in.Comment, in.Props,
		now,
	)
	if err := s.annotations.Create(ctx, annotation); err != nil {
		return nil, errors.Wrap(err, "failed to create annotation")
	}

	s.logger.Info("Annotation created",
		zap.String("docID", docID),
		zap.String("annotationID", annotation.AnnotationID),
		zap.Int("start", in.Start),
		zap.Int("end", in.End),
	)
	s.count(ctx, MetricAnnotationsCreated)
	s.publish(ctx, events.NewAnnotationChanged(events.TypeAnnotationCreated, docID, annotation.AnnotationID,
		ownerID, in.Start, in.End, in.Tag, annotation.Version, now))

	return annotation, nil
}

// UpdateAnnotation rewrites an annotation's range and fields. The new
// range is checked against every other visible annotation.
func (s *LyricService) UpdateAnnotation(ctx context.Context, docID, ownerID, annotationID string, in AnnotationInput) (*entities.Annotation, error) {
	if err := s.validator.ValidateAnnotation(in.Tag, in.Comment, in.Props); err != nil {
		return nil, err
	}

	release, err := s.lockAnnotations(ctx, docID)
	if err != nil {
		return nil, err
	}
	defer release()

	view, err := s.ownedView(ctx, docID, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.checkPlacement(ctx, view, in, annotationID); err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := s.annotations.Update(ctx, docID, annotationID, ownerID, ports.AnnotationChanges{
		Start:   in.Start,
		End:     in.End,
		Tag:     in.Tag,
		Comment: in.Comment,
		Props:   in.Props,
	}, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update annotation")
	}

	s.logger.Info("Annotation updated",
		zap.String("docID", docID),
		zap.String("annotationID", annotationID),
	)
	s.publish(ctx, events.NewAnnotationChanged(events.TypeAnnotationUpdated, docID, annotationID,
		ownerID, updated.Start, updated.End, updated.Tag, updated.Version, now))

	return updated, nil
}

// DeleteAnnotation removes an annotation from an owned document
func (s *LyricService) DeleteAnnotation(ctx context.Context, docID, ownerID, annotationID string) error {
	if _, err := s.loadOwnedLyric(ctx, docID, ownerID); err != nil {
		return err
	}

	if err := s.annotations.Delete(ctx, docID, annotationID, ownerID); err != nil {
		return errors.Wrap(err, "failed to delete annotation")
	}

	s.logger.Info("Annotation deleted",
		zap.String("docID", docID),
		zap.String("annotationID", annotationID),
	)
	s.publish(ctx, events.NewAnnotationChanged(events.TypeAnnotationDeleted, docID, annotationID,
		ownerID, 0, 0, "", 0, s.now()))

	return nil
}

func (s *LyricService) ownedView(ctx context.Context, docID, ownerID string) (*entities.LyricView, error) {
	if ownerID == "" {
		return nil, errors.Unauthorized("owner is required")
	}
	return s.GetLyric(ctx, docID, ownerID)
}

func (s *LyricService) checkPlacement(ctx context.Context, view *entities.LyricView, in AnnotationInput, excludeID string) error {
	if err := validators.ValidateRange(in.Start, in.End, view.TextLength()); err != nil {
		return err
	}
	candidate := validators.Range{Start: in.Start, End: in.End}
	if err := validators.FindOverlap(candidate, view.Annotations, excludeID); err != nil {
		s.count(ctx, MetricOverlapRejections)
		return err
	}
	return nil
}

// lockAnnotations holds the per-document annotation lock when strict
// locking is enabled. The returned release func never fails the request.
func (s *LyricService) lockAnnotations(ctx context.Context, docID string) (func(), error) {
	if s.locker == nil || !s.cfg.StrictAnnotationLocking {
		return func() {}, nil
	}

	resource := "lyric-annotations#" + docID
	unlock, err := s.locker.Acquire(ctx, resource)
	if err != nil {
		return nil, err
	}

	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release annotation lock",
				zap.String("resource", resource),
				zap.Error(err),
			)
		}
	}, nil
}
