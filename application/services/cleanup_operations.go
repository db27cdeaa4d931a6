package services

import (
	"context"
	stderrors "errors"

	"github.com/aokaito/annotune-sub000/pkg/errors"
	"go.uber.org/zap"
)

// PurgeResult reports what a purge removed
type PurgeResult struct {
	DocID              string `json:"docId"`
	AnnotationsDeleted int    `json:"annotationsDeleted"`
	SnapshotsDeleted   int    `json:"snapshotsDeleted"`
}

// PurgeOrphans removes the annotations and snapshots left behind by a
// deleted document. It refuses to run while the document still exists.
// Safe to repeat.
func (s *LyricService) PurgeOrphans(ctx context.Context, docID string) (*PurgeResult, error) {
	if _, err := s.lyrics.GetByID(ctx, docID); err == nil {
		return nil, errors.DocumentStillExists(docID)
	} else if !errors.IsNotFound(err) {
		return nil, errors.Wrap(err, "failed to check document before purge")
	}

	result := &PurgeResult{DocID: docID}
	var errs []error

	n, err := s.annotations.DeleteAllByDoc(ctx, docID)
	result.AnnotationsDeleted = n
	if err != nil {
		errs = append(errs, err)
	}

	n, err = s.versions.DeleteAll(ctx, docID)
	result.SnapshotsDeleted = n
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		s.logger.Error("Orphan purge incomplete",
			zap.String("docID", docID),
			zap.Int("annotationsDeleted", result.AnnotationsDeleted),
			zap.Int("snapshotsDeleted", result.SnapshotsDeleted),
			zap.Errors("errors", errs),
		)
		return result, stderrors.Join(errs...)
	}

	s.logger.Info("Orphans purged",
		zap.String("docID", docID),
		zap.Int("annotationsDeleted", result.AnnotationsDeleted),
		zap.Int("snapshotsDeleted", result.SnapshotsDeleted),
	)
	s.count(ctx, MetricOrphansPurged)
	return result, nil
}
