package services

import (
	"context"

	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/pkg/errors"
	"go.uber.org/zap"
)

// ListVersions returns the snapshot history of an owned document, newest first
func (s *LyricService) ListVersions(ctx context.Context, docID, ownerID string) ([]*entities.VersionSnapshot, error) {
	if _, err := s.loadOwnedLyric(ctx, docID, ownerID); err != nil {
		return nil, err
	}

	snapshots, err := s.versions.List(ctx, docID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list versions")
	}
	if snapshots == nil {
		snapshots = []*entities.VersionSnapshot{}
	}
	return snapshots, nil
}

// GetVersion returns one snapshot of an owned document
func (s *LyricService) GetVersion(ctx context.Context, docID string, version int, ownerID string) (*entities.VersionSnapshot, error) {
	if version < 1 {
		return nil, errors.NewValidationError("version", "version must be at least 1")
	}
	if _, err := s.loadOwnedLyric(ctx, docID, ownerID); err != nil {
		return nil, err
	}

	snapshot, err := s.versions.Get(ctx, docID, version)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get version")
	}
	if !snapshot.VisibleTo(ownerID) {
		return nil, errors.Forbidden("version is owned by another user")
	}
	return snapshot, nil
}

// RepairSnapshot writes the snapshot for the document's current version if
// it is missing, which is the state a failed second write leaves behind.
// Reports whether a snapshot was written.
func (s *LyricService) RepairSnapshot(ctx context.Context, docID, ownerID string) (bool, error) {
	doc, err := s.loadOwnedLyric(ctx, docID, ownerID)
	if err != nil {
		return false, err
	}

	written, err := s.versions.AppendIfAbsent(ctx, doc.Snapshot(doc.OwnerID, doc.UpdatedAt))
	if err != nil {
		return false, errors.Wrap(err, "failed to repair snapshot")
	}

	if written {
		s.logger.Info("Repaired missing version snapshot",
			zap.String("docID", docID),
			zap.Int("version", doc.Version),
		)
		s.count(ctx, MetricSnapshotsRepaired)
	}
	return written, nil
}
