package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aokaito/annotune-sub000/application/services"
	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/domain/core/valueobjects"
	"github.com/aokaito/annotune-sub000/pkg/auth"
	"github.com/aokaito/annotune-sub000/pkg/errors"

	"github.com/go-chi/chi/v5"
)

// LyricAPI is the service surface the HTTP handlers drive.
// *services.LyricService implements it.
type LyricAPI interface {
	CreateLyric(ctx context.Context, ownerID string, in services.CreateLyricInput) (*entities.LyricDocument, error)
	GetLyric(ctx context.Context, docID, ownerID string) (*entities.LyricView, error)
	GetLyricForPublic(ctx context.Context, docID string) (*entities.LyricView, error)
	ListLyrics(ctx context.Context, ownerID string) ([]*entities.LyricDocument, error)
	ListPublicLyrics(ctx context.Context, filter services.PublicFilter) ([]*entities.LyricDocument, error)
	UpdateLyric(ctx context.Context, docID, ownerID string, in services.UpdateLyricInput) (*entities.LyricDocument, error)
	DeleteLyric(ctx context.Context, docID, ownerID string) error
	ShareLyric(ctx context.Context, docID, ownerID string, isPublic bool, ownerName *string) (*entities.LyricDocument, error)
	RepairSnapshot(ctx context.Context, docID, ownerID string) (bool, error)

	GetLyricAnnotations(ctx context.Context, docID, ownerID string) ([]*entities.Annotation, error)
	CreateAnnotation(ctx context.Context, docID, ownerID, authorID string, in services.AnnotationInput) (*entities.Annotation, error)
	UpdateAnnotation(ctx context.Context, docID, ownerID, annotationID string, in services.AnnotationInput) (*entities.Annotation, error)
	DeleteAnnotation(ctx context.Context, docID, ownerID, annotationID string) error

	ListVersions(ctx context.Context, docID, ownerID string) ([]*entities.VersionSnapshot, error)
	GetVersion(ctx context.Context, docID string, version int, ownerID string) (*entities.VersionSnapshot, error)
}

var _ LyricAPI = (*services.LyricService)(nil)

func currentUser(r *http.Request) (*auth.UserContext, error) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil || user.UserID == "" {
		return nil, errors.Unauthorized("authentication required")
	}
	return user, nil
}

func docIDParam(r *http.Request) (string, error) {
	id, err := valueobjects.NewDocIDFromString(chi.URLParam(r, "docId"))
	if err != nil {
		return "", errors.NewValidationError("docId", err.Error())
	}
	return id.String(), nil
}

func annotationIDParam(r *http.Request) (string, error) {
	id, err := valueobjects.NewAnnotationIDFromString(chi.URLParam(r, "annotationId"))
	if err != nil {
		return "", errors.NewValidationError("annotationId", err.Error())
	}
	return id.String(), nil
}

func versionParam(r *http.Request) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || v < 1 {
		return 0, errors.NewValidationError("version", "version must be a positive integer")
	}
	return v, nil
}
