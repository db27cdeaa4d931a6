package handlers

import (
	"net/http"

	"github.com/aokaito/annotune-sub000/application/services"
	"github.com/aokaito/annotune-sub000/pkg/common"
	"github.com/aokaito/annotune-sub000/pkg/errors"
	"github.com/aokaito/annotune-sub000/pkg/utils"

	"go.uber.org/zap"
)

// AnnotationHandler handles annotation and version history requests
type AnnotationHandler struct {
	service LyricAPI
	errors  *errors.ErrorHandler
	logger  *zap.Logger
}

// NewAnnotationHandler creates a new annotation handler
func NewAnnotationHandler(service LyricAPI, errorHandler *errors.ErrorHandler, logger *zap.Logger) *AnnotationHandler {
	return &AnnotationHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger,
	}
}

// AnnotationRequest is the body for both create and update. Range bounds
// against the text are checked by the service.
type AnnotationRequest struct {
	Start   *int                   `json:"start" validate:"required,min=0"`
	End     *int                   `json:"end" validate:"required,min=1"`
	Tag     string                 `json:"tag" validate:"required,runemax=50"`
	Comment string                 `json:"comment,omitempty" validate:"runemax=500"`
	Props   map[string]interface{} `json:"props,omitempty"`
}

func (req AnnotationRequest) input() services.AnnotationInput {
	return services.AnnotationInput{
		Start:   *req.Start,
		End:     *req.End,
		Tag:     req.Tag,
		Comment: req.Comment,
		Props:   req.Props,
	}
}

func (h *AnnotationHandler) decode(w http.ResponseWriter, r *http.Request) (AnnotationRequest, error) {
	var req AnnotationRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		return req, err
	}
	return req, utils.ValidateStruct(req)
}

// ListAnnotations handles GET /lyrics/{docId}/annotations
func (h *AnnotationHandler) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	docID, err := docIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	annotations, err := h.service.GetLyricAnnotations(r.Context(), docID, user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondList(w, annotations, len(annotations))
}

// CreateAnnotation handles POST /lyrics/{docId}/annotations
func (h *AnnotationHandler) CreateAnnotation(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	docID, err := docIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	req, err := h.decode(w, r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	annotation, err := h.service.CreateAnnotation(r.Context(), docID, user.UserID, user.UserID, req.input())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, annotation)
}

// UpdateAnnotation handles PUT /lyrics/{docId}/annotations/{annotationId}
func (h *AnnotationHandler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	docID, err := docIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	annotationID, err := annotationIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	req, err := h.decode(w, r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	annotation, err := h.service.UpdateAnnotation(r.Context(), docID, user.UserID, annotationID, req.input())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, annotation)
}

// DeleteAnnotation handles DELETE /lyrics/{docId}/annotations/{annotationId}
func (h *AnnotationHandler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	docID, err := docIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	annotationID, err := annotationIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := h.service.DeleteAnnotation(r.Context(), docID, user.UserID, annotationID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondNoContent(w)
}

// ListVersions handles GET /lyrics/{docId}/versions
func (h *AnnotationHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	docID, err := docIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	snapshots, err := h.service.ListVersions(r.Context(), docID, user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondList(w, snapshots, len(snapshots))
}

// GetVersion handles GET /lyrics/{docId}/versions/{version}
func (h *AnnotationHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	docID, err := docIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	version, err := versionParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	snapshot, err := h.service.GetVersion(r.Context(), docID, version, user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, snapshot)
}
