package handlers

import (
	"net/http"
	"strings"

	"github.com/aokaito/annotune-sub000/application/services"
	"github.com/aokaito/annotune-sub000/pkg/common"
	"github.com/aokaito/annotune-sub000/pkg/errors"
	"github.com/aokaito/annotune-sub000/pkg/utils"

	"go.uber.org/zap"
)

// LyricHandler handles lyric document requests
type LyricHandler struct {
	service LyricAPI
	errors  *errors.ErrorHandler
	logger  *zap.Logger
}

// NewLyricHandler creates a new lyric handler
func NewLyricHandler(service LyricAPI, errorHandler *errors.ErrorHandler, logger *zap.Logger) *LyricHandler {
	return &LyricHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger,
	}
}

// CreateLyricRequest represents the request body for creating a lyric.
// OwnerName falls back to the token's name claim when omitted.
type CreateLyricRequest struct {
	Title     string  `json:"title" validate:"required,runemax=200"`
	Artist    string  `json:"artist" validate:"runemax=200"`
	Text      string  `json:"text" validate:"required,runemax=20000"`
	OwnerName *string `json:"ownerName,omitempty" validate:"omitempty,runemax=100"`
}

// UpdateLyricRequest carries the full new content and the version it was based on
type UpdateLyricRequest struct {
	Title   string `json:"title" validate:"required,runemax=200"`
	Artist  string `json:"artist" validate:"runemax=200"`
	Text    string `json:"text" validate:"required,runemax=20000"`
	Version int    `json:"version" validate:"required,min=1"`
}

// ShareLyricRequest toggles public visibility
type ShareLyricRequest struct {
	IsPublic  *bool   `json:"isPublic" validate:"required"`
	OwnerName *string `json:"ownerName,omitempty" validate:"omitempty,runemax=100"`
}

// RepairResponse reports whether a missing snapshot was written
type RepairResponse struct {
	Repaired bool `json:"repaired"`
}

// CreateLyric handles POST /lyrics
func (h *LyricHandler) CreateLyric(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req CreateLyricRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	ownerName := user.Name
	if req.OwnerName != nil {
		ownerName = strings.TrimSpace(*req.OwnerName)
	}

	doc, err := h.service.CreateLyric(r.Context(), user.UserID, services.CreateLyricInput{
		Title:     req.Title,
		Artist:    req.Artist,
		Text:      req.Text,
		OwnerName: ownerName,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/lyrics/"+doc.DocID)
	common.RespondJSON(w, http.StatusCreated, doc)
}

// ListLyrics handles GET /lyrics
func (h *LyricHandler) ListLyrics(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	docs, err := h.service.ListLyrics(r.Context(), user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondList(w, docs, len(docs))
}

// GetLyric handles GET /lyrics/{docId}
func (h *LyricHandler) GetLyric(w http.ResponseWriter, r *http.Request) {
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

	view, err := h.service.GetLyric(r.Context(), docID, user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, view)
}

// UpdateLyric handles PUT /lyrics/{docId}
func (h *LyricHandler) UpdateLyric(w http.ResponseWriter, r *http.Request) {
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

	var req UpdateLyricRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	doc, err := h.service.UpdateLyric(r.Context(), docID, user.UserID, services.UpdateLyricInput{
		Title:   req.Title,
		Artist:  req.Artist,
		Text:    req.Text,
		Version: req.Version,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, doc)
}

// DeleteLyric handles DELETE /lyrics/{docId}
func (h *LyricHandler) DeleteLyric(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.DeleteLyric(r.Context(), docID, user.UserID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondNoContent(w)
}

// ShareLyric handles POST /lyrics/{docId}/share
func (h *LyricHandler) ShareLyric(w http.ResponseWriter, r *http.Request) {
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

	var req ShareLyricRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var ownerName *string
	if req.OwnerName != nil {
		trimmed := strings.TrimSpace(*req.OwnerName)
		ownerName = &trimmed
	}

	doc, err := h.service.ShareLyric(r.Context(), docID, user.UserID, *req.IsPublic, ownerName)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, doc)
}

// RepairSnapshot handles POST /lyrics/{docId}/repair
func (h *LyricHandler) RepairSnapshot(w http.ResponseWriter, r *http.Request) {
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

	repaired, err := h.service.RepairSnapshot(r.Context(), docID, user.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, RepairResponse{Repaired: repaired})
}

// ListPublicLyrics handles GET /public/lyrics
func (h *LyricHandler) ListPublicLyrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docs, err := h.service.ListPublicLyrics(r.Context(), services.PublicFilter{
		Title:  q.Get("title"),
		Artist: q.Get("artist"),
		Author: q.Get("author"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondList(w, docs, len(docs))
}

// GetPublicLyric handles GET /public/lyrics/{docId}
func (h *LyricHandler) GetPublicLyric(w http.ResponseWriter, r *http.Request) {
	docID, err := docIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	view, err := h.service.GetLyricForPublic(r.Context(), docID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, view)
}
