package entities

import (
	"time"
	"unicode/utf8"
)

// LyricDocument is the versioned, owner-scoped unit of lyric text.
// Version starts at 1 and increases by exactly one per successful
// content update.
type LyricDocument struct {
	DocID        string    `json:"docId"`
	OwnerID      string    `json:"ownerId"`
	OwnerName    string    `json:"ownerName,omitempty"`
	Title        string    `json:"title"`
	Artist       string    `json:"artist"`
	Text         string    `json:"text"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	IsPublicView bool      `json:"isPublicView"`
}

// NewLyricDocument creates a private document at version 1.
func NewLyricDocument(docID, ownerID, ownerName, title, artist, text string, now time.Time) *LyricDocument {
	return &LyricDocument{
		DocID:        docID,
		OwnerID:      ownerID,
		OwnerName:    ownerName,
		Title:        title,
		Artist:       artist,
		Text:         text,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
		IsPublicView: false,
	}
}

// TextLength is the length annotation offsets are measured against.
func (d *LyricDocument) TextLength() int {
	return utf8.RuneCountInString(d.Text)
}

// IsOwnedBy reports whether ownerID owns the document.
func (d *LyricDocument) IsOwnedBy(ownerID string) bool {
	return ownerID != "" && d.OwnerID == ownerID
}

// DisplayName returns the owner display name, or "" when none was set or
// the stored name is just the owner ID echoed back.
func (d *LyricDocument) DisplayName() string {
	if d.OwnerName == d.OwnerID {
		return ""
	}
	return d.OwnerName
}

// PublicView returns a copy safe to serve to anonymous readers.
func (d *LyricDocument) PublicView() *LyricDocument {
	cp := *d
	cp.OwnerName = d.DisplayName()
	return &cp
}

// Snapshot captures the current content as an immutable version record.
func (d *LyricDocument) Snapshot(authorID string, at time.Time) *VersionSnapshot {
	return &VersionSnapshot{
		DocID:     d.DocID,
		Version:   d.Version,
		Title:     d.Title,
		Artist:    d.Artist,
		Text:      d.Text,
		CreatedAt: at,
		AuthorID:  authorID,
		OwnerID:   d.OwnerID,
	}
}

// LyricView is a document together with the annotations visible on it.
type LyricView struct {
	*LyricDocument
	Annotations []*Annotation `json:"annotations"`
}
