package entities

import "time"

// Annotation tags a half-open rune range [Start, End) of a document's text.
type Annotation struct {
	AnnotationID string                 `json:"annotationId"`
	DocID        string                 `json:"docId"`
	OwnerID      string                 `json:"ownerId,omitempty"`
	AuthorID     string                 `json:"authorId"`
	Start        int                    `json:"start"`
	End          int                    `json:"end"`
	Tag          string                 `json:"tag"`
	Comment      string                 `json:"comment,omitempty"`
	Props        map[string]interface{} `json:"props,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
	Version      int                    `json:"version"`
}

// NewAnnotation creates an annotation stamped with the document owner.
func NewAnnotation(annotationID, docID, ownerID, authorID string, start, end int, tag, comment string, props map[string]interface{}, now time.Time) *Annotation {
	return &Annotation{
		AnnotationID: annotationID,
		DocID:        docID,
		OwnerID:      ownerID,
		AuthorID:     authorID,
		Start:        start,
		End:          end,
		Tag:          tag,
		Comment:      comment,
		Props:        props,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// IsLegacy reports whether the annotation predates owner stamping.
func (a *Annotation) IsLegacy() bool {
	return a.OwnerID == ""
}

// VisibleTo reports whether an owner-scoped read for ownerID includes a.
func (a *Annotation) VisibleTo(ownerID string, allowLegacy bool) bool {
	if a.OwnerID == ownerID {
		return true
	}
	return allowLegacy && a.IsLegacy()
}

// Clone returns a deep copy.
func (a *Annotation) Clone() *Annotation {
	cp := *a
	if a.Props != nil {
		cp.Props = make(map[string]interface{}, len(a.Props))
		for k, v := range a.Props {
			cp.Props[k] = v
		}
	}
	return &cp
}
