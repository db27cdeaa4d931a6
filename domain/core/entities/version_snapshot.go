package entities

import "time"

// VersionSnapshot is an immutable copy of a document's content at one
// version. (DocID, Version) is unique.
type VersionSnapshot struct {
	DocID     string    `json:"docId"`
	Version   int       `json:"version"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	AuthorID  string    `json:"authorId"`
	OwnerID   string    `json:"ownerId,omitempty"`
}

// VisibleTo reports whether ownerID may read the snapshot. Snapshots
// written before owner stamping carry no owner and are visible to anyone
// who already passed the document ownership check.
func (s *VersionSnapshot) VisibleTo(ownerID string) bool {
	return s.OwnerID == "" || s.OwnerID == ownerID
}
