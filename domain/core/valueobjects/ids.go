package valueobjects

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const maxIDLength = 128

// DocID identifies a lyric document. Generated IDs are UUIDs, but any
// opaque string that is safe to embed in a storage key is accepted so
// documents created by older clients stay addressable.
type DocID struct {
	value string
}

// NewDocID creates a new random DocID
func NewDocID() DocID {
	return DocID{value: uuid.New().String()}
}

// NewDocIDFromString creates a DocID from an existing string
func NewDocIDFromString(id string) (DocID, error) {
	if err := validateOpaqueID(id); err != nil {
		return DocID{}, errors.New("doc ID " + err.Error())
	}
	return DocID{value: id}, nil
}

// String returns the string representation of the DocID
func (id DocID) String() string {
	return id.value
}

// Equals checks if two DocIDs are equal
func (id DocID) Equals(other DocID) bool {
	return id.value == other.value
}

// IsZero checks if the DocID is the zero value
func (id DocID) IsZero() bool {
	return id.value == ""
}

// AnnotationID identifies an annotation within a document.
type AnnotationID struct {
	value string
}

// NewAnnotationID creates a new random AnnotationID
func NewAnnotationID() AnnotationID {
	return AnnotationID{value: uuid.New().String()}
}

// NewAnnotationIDFromString creates an AnnotationID from an existing string
func NewAnnotationIDFromString(id string) (AnnotationID, error) {
	if err := validateOpaqueID(id); err != nil {
		return AnnotationID{}, errors.New("annotation ID " + err.Error())
	}
	return AnnotationID{value: id}, nil
}

// String returns the string representation of the AnnotationID
func (id AnnotationID) String() string {
	return id.value
}

// IsZero checks if the AnnotationID is the zero value
func (id AnnotationID) IsZero() bool {
	return id.value == ""
}

// '#' separates key segments in storage, so it can never appear in an ID.
func validateOpaqueID(id string) error {
	switch {
	case id == "":
		return errors.New("cannot be empty")
	case len(id) > maxIDLength:
		return errors.New("is too long")
	case strings.ContainsAny(id, "# \t\r\n/"):
		return errors.New("contains invalid characters")
	}
	return nil
}
