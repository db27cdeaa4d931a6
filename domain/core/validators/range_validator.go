package validators

import (
	"github.com/aokaito/annotune-sub000/domain/core/entities"
	"github.com/aokaito/annotune-sub000/pkg/errors"
)

// Range is a half-open interval [Start, End) of rune offsets.
type Range struct {
	Start int
	End   int
}

// ValidateRange checks 0 <= start < end <= textLength.
func ValidateRange(start, end, textLength int) error {
	if start < 0 || end <= start || end > textLength {
		return errors.InvalidRange(start, end, textLength)
	}
	return nil
}

// Overlaps reports whether two half-open intervals share at least one
// offset. Touching intervals such as [0,5) and [5,10) do not overlap.
func Overlaps(a, b Range) bool {
	return a.Start < b.End && b.Start < a.End
}

// FindOverlap returns an OverlappingAnnotation error for the first
// annotation in existing whose range overlaps candidate. The annotation
// identified by excludeID is skipped so an update does not collide with
// its own previous range.
func FindOverlap(candidate Range, existing []*entities.Annotation, excludeID string) error {
	for _, a := range existing {
		if excludeID != "" && a.AnnotationID == excludeID {
			continue
		}
		if Overlaps(candidate, Range{Start: a.Start, End: a.End}) {
			return errors.OverlappingAnnotation(a.AnnotationID, a.Start, a.End)
		}
	}
	return nil
}
