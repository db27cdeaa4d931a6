package config

import "time"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Lyric constraints
	MinTitleLength     int
	MaxTitleLength     int
	MaxArtistLength    int
	MinTextLength      int
	MaxTextLength      int
	MaxOwnerNameLength int

	// Annotation constraints
	MinTagLength     int
	MaxTagLength     int
	MaxCommentLength int
	MaxPropsEntries  int

	// Legacy annotations written before owner stamping stay readable and
	// mutable by the document owner while this is set.
	AllowOwnerlessAnnotations bool

	// Serializes annotation writes per document so the overlap check and
	// the insert cannot interleave across requests.
	StrictAnnotationLocking bool
	AnnotationLockTTL       time.Duration
	AnnotationLockWait      time.Duration
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MinTitleLength:     1,
		MaxTitleLength:     200,
		MaxArtistLength:    200,
		MinTextLength:      1,
		MaxTextLength:      20000,
		MaxOwnerNameLength: 100,

		MinTagLength:     1,
		MaxTagLength:     50,
		MaxCommentLength: 500,
		MaxPropsEntries:  20,

		AllowOwnerlessAnnotations: true,

		StrictAnnotationLocking: false,
		AnnotationLockTTL:       10 * time.Second,
		AnnotationLockWait:      3 * time.Second,
	}
}
