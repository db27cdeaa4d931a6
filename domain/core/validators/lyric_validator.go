package validators

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aokaito/annotune-sub000/domain/config"
	"github.com/aokaito/annotune-sub000/pkg/errors"
)

// LyricValidator validates lyric and annotation field rules. Lengths are
// counted in runes, the same unit annotation offsets use.
type LyricValidator struct {
	cfg *config.DomainConfig
}

// NewLyricValidator creates a validator bound to the given limits
func NewLyricValidator(cfg *config.DomainConfig) *LyricValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &LyricValidator{cfg: cfg}
}

// ValidateContent validates the editable content of a document
func (v *LyricValidator) ValidateContent(title, artist, text string) error {
	verrs := errors.NewValidationErrors()

	titleLen := utf8.RuneCountInString(strings.TrimSpace(title))
	if titleLen < v.cfg.MinTitleLength {
		verrs.Add("title", "title is required")
	} else if utf8.RuneCountInString(title) > v.cfg.MaxTitleLength {
		verrs.Add("title", fmt.Sprintf("title must be at most %d characters", v.cfg.MaxTitleLength))
	}

	if utf8.RuneCountInString(artist) > v.cfg.MaxArtistLength {
		verrs.Add("artist", fmt.Sprintf("artist must be at most %d characters", v.cfg.MaxArtistLength))
	}

	textLen := utf8.RuneCountInString(text)
	if textLen < v.cfg.MinTextLength {
		verrs.Add("text", "text is required")
	} else if textLen > v.cfg.MaxTextLength {
		verrs.Add("text", fmt.Sprintf("text must be at most %d characters", v.cfg.MaxTextLength))
	}

	if verrs.HasErrors() {
		return verrs
	}
	return nil
}

// ValidateOwnerName validates an optional display name
func (v *LyricValidator) ValidateOwnerName(name string) error {
	if utf8.RuneCountInString(name) > v.cfg.MaxOwnerNameLength {
		return errors.NewValidationError("ownerName",
			fmt.Sprintf("ownerName must be at most %d characters", v.cfg.MaxOwnerNameLength))
	}
	return nil
}

// ValidateAnnotation validates annotation fields other than the range,
// which depends on the document text and is checked separately.
func (v *LyricValidator) ValidateAnnotation(tag, comment string, props map[string]interface{}) error {
	verrs := errors.NewValidationErrors()

	tagLen := utf8.RuneCountInString(strings.TrimSpace(tag))
	if tagLen < v.cfg.MinTagLength {
		verrs.Add("tag", "tag is required")
	} else if utf8.RuneCountInString(tag) > v.cfg.MaxTagLength {
		verrs.Add("tag", fmt.Sprintf("tag must be at most %d characters", v.cfg.MaxTagLength))
	}

	if utf8.RuneCountInString(comment) > v.cfg.MaxCommentLength {
		verrs.Add("comment", fmt.Sprintf("comment must be at most %d characters", v.cfg.MaxCommentLength))
	}

	if len(props) > v.cfg.MaxPropsEntries {
		verrs.Add("props", fmt.Sprintf("props may hold at most %d entries", v.cfg.MaxPropsEntries))
	}
	for key := range props {
		if strings.TrimSpace(key) == "" {
			verrs.Add("props", "props keys cannot be empty")
			break
		}
	}

	if verrs.HasErrors() {
		return verrs
	}
	return nil
}
