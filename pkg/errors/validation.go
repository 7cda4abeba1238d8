package errors

import (
	"math"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Content limits enforced by the validators.
const (
	MaxNoteLength    = 2000
	MaxTitleLength   = 200
	MaxSlugLength    = 220
	MaxEmailLength   = 254
	maxURLLength     = 2048
	maxCoordinateAbs = 1e7
)

// ValidateNoteContent checks the text of a note.
//
// The validation rules are:
//   - Content must contain at least one non-space character
//   - Maximum length of MaxNoteLength runes
//   - No null bytes or control characters other than newlines and tabs
func ValidateNoteContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return New(ErrCodeInvalidNote, "note content cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxNoteLength {
		return New(ErrCodeInvalidNote, "note content too long (max %d characters)", MaxNoteLength)
	}
	for _, r := range content {
		if r == '\n' || r == '\t' || r == '\r' {
			continue
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidNote, "note content contains invalid control characters")
		}
	}
	return nil
}

// ValidateCoordinate checks a canvas coordinate.
// The wall is unbounded, but coordinates must be finite and within a sane range.
func ValidateCoordinate(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidNote, "%s must be a finite number", name)
	}
	if math.Abs(v) > maxCoordinateAbs {
		return New(ErrCodeInvalidNote, "%s is out of range", name)
	}
	return nil
}

// ValidateEmail validates an e-mail address.
func ValidateEmail(email string) error {
	if email == "" {
		return New(ErrCodeInvalidInput, "email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return New(ErrCodeInvalidInput, "email too long (max %d characters)", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return New(ErrCodeInvalidInput, "invalid email address: %q", email)
	}
	return nil
}

// ValidateBlogTitle checks a blog title.
func ValidateBlogTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return New(ErrCodeInvalidBlog, "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return New(ErrCodeInvalidBlog, "title too long (max %d characters)", MaxTitleLength)
	}
	for _, r := range title {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidBlog, "title contains invalid control characters")
		}
	}
	return nil
}

// slugRegex matches lowercase hyphen-separated slugs.
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidateSlug validates a blog slug as produced by blog.Slugify.
func ValidateSlug(slug string) error {
	if slug == "" {
		return New(ErrCodeInvalidSlug, "slug cannot be empty")
	}
	if len(slug) > MaxSlugLength {
		return New(ErrCodeInvalidSlug, "slug too long (max %d characters)", MaxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return New(ErrCodeInvalidSlug, "invalid slug: %q", slug)
	}
	return nil
}

// ValidateID validates an opaque identifier taken from a URL or payload.
// It rejects values that could be used for path traversal or injection.
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "id too long (max 128 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) || r == '/' || r == '\\' {
			return New(ErrCodeInvalidInput, "id contains invalid characters")
		}
	}
	if strings.Contains(id, "..") {
		return New(ErrCodeInvalidInput, "id contains invalid characters")
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if len(rawURL) > maxURLLength {
		return New(ErrCodeInvalidInput, "URL too long (max %d characters)", maxURLLength)
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
