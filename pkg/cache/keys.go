package cache

import "strings"

// Keyer builds cache keys for the cached API payloads.
type Keyer interface {
	// NotesKey identifies a note listing for one audience, e.g. "public".
	NotesKey(scope string) string

	// BlogListKey identifies one page of the published blog listing.
	BlogListKey(opts BlogListKeyOpts) string

	// BlogGenerationKey holds the token that versions every blog list key.
	BlogGenerationKey() string
}

// BlogListKeyOpts are the listing parameters that select a cached page.
// Generation changes whenever a post is written, which retires older pages.
type BlogListKeyOpts struct {
	Generation string `json:"gen"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Search     string `json:"search,omitempty"`
	Category   string `json:"category,omitempty"`
	SortBy     string `json:"sort_by"`
	SortOrder  string `json:"sort_order"`
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default key layout.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// NotesKey returns "notes:<scope>".
func (DefaultKeyer) NotesKey(scope string) string {
	return "notes:" + scope
}

// BlogListKey hashes the listing options so search terms never leak into keys.
func (DefaultKeyer) BlogListKey(opts BlogListKeyOpts) string {
	return hashKey("blogs", opts)
}

// BlogGenerationKey returns "blogs:generation".
func (DefaultKeyer) BlogGenerationKey() string {
	return "blogs:generation"
}

// KeyType returns the leading segment of a key ("notes", "blogs"), used as a
// bounded metrics label.
func KeyType(key string) string {
	// Scoped keys carry their namespace first; skip it.
	parts := strings.Split(key, ":")
	for _, p := range parts {
		switch p {
		case "notes", "blogs":
			return p
		}
	}
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}

var _ Keyer = DefaultKeyer{}
