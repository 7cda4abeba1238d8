// Package blog implements the site's blog: admin-authored posts with public
// listing, search, likes and view counting.
//
// Post bodies are HTML produced by the admin editor. They are sanitized on
// write with a user-generated-content policy, so the frontend can render
// them directly.
package blog

import (
	"context"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Blog is one post.
type Blog struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Slug      string    `json:"slug" bson:"slug"`
	Content   string    `json:"content" bson:"content"`
	Excerpt   string    `json:"excerpt" bson:"excerpt"`
	Published bool      `json:"published" bson:"published"`
	Featured  bool      `json:"featured" bson:"featured"`
	Category  *string   `json:"category" bson:"category,omitempty"`
	Tags      []string  `json:"tags" bson:"tags"`
	ViewCount int64     `json:"viewCount" bson:"view_count"`
	LikeCount int64     `json:"likeCount" bson:"-"`
	AuthorID  string    `json:"authorId" bson:"author_id"`
	Author    *Author   `json:"author,omitempty" bson:"-"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// Author is the public profile attached to a post.
type Author struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image"`
}

// Like records that a user liked a post.
type Like struct {
	ID        string    `json:"id" bson:"_id"`
	BlogID    string    `json:"blogId" bson:"blog_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Query is a normalized listing request as passed to a Store.
type Query struct {
	ListOptions
	PublishedOnly bool
}

// Store persists posts and likes. Get, GetBySlug and List fill LikeCount
// and Author.
type Store interface {
	Create(ctx context.Context, b *Blog) error
	Update(ctx context.Context, b *Blog) error

	// Delete removes the post. Likes must be removed first with DeleteLikes.
	Delete(ctx context.Context, id string) error

	// Get and GetBySlug return BLOG_NOT_FOUND when no post matches.
	Get(ctx context.Context, id string) (*Blog, error)
	GetBySlug(ctx context.Context, slug string) (*Blog, error)

	// SlugTaken reports whether a post other than exceptID uses slug.
	SlugTaken(ctx context.Context, slug, exceptID string) (bool, error)

	// List returns one page of posts and the total number of matches.
	List(ctx context.Context, q Query) ([]Blog, int, error)

	// IncrementViews adds one view and returns the new count.
	IncrementViews(ctx context.Context, id string) (int64, error)

	// GetLike returns nil, nil when the user has not liked the post.
	GetLike(ctx context.Context, blogID, userID string) (*Like, error)
	AddLike(ctx context.Context, l *Like) error
	RemoveLike(ctx context.Context, blogID, userID string) error
	DeleteLikes(ctx context.Context, blogID string) error
	LikeCount(ctx context.Context, blogID string) (int64, error)
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a title: lowercase, each run of
// characters outside [a-z0-9] becomes "-", and leading and trailing
// dashes are trimmed.
func Slugify(title string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

// ExcerptLength is the number of characters kept by DefaultExcerpt.
const ExcerptLength = 200

var (
	contentPolicy = bluemonday.UGCPolicy()
	textPolicy    = newTextPolicy()
	spaceRun      = regexp.MustCompile(`\s+`)
)

func newTextPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// PlainText strips markup from an HTML fragment and collapses whitespace.
func PlainText(fragment string) string {
	text := html.UnescapeString(textPolicy.Sanitize(fragment))
	return strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
}

// DefaultExcerpt returns the first ExcerptLength characters of the post's
// text followed by "...".
func DefaultExcerpt(content string) string {
	text := PlainText(content)
	if utf8.RuneCountInString(text) > ExcerptLength {
		text = string([]rune(text)[:ExcerptLength])
	}
	return text + "..."
}

// SanitizeContent removes scripts, event handlers and other unsafe markup
// from post HTML while keeping formatting.
func SanitizeContent(content string) string {
	return contentPolicy.Sanitize(content)
}
