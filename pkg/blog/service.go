package blog

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/folioworks/folio/pkg/cache"
	"github.com/folioworks/folio/pkg/errors"
)

// Service defaults.
const (
	DefaultCacheTTL     = 30 * time.Second
	DefaultLikeCooldown = time.Second
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	Cache        cache.Cache
	Keyer        cache.Keyer
	CacheTTL     time.Duration
	LikeCooldown time.Duration
	Logger       *log.Logger
}

// Actor is the user performing a blog operation.
type Actor struct {
	UserID string
	Admin  bool
}

// Service implements the blog operations.
type Service struct {
	store    Store
	cache    cache.Cache
	keyer    cache.Keyer
	cacheTTL time.Duration
	cooldown time.Duration
	logger   *log.Logger
	now      func() time.Time

	mu      sync.Mutex
	toggled map[likeKey]time.Time
}

type likeKey struct{ blogID, userID string }

// NewService creates a Service over store.
func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:    store,
		cache:    opts.Cache,
		keyer:    opts.Keyer,
		cacheTTL: opts.CacheTTL,
		cooldown: opts.LikeCooldown,
		logger:   opts.Logger,
		now:      time.Now,
		toggled:  make(map[likeKey]time.Time),
	}
	if s.cache == nil {
		s.cache = cache.NewNullCache()
	}
	if s.keyer == nil {
		s.keyer = cache.NewDefaultKeyer()
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = DefaultCacheTTL
	}
	if s.cooldown <= 0 {
		s.cooldown = DefaultLikeCooldown
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	return s
}

// =============================================================================
// Reads
// =============================================================================

// List returns one page of published posts. Pages are cached until the next
// write or until the cache TTL passes.
func (s *Service) List(ctx context.Context, opts ListOptions) (*Page, error) {
	opts = opts.Normalize()
	key := s.keyer.BlogListKey(cache.BlogListKeyOpts{
		Generation: s.generation(ctx),
		Page:       opts.Page,
		Limit:      opts.Limit,
		Search:     opts.Search,
		Category:   opts.Category,
		SortBy:     opts.SortBy,
		SortOrder:  opts.SortOrder,
	})
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("blog cache read failed", "err", err)
	} else if ok {
		var page Page
		if err := json.Unmarshal(data, &page); err == nil {
			return &page, nil
		}
	}

	page, err := s.list(ctx, Query{ListOptions: opts, PublishedOnly: true})
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(page); err == nil {
		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			s.logger.Warn("blog cache write failed", "err", err)
		}
	}
	return page, nil
}

// ListAll returns one page of every post, drafts included. Admin only.
func (s *Service) ListAll(ctx context.Context, actor Actor, opts ListOptions) (*Page, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.list(ctx, Query{ListOptions: opts.Normalize()})
}

func (s *Service) list(ctx context.Context, q Query) (*Page, error) {
	blogs, total, err := s.store.List(ctx, q)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to list blogs")
	}
	if blogs == nil {
		blogs = []Blog{}
	}
	return &Page{Blogs: blogs, Pagination: NewPagination(q.ListOptions, total)}, nil
}

// Get returns a post by id. Drafts are only visible to the admin.
func (s *Service) Get(ctx context.Context, id string, actor Actor) (*Blog, error) {
	if err := errors.ValidateID(id); err != nil {
		return nil, err
	}
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load blog")
	}
	return visible(b, actor)
}

// GetBySlug returns a post by slug. Drafts are only visible to the admin.
func (s *Service) GetBySlug(ctx context.Context, slug string, actor Actor) (*Blog, error) {
	if err := errors.ValidateSlug(slug); err != nil {
		return nil, errors.New(errors.ErrCodeBlogNotFound, "blog not found")
	}
	b, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundOr(err, "failed to load blog")
	}
	return visible(b, actor)
}

func visible(b *Blog, actor Actor) (*Blog, error) {
	if !b.Published && !actor.Admin {
		return nil, errors.New(errors.ErrCodeBlogNotFound, "blog not found")
	}
	return b, nil
}

// =============================================================================
// Writes
// =============================================================================

// Input is the editable content of a post. Nil pointer fields and a nil
// Tags slice keep their current value on update and default on create.
type Input struct {
	Title     string
	Content   string
	Excerpt   string
	Published *bool
	Featured  *bool
	Category  *string
	Tags      []string
}

func (in Input) validate() error {
	if err := errors.ValidateBlogTitle(in.Title); err != nil {
		return err
	}
	if strings.TrimSpace(in.Content) == "" {
		return errors.New(errors.ErrCodeInvalidBlog, "content is required")
	}
	if err := errors.ValidateSlug(Slugify(in.Title)); err != nil {
		return errors.New(errors.ErrCodeInvalidBlog, "title must contain letters or digits")
	}
	return nil
}

// Create stores a new post authored by actor. Admin only.
func (s *Service) Create(ctx context.Context, actor Actor, in Input) (*Blog, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	slug := Slugify(in.Title)
	if err := s.checkSlug(ctx, slug, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	b := &Blog{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		Slug:      slug,
		AuthorID:  actor.UserID,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(b, in)
	if err := s.store.Create(ctx, b); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to create blog")
	}
	s.invalidate(ctx)

	s.logger.Info("blog created", "id", b.ID, "slug", b.Slug, "published", b.Published)
	return b, nil
}

// Update replaces the content of post id. The slug follows the title. Admin only.
func (s *Service) Update(ctx context.Context, actor Actor, id string, in Input) (*Blog, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := errors.ValidateID(id); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load blog")
	}
	title := strings.TrimSpace(in.Title)
	if title != b.Title {
		slug := Slugify(title)
		if err := s.checkSlug(ctx, slug, id); err != nil {
			return nil, err
		}
		b.Title, b.Slug = title, slug
	}
	apply(b, in)
	b.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, b); err != nil {
		return nil, notFoundOr(err, "failed to update blog")
	}
	s.invalidate(ctx)

	s.logger.Info("blog updated", "id", b.ID, "slug", b.Slug, "published", b.Published)
	return b, nil
}

func apply(b *Blog, in Input) {
	b.Content = SanitizeContent(in.Content)
	b.Excerpt = strings.TrimSpace(in.Excerpt)
	if b.Excerpt == "" {
		b.Excerpt = DefaultExcerpt(b.Content)
	}
	if in.Published != nil {
		b.Published = *in.Published
	}
	if in.Featured != nil {
		b.Featured = *in.Featured
	}
	if in.Category != nil {
		if c := strings.TrimSpace(*in.Category); c != "" {
			b.Category = &c
		} else {
			b.Category = nil
		}
	}
	if in.Tags != nil {
		b.Tags = cleanTags(in.Tags)
	}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (s *Service) checkSlug(ctx context.Context, slug, exceptID string) error {
	taken, err := s.store.SlugTaken(ctx, slug, exceptID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to check slug")
	}
	if taken {
		return errors.New(errors.ErrCodeConflict, "A blog with this title already exists")
	}
	return nil
}

// Delete removes a post and its likes. Admin only.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := errors.ValidateID(id); err != nil {
		return err
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return notFoundOr(err, "failed to load blog")
	}
	if err := s.store.DeleteLikes(ctx, id); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to delete likes")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return notFoundOr(err, "failed to delete blog")
	}
	s.invalidate(ctx)

	s.logger.Info("blog deleted", "id", id)
	return nil
}

// =============================================================================
// Engagement
// =============================================================================

// LikeResult is the state after a like toggle.
type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}

// ToggleLike likes the post for userID, or removes the like if present.
// Toggling the same post again within the cooldown is rate limited.
func (s *Service) ToggleLike(ctx context.Context, id, userID string) (*LikeResult, error) {
	if userID == "" {
		return nil, errors.New(errors.ErrCodeUnauthorized, "sign in to like posts")
	}
	if err := errors.ValidateID(id); err != nil {
		return nil, err
	}

	now := s.now()
	existing, err := s.store.GetLike(ctx, id, userID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to load like")
	}
	if existing != nil && now.Sub(existing.CreatedAt) < s.cooldown {
		return nil, s.rateLimited()
	}
	if !s.claimToggle(likeKey{id, userID}, now) {
		return nil, s.rateLimited()
	}

	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, notFoundOr(err, "failed to load blog")
	}

	liked := existing == nil
	if liked {
		err = s.store.AddLike(ctx, &Like{ID: uuid.NewString(), BlogID: id, UserID: userID, CreatedAt: now.UTC()})
	} else {
		err = s.store.RemoveLike(ctx, id, userID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to update like")
	}

	count, err := s.store.LikeCount(ctx, id)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to count likes")
	}
	return &LikeResult{Liked: liked, LikeCount: count}, nil
}

// claimToggle records a toggle by key at now unless one happened within the
// cooldown. Expired entries are dropped as a side effect.
func (s *Service) claimToggle(key likeKey, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, at := range s.toggled {
		if now.Sub(at) >= s.cooldown {
			delete(s.toggled, k)
		}
	}
	if _, recent := s.toggled[key]; recent {
		return false
	}
	s.toggled[key] = now
	return true
}

func (s *Service) rateLimited() error {
	secs := int((s.cooldown + time.Second - 1) / time.Second)
	return &errors.RateLimitedError{RetryAfter: secs, Message: "Please wait before liking/unliking again"}
}

// LikeStatus reports whether userID likes the post. Anonymous users never do.
func (s *Service) LikeStatus(ctx context.Context, id, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if err := errors.ValidateID(id); err != nil {
		return false, err
	}
	l, err := s.store.GetLike(ctx, id, userID)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "failed to load like")
	}
	return l != nil, nil
}

// RecordView counts one view of the post and returns the new total.
func (s *Service) RecordView(ctx context.Context, id string) (int64, error) {
	if err := errors.ValidateID(id); err != nil {
		return 0, err
	}
	n, err := s.store.IncrementViews(ctx, id)
	if err != nil {
		return 0, notFoundOr(err, "failed to record view")
	}
	return n, nil
}

// =============================================================================
// Helpers
// =============================================================================

func requireAdmin(actor Actor) error {
	if actor.UserID == "" {
		return errors.New(errors.ErrCodeUnauthorized, "sign in required")
	}
	if !actor.Admin {
		return errors.New(errors.ErrCodeForbidden, "admin access required")
	}
	return nil
}

// generation returns the token that versions cached list pages.
func (s *Service) generation(ctx context.Context) string {
	data, ok, err := s.cache.Get(ctx, s.keyer.BlogGenerationKey())
	if err != nil || !ok {
		return "0"
	}
	return string(data)
}

func (s *Service) invalidate(ctx context.Context) {
	gen := []byte(uuid.NewString())
	if err := s.cache.Set(ctx, s.keyer.BlogGenerationKey(), gen, 0); err != nil {
		s.logger.Warn("blog cache invalidation failed", "err", err)
	}
}

func notFoundOr(err error, msg string) error {
	if errors.IsNotFound(err) {
		return errors.New(errors.ErrCodeBlogNotFound, "blog not found")
	}
	return errors.Wrap(errors.ErrCodeInternal, err, "%s", msg)
}
