package notes

import (
	"context"
	"encoding/json"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/folioworks/folio/pkg/cache"
	"github.com/folioworks/folio/pkg/errors"
	"github.com/folioworks/folio/pkg/observability"
	"github.com/folioworks/folio/pkg/placement"
	"github.com/folioworks/folio/pkg/users"
)

// DefaultCacheTTL bounds how stale the cached public listing may get.
const DefaultCacheTTL = 30 * time.Second

// Options configures a Service. Zero values select defaults.
type Options struct {
	Advisor  *placement.Advisor
	Users    UserLookup
	Cache    cache.Cache
	Keyer    cache.Keyer
	CacheTTL time.Duration
	Logger   *log.Logger
	Hooks    observability.Hooks
}

// Service implements the note wall operations.
type Service struct {
	store    Store
	advisor  *placement.Advisor
	users    UserLookup
	cache    cache.Cache
	keyer    cache.Keyer
	cacheTTL time.Duration
	logger   *log.Logger
	hooks    observability.Hooks
	now      func() time.Time

	// placeMu serializes placement+insert so concurrent drops in this
	// process never read the same snapshot.
	placeMu sync.Mutex
}

// NewService creates a Service over store.
func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:    store,
		advisor:  opts.Advisor,
		users:    opts.Users,
		cache:    opts.Cache,
		keyer:    opts.Keyer,
		cacheTTL: opts.CacheTTL,
		logger:   opts.Logger,
		hooks:    opts.Hooks.WithDefaults(),
		now:      time.Now,
	}
	if s.advisor == nil {
		s.advisor = placement.New(placement.DefaultConfig())
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
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	return s
}

// CreateInput is a request to pin a note at (X, Y).
type CreateInput struct {
	Content  string
	IsPublic bool
	X, Y     float64
	UserID   string
	Author   Author
}

// Created is the stored note plus how its position was chosen.
type Created struct {
	Note      *Note
	Placement placement.Result
}

// Create validates in, moves the note clear of existing notes and stores it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Created, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	s.placeMu.Lock()
	defer s.placeMu.Unlock()

	existing, err := s.store.Positions(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to load note positions")
	}
	res := s.advisor.Place(placement.Point{X: in.X, Y: in.Y}, existing)
	s.hooks.Placement.OnSuggest(ctx, res.Adjusted, res.Exhausted, res.Attempts)
	if res.Exhausted {
		s.logger.Warn("no free spot within search radius", "x", in.X, "y", in.Y, "notes", len(existing))
	}

	now := s.now().UTC()
	author := in.Author
	author.Name = strings.TrimSpace(author.Name)
	author.Email = strings.TrimSpace(author.Email)
	if author.Image != nil && *author.Image == "" {
		author.Image = nil
	}
	n := &Note{
		ID:        uuid.NewString(),
		Content:   in.Content,
		IsPublic:  in.IsPublic,
		X:         res.X,
		Y:         res.Y,
		UserID:    in.UserID,
		Author:    author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to create note")
	}
	s.invalidate(ctx)

	s.logger.Debug("note created", "id", n.ID, "x", n.X, "y", n.Y, "adjusted", res.Adjusted, "attempts", res.Attempts)
	return &Created{Note: n, Placement: res}, nil
}

func validateCreate(in CreateInput) error {
	if err := errors.ValidateNoteContent(in.Content); err != nil {
		return err
	}
	if err := errors.ValidateCoordinate("x", in.X); err != nil {
		return err
	}
	if err := errors.ValidateCoordinate("y", in.Y); err != nil {
		return err
	}
	if strings.TrimSpace(in.UserID) == "" {
		return errors.New(errors.ErrCodeInvalidNote, "userId is required")
	}
	if strings.TrimSpace(in.Author.Name) == "" {
		return errors.New(errors.ErrCodeInvalidNote, "user_name is required")
	}
	if err := errors.ValidateEmail(strings.TrimSpace(in.Author.Email)); err != nil {
		return errors.New(errors.ErrCodeInvalidNote, "user_email is invalid")
	}
	if in.Author.Image != nil && *in.Author.Image != "" {
		if err := errors.ValidateURL(*in.Author.Image); err != nil {
			return errors.New(errors.ErrCodeInvalidNote, "user_image must be an http(s) URL")
		}
	}
	return nil
}

// Suggest returns where a note dropped at (x, y) would be placed.
func (s *Service) Suggest(ctx context.Context, x, y float64) (placement.Result, error) {
	if err := errors.ValidateCoordinate("x", x); err != nil {
		return placement.Result{}, err
	}
	if err := errors.ValidateCoordinate("y", y); err != nil {
		return placement.Result{}, err
	}
	existing, err := s.store.Positions(ctx)
	if err != nil {
		return placement.Result{}, errors.Wrap(errors.ErrCodeInternal, err, "failed to load note positions")
	}
	res := s.advisor.Place(placement.Point{X: x, Y: y}, existing)
	s.hooks.Placement.OnSuggest(ctx, res.Adjusted, res.Exhausted, res.Attempts)
	return res, nil
}

// Delete removes a note. Only its owner or the admin may delete it.
func (s *Service) Delete(ctx context.Context, id string, viewer Viewer) error {
	if err := errors.ValidateID(id); err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "note id is required")
	}
	if viewer.Anonymous() {
		return errors.New(errors.ErrCodeUnauthorized, "sign in to delete notes")
	}

	n, err := s.store.Get(ctx, id)
	if err != nil {
		return s.notFoundOr(err, "failed to load note")
	}
	if !viewer.Admin && n.UserID != viewer.UserID {
		return errors.New(errors.ErrCodeForbidden, "only the author or an admin can delete this note")
	}

	owner, err := s.store.Delete(ctx, id)
	if err != nil {
		return s.notFoundOr(err, "failed to delete note")
	}
	s.invalidate(ctx)

	s.logger.Debug("note deleted", "id", id, "owner", owner, "by", viewer.UserID)
	return nil
}

// ListForViewer returns the notes viewer may see, newest first.
func (s *Service) ListForViewer(ctx context.Context, viewer Viewer) ([]Note, error) {
	switch {
	case viewer.Admin:
		return s.ListAll(ctx)
	case viewer.Email != "":
		return s.ListForEmail(ctx, viewer.Email)
	default:
		return s.ListPublic(ctx)
	}
}

// ListAll returns every note, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Note, error) {
	notes, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to list notes")
	}
	return s.finish(ctx, notes), nil
}

// ListForEmail returns public notes plus private notes authored by email.
// An empty email yields public notes only.
func (s *Service) ListForEmail(ctx context.Context, email string) ([]Note, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return s.ListPublic(ctx)
	}
	notes, err := s.store.ListVisibleTo(ctx, email)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to list notes")
	}
	return s.finish(ctx, notes), nil
}

// ListPublic returns public notes, newest first. The result is cached.
func (s *Service) ListPublic(ctx context.Context) ([]Note, error) {
	key := s.keyer.NotesKey("public")
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("note cache read failed", "err", err)
	} else if ok {
		var notes []Note
		if err := json.Unmarshal(data, &notes); err == nil {
			return notes, nil
		}
	}

	notes, err := s.store.ListPublic(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to list notes")
	}
	notes = s.finish(ctx, notes)

	if data, err := json.Marshal(notes); err == nil {
		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			s.logger.Warn("note cache write failed", "err", err)
		}
	}
	return notes, nil
}

// finish resolves author fallbacks and orders notes newest first.
func (s *Service) finish(ctx context.Context, notes []Note) []Note {
	if notes == nil {
		notes = []Note{}
	}
	if s.users != nil {
		seen := make(map[string]*users.User)
		for i := range notes {
			n := &notes[i]
			if n.UserID == "" || (n.Name != "" && n.Email != "" && n.Image != nil) {
				continue
			}
			u, ok := seen[n.UserID]
			if !ok {
				var err error
				if u, err = s.users.GetByID(ctx, n.UserID); err != nil {
					u = nil
				}
				seen[n.UserID] = u
			}
			n.Author = n.Author.WithFallback(u)
		}
	}
	slices.SortStableFunc(notes, func(a, b Note) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return notes
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, s.keyer.NotesKey("public")); err != nil {
		s.logger.Warn("note cache invalidation failed", "err", err)
	}
}

func (s *Service) notFoundOr(err error, msg string) error {
	if errors.IsNotFound(err) {
		return errors.New(errors.ErrCodeNoteNotFound, "note not found")
	}
	return errors.Wrap(errors.ErrCodeInternal, err, "%s", msg)
}
