// Package users holds site accounts created through GitHub sign-in.
//
// An account is keyed by its GitHub ID; the e-mail address is the identity
// the rest of the site uses (note ownership filters, the admin check).
package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/folioworks/folio/pkg/errors"
	"github.com/folioworks/folio/pkg/integrations/github"
)

// User is a signed-in visitor.
type User struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Image     string    `json:"image,omitempty" bson:"image,omitempty"`
	GitHubID  int64     `json:"githubId,omitempty" bson:"github_id,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// ImagePtr returns the avatar URL, or nil when the user has none.
func (u *User) ImagePtr() *string {
	if u == nil || u.Image == "" {
		return nil
	}
	img := u.Image
	return &img
}

// Store persists users.
type Store interface {
	// UpsertGitHubUser creates the account for u, or refreshes its profile
	// fields if one with the same GitHub ID exists. The stored ID and
	// CreatedAt of an existing account are kept.
	UpsertGitHubUser(ctx context.Context, u *User) (*User, error)

	// GetByEmail returns USER_NOT_FOUND when no account has the address.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID returns USER_NOT_FOUND when no account has the ID.
	GetByID(ctx context.Context, id string) (*User, error)
}

// FromGitHub builds a new account from a GitHub profile.
// The e-mail address is lowercased so lookups are case-insensitive.
func FromGitHub(gu *github.User, now time.Time) *User {
	return &User{
		ID:        uuid.NewString(),
		Name:      gu.DisplayName(),
		Email:     NormalizeEmail(gu.Email),
		Image:     gu.AvatarURL,
		GitHubID:  gu.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Service is the user-facing API over a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a Service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SignIn records a successful GitHub sign-in and returns the account.
func (s *Service) SignIn(ctx context.Context, gu *github.User) (*User, error) {
	if gu == nil || gu.ID == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "github profile is missing an id")
	}
	if err := errors.ValidateEmail(gu.Email); err != nil {
		return nil, err
	}
	u, err := s.store.UpsertGitHubUser(ctx, FromGitHub(gu, s.now()))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to save user")
	}
	return u, nil
}

// Lookup finds a user by e-mail address.
func (s *Service) Lookup(ctx context.Context, email string) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "email is required")
	}
	u, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.New(errors.ErrCodeUserNotFound, "user not found")
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to look up user")
	}
	return u, nil
}

// Get finds a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if err := errors.ValidateID(id); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}
