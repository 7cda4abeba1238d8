// Package session provides cookie sessions for signed-in visitors.
//
// This package defines interfaces for session storage and OAuth state management,
// with implementations for different backends:
//   - memory: In-memory storage for development and single-node servers
//   - redis: Redis-backed storage for multi-instance deployments
//   - file: JSON files, which survive restarts without extra infrastructure
//
// # Architecture
//
// Sessions hold the signed-in [users.User] with automatic expiration. The
// Store interface supports:
//   - Get/Set/Delete operations
//   - Automatic expiration checking
//   - Cleanup of expired sessions
//
// OAuth state tokens provide CSRF protection during the sign-in redirect. The
// StateStore interface supports:
//   - Token generation with TTL
//   - Single-use validation (tokens are deleted after validation)
//
// # Usage
//
//	store := session.NewMemoryStore(time.Minute)
//	defer store.Close()
//
//	sess, err := session.New(user, session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, cookie.Value)
//	if sess == nil {
//	    // Session not found or expired
//	}
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/folioworks/folio/pkg/users"
)

// Sentinel errors for session operations.
var (
	// ErrInvalidState is returned when an OAuth state token is invalid or already used.
	ErrInvalidState = errors.New("invalid or expired state token")
)

// CookieName is the cookie that carries the session ID.
const CookieName = "folio_session"

// Session stores user session data.
type Session struct {
	ID        string      `json:"id"`
	User      *users.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
	CreatedAt time.Time   `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// UserID returns the signed-in user's ID, or "" for a nil session.
func (s *Session) UserID() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.ID
}

// Email returns the signed-in user's address, or "" for a nil session.
func (s *Session) Email() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.Email
}

// IsAdmin reports whether the session belongs to the site administrator.
// An empty adminEmail never matches.
func (s *Session) IsAdmin(adminEmail string) bool {
	email := s.Email()
	return email != "" && adminEmail != "" && strings.EqualFold(email, adminEmail)
}

// TTL returns the remaining lifetime, never negative.
func (s *Session) TTL() time.Duration {
	return max(time.Until(s.ExpiresAt), 0)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions (may be no-op for Redis).
	Cleanup(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// StateStore manages OAuth state tokens for CSRF protection.
// State tokens are short-lived (typically 10 minutes) and single-use.
// For multi-instance deployments, use Redis to share state across instances.
type StateStore interface {
	// Generate creates a new state token and stores it with the given TTL.
	// Returns the generated state token.
	Generate(ctx context.Context, ttl time.Duration) (string, error)

	// Validate checks if a state token is valid and removes it (single-use).
	// Returns true if the token was valid and not expired.
	Validate(ctx context.Context, state string) (bool, error)

	// Cleanup removes expired state tokens (may be no-op for Redis).
	Cleanup(ctx context.Context) error
}

// Default durations.
const (
	// DefaultTTL is the default session duration.
	DefaultTTL = 30 * 24 * time.Hour

	// DefaultStateTTL is the default OAuth state token duration.
	DefaultStateTTL = 10 * time.Minute
)

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateState creates a cryptographically secure random state token.
func GenerateState() (string, error) {
	return GenerateID()
}

// validID reports whether id could have come from GenerateID. Anything else
// is rejected before it reaches a file path or Redis key.
func validID(id string) bool {
	if len(id) == 0 || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// New creates a new session for the user.
func New(user *users.User, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:        id,
		User:      user,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// MockLocal creates a session for local development without authentication.
// It is used when the server runs with --no-auth. The mock user signs in as
// email, so passing the admin address grants admin access.
func MockLocal(email string) *Session {
	now := time.Now()
	return &Session{
		ID: "local-session",
		User: &users.User{
			ID:        "local",
			Name:      "Local User",
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		},
		ExpiresAt: now.Add(365 * 24 * time.Hour),
		CreatedAt: now,
	}
}
