// Package notes implements the note wall: short messages pinned at canvas
// coordinates by signed-in visitors.
//
// New notes go through [placement]: the desired drop point is re-checked
// against every stored note on the server before the note is saved, so two
// visitors who drop at the same spot from stale snapshots still end up apart
// (within one server process).
//
// Visibility rules:
//   - the admin sees every note
//   - a signed-in visitor sees public notes and their own private ones
//   - anonymous visitors see public notes only
package notes

import (
	"context"
	"time"

	"github.com/folioworks/folio/pkg/placement"
	"github.com/folioworks/folio/pkg/users"
)

// Author is the display identity stored with a note. Name and Email are
// required when a note is created; Image is optional.
type Author struct {
	Name  string  `json:"user_name" bson:"user_name"`
	Email string  `json:"user_email" bson:"user_email"`
	Image *string `json:"user_image" bson:"user_image,omitempty"`
}

// WithFallback fills empty fields from the linked user's profile.
// Fields stored on the note always win.
func (a Author) WithFallback(u *users.User) Author {
	if u == nil {
		return a
	}
	if a.Name == "" {
		a.Name = u.Name
	}
	if a.Email == "" {
		a.Email = u.Email
	}
	if a.Image == nil || *a.Image == "" {
		a.Image = u.ImagePtr()
	}
	return a
}

// Note is one message on the wall. X and Y are the note's centre.
type Note struct {
	ID        string  `json:"id" bson:"_id"`
	Content   string  `json:"content" bson:"content"`
	IsPublic  bool    `json:"isPublic" bson:"is_public"`
	X         float64 `json:"x" bson:"x"`
	Y         float64 `json:"y" bson:"y"`
	UserID    string  `json:"userId" bson:"user_id"`
	Author    `bson:",inline"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// Position returns the note's centre.
func (n *Note) Position() placement.Point {
	return placement.Point{X: n.X, Y: n.Y}
}

// Store persists notes. List methods return newest first.
type Store interface {
	Create(ctx context.Context, n *Note) error

	// Get returns NOTE_NOT_FOUND when no note has the ID.
	Get(ctx context.Context, id string) (*Note, error)

	// Delete removes the note and returns the ID of the user who owned it.
	// It returns NOTE_NOT_FOUND when no note has the ID.
	Delete(ctx context.Context, id string) (string, error)

	ListPublic(ctx context.Context) ([]Note, error)

	// ListVisibleTo returns public notes plus private notes authored by email.
	ListVisibleTo(ctx context.Context, email string) ([]Note, error)

	ListAll(ctx context.Context) ([]Note, error)

	// Positions returns the centre of every stored note, public or private.
	Positions(ctx context.Context) ([]placement.Point, error)
}

// UserLookup resolves the user linked to a note.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

// Viewer is who is looking at the wall.
type Viewer struct {
	UserID string
	Email  string
	Admin  bool
}

// Anonymous reports whether the viewer is signed out.
func (v Viewer) Anonymous() bool {
	return v.UserID == "" && v.Email == ""
}
