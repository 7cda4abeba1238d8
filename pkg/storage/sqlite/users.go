package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/folioworks/folio/pkg/errors"
	"github.com/folioworks/folio/pkg/users"
)

// UserStore implements users.Store.
type UserStore struct {
	db *sql.DB
}

const userColumns = "id, name, email, image, github_id, created_at, updated_at"

// UpsertGitHubUser implements users.Store.
func (s *UserStore) UpsertGitHubUser(ctx context.Context, u *users.User) (*users.User, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (github_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			image = excluded.image,
			updated_at = excluded.updated_at`,
		u.ID, u.Name, u.Email, u.Image, u.GitHubID, formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return s.get(ctx, "github_id = ?", u.GitHubID)
}

// GetByEmail implements users.Store.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return s.get(ctx, "email = ? COLLATE NOCASE", email)
}

// GetByID implements users.Store.
func (s *UserStore) GetByID(ctx context.Context, id string) (*users.User, error) {
	return s.get(ctx, "id = ?", id)
}

func (s *UserStore) get(ctx context.Context, where string, arg any) (*users.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg)

	var (
		u                    users.User
		githubID             sql.NullInt64
		createdAt, updatedAt string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Image, &githubID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	u.GitHubID = githubID.Int64
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

var _ users.Store = (*UserStore)(nil)
