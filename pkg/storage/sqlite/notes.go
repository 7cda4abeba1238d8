package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/folioworks/folio/pkg/errors"
	"github.com/folioworks/folio/pkg/notes"
	"github.com/folioworks/folio/pkg/placement"
)

// NoteStore implements notes.Store.
type NoteStore struct {
	db *sql.DB
}

const noteColumns = "id, content, is_public, x, y, user_id, user_name, user_email, user_image, created_at, updated_at"

// Create implements notes.Store.
func (s *NoteStore) Create(ctx context.Context, n *notes.Note) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notes ("+noteColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		n.ID, n.Content, boolInt(n.IsPublic), n.X, n.Y, n.UserID,
		n.Name, n.Email, n.Image, formatTime(n.CreatedAt), formatTime(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// Get implements notes.Store.
func (s *NoteStore) Get(ctx context.Context, id string) (*notes.Note, error) {
	list, err := s.query(ctx, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.New(errors.ErrCodeNoteNotFound, "note not found")
	}
	return &list[0], nil
}

// Delete implements notes.Store.
func (s *NoteStore) Delete(ctx context.Context, id string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, "DELETE FROM notes WHERE id = ? RETURNING user_id", id).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", errors.New(errors.ErrCodeNoteNotFound, "note not found")
	}
	if err != nil {
		return "", fmt.Errorf("delete note: %w", err)
	}
	return owner, nil
}

// ListPublic implements notes.Store.
func (s *NoteStore) ListPublic(ctx context.Context) ([]notes.Note, error) {
	return s.query(ctx, "WHERE is_public = 1 ORDER BY created_at DESC")
}

// ListVisibleTo implements notes.Store.
func (s *NoteStore) ListVisibleTo(ctx context.Context, email string) ([]notes.Note, error) {
	return s.query(ctx,
		"WHERE is_public = 1 OR user_email = ? COLLATE NOCASE ORDER BY created_at DESC", email)
}

// ListAll implements notes.Store.
func (s *NoteStore) ListAll(ctx context.Context) ([]notes.Note, error) {
	return s.query(ctx, "ORDER BY created_at DESC")
}

// Positions implements notes.Store.
func (s *NoteStore) Positions(ctx context.Context) ([]placement.Point, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT x, y FROM notes")
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var points []placement.Point
	for rows.Next() {
		var p placement.Point
		if err := rows.Scan(&p.X, &p.Y); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *NoteStore) query(ctx context.Context, tail string, args ...any) ([]notes.Note, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+noteColumns+" FROM notes "+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var out []notes.Note
	for rows.Next() {
		var (
			n                    notes.Note
			isPublic             int
			image                sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&n.ID, &n.Content, &isPublic, &n.X, &n.Y, &n.UserID,
			&n.Name, &n.Email, &image, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.IsPublic = isPublic != 0
		if image.Valid {
			n.Image = &image.String
		}
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if n.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

var _ notes.Store = (*NoteStore)(nil)
