package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/folioworks/folio/pkg/blog"
	"github.com/folioworks/folio/pkg/errors"
)

// BlogStore implements blog.Store.
type BlogStore struct {
	db *sql.DB
}

const blogSelect = `
	SELECT b.id, b.title, b.slug, b.content, b.excerpt, b.published, b.featured,
	       b.category, b.tags, b.view_count, b.author_id, b.created_at, b.updated_at,
	       (SELECT COUNT(*) FROM blog_likes l WHERE l.blog_id = b.id),
	       u.id, u.name, u.email, u.image
	FROM blogs b
	LEFT JOIN users u ON u.id = b.author_id`

var sortColumns = map[string]string{
	blog.SortCreatedAt: "b.created_at",
	blog.SortUpdatedAt: "b.updated_at",
	blog.SortTitle:     "b.title",
	blog.SortViewCount: "b.view_count",
}

// Create implements blog.Store.
func (s *BlogStore) Create(ctx context.Context, b *blog.Blog) error {
	tags, err := json.Marshal(nonNil(b.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO blogs (id, title, slug, content, excerpt, published, featured,
		                   category, tags, view_count, author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Slug, b.Content, b.Excerpt, boolInt(b.Published), boolInt(b.Featured),
		b.Category, string(tags), b.ViewCount, b.AuthorID, formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert blog: %w", err)
	}
	return nil
}

// Update implements blog.Store. View counts are left untouched.
func (s *BlogStore) Update(ctx context.Context, b *blog.Blog) error {
	tags, err := json.Marshal(nonNil(b.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE blogs SET title = ?, slug = ?, content = ?, excerpt = ?, published = ?,
		                 featured = ?, category = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		b.Title, b.Slug, b.Content, b.Excerpt, boolInt(b.Published), boolInt(b.Featured),
		b.Category, string(tags), formatTime(b.UpdatedAt), b.ID)
	if err != nil {
		return fmt.Errorf("update blog: %w", err)
	}
	return expectRow(res)
}

// Delete implements blog.Store.
func (s *BlogStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM blogs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}
	return expectRow(res)
}

// Get implements blog.Store.
func (s *BlogStore) Get(ctx context.Context, id string) (*blog.Blog, error) {
	return s.one(ctx, "b.id = ?", id)
}

// GetBySlug implements blog.Store.
func (s *BlogStore) GetBySlug(ctx context.Context, slug string) (*blog.Blog, error) {
	return s.one(ctx, "b.slug = ?", slug)
}

func (s *BlogStore) one(ctx context.Context, where string, arg any) (*blog.Blog, error) {
	list, err := s.query(ctx, blogSelect+" WHERE "+where, arg)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.New(errors.ErrCodeBlogNotFound, "blog not found")
	}
	return &list[0], nil
}

// SlugTaken implements blog.Store.
func (s *BlogStore) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM blogs WHERE slug = ? AND id <> ?", slug, exceptID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return n > 0, nil
}

// List implements blog.Store.
func (s *BlogStore) List(ctx context.Context, q blog.Query) ([]blog.Blog, int, error) {
	var (
		conds []string
		args  []any
	)
	if q.PublishedOnly {
		conds = append(conds, "b.published = 1")
	}
	if q.Category != "" {
		conds = append(conds, "b.category = ?")
		args = append(args, q.Category)
	}
	if q.Search != "" {
		pat := likePattern(q.Search)
		conds = append(conds, `(b.title LIKE ? ESCAPE '\' OR b.content LIKE ? ESCAPE '\' OR b.excerpt LIKE ? ESCAPE '\')`)
		args = append(args, pat, pat, pat)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM blogs b"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count blogs: %w", err)
	}

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = sortColumns[blog.SortCreatedAt]
	}
	dir := "DESC"
	if q.SortOrder == "asc" {
		dir = "ASC"
	}
	query := fmt.Sprintf("%s%s ORDER BY %s %s, b.id LIMIT ? OFFSET ?", blogSelect, where, col, dir)
	list, err := s.query(ctx, query, append(args, q.Limit, q.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// IncrementViews implements blog.Store.
func (s *BlogStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"UPDATE blogs SET view_count = view_count + 1 WHERE id = ? RETURNING view_count", id).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, errors.New(errors.ErrCodeBlogNotFound, "blog not found")
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return n, nil
}

// GetLike implements blog.Store.
func (s *BlogStore) GetLike(ctx context.Context, blogID, userID string) (*blog.Like, error) {
	var (
		l         blog.Like
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, blog_id, user_id, created_at FROM blog_likes WHERE blog_id = ? AND user_id = ?",
		blogID, userID).Scan(&l.ID, &l.BlogID, &l.UserID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load like: %w", err)
	}
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// AddLike implements blog.Store.
func (s *BlogStore) AddLike(ctx context.Context, l *blog.Like) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO blog_likes (id, blog_id, user_id, created_at) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING",
		l.ID, l.BlogID, l.UserID, formatTime(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// RemoveLike implements blog.Store.
func (s *BlogStore) RemoveLike(ctx context.Context, blogID, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM blog_likes WHERE blog_id = ? AND user_id = ?", blogID, userID); err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return nil
}

// DeleteLikes implements blog.Store.
func (s *BlogStore) DeleteLikes(ctx context.Context, blogID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM blog_likes WHERE blog_id = ?", blogID); err != nil {
		return fmt.Errorf("delete likes: %w", err)
	}
	return nil
}

// LikeCount implements blog.Store.
func (s *BlogStore) LikeCount(ctx context.Context, blogID string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM blog_likes WHERE blog_id = ?", blogID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return n, nil
}

func (s *BlogStore) query(ctx context.Context, query string, args ...any) ([]blog.Blog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query blogs: %w", err)
	}
	defer rows.Close()

	var out []blog.Blog
	for rows.Next() {
		var (
			b                    blog.Blog
			published, featured  int
			category             sql.NullString
			tags                 string
			createdAt, updatedAt string
			authorID, authorName sql.NullString
			authorEmail, image   sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Title, &b.Slug, &b.Content, &b.Excerpt, &published, &featured,
			&category, &tags, &b.ViewCount, &b.AuthorID, &createdAt, &updatedAt,
			&b.LikeCount, &authorID, &authorName, &authorEmail, &image); err != nil {
			return nil, fmt.Errorf("scan blog: %w", err)
		}
		b.Published = published != 0
		b.Featured = featured != 0
		if category.Valid {
			b.Category = &category.String
		}
		if err := json.Unmarshal([]byte(tags), &b.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of blog %s: %w", b.ID, err)
		}
		b.Tags = nonNil(b.Tags)
		if b.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		if authorID.Valid {
			b.Author = &blog.Author{ID: authorID.String, Name: authorName.String, Email: authorEmail.String}
			if image.String != "" {
				b.Author.Image = &image.String
			}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return errors.New(errors.ErrCodeBlogNotFound, "blog not found")
	}
	return nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

var _ blog.Store = (*BlogStore)(nil)
