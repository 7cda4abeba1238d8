package mongo

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/folioworks/folio/pkg/blog"
	"github.com/folioworks/folio/pkg/errors"
	"github.com/folioworks/folio/pkg/users"
)

// BlogStore implements blog.Store.
type BlogStore struct {
	blogs *mongo.Collection
	likes *mongo.Collection
	users *mongo.Collection
}

var sortFields = map[string]string{
	blog.SortCreatedAt: "created_at",
	blog.SortUpdatedAt: "updated_at",
	blog.SortTitle:     "title",
	blog.SortViewCount: "view_count",
}

// Create implements blog.Store.
func (s *BlogStore) Create(ctx context.Context, b *blog.Blog) error {
	doc := *b
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if _, err := s.blogs.InsertOne(ctx, &doc); err != nil {
		return fmt.Errorf("insert blog: %w", err)
	}
	return nil
}

// Update implements blog.Store. View counts are left untouched.
func (s *BlogStore) Update(ctx context.Context, b *blog.Blog) error {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	set := bson.M{
		"title":      b.Title,
		"slug":       b.Slug,
		"content":    b.Content,
		"excerpt":    b.Excerpt,
		"published":  b.Published,
		"featured":   b.Featured,
		"tags":       tags,
		"updated_at": b.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if b.Category != nil {
		set["category"] = *b.Category
	} else {
		update["$unset"] = bson.M{"category": ""}
	}
	res, err := s.blogs.UpdateByID(ctx, b.ID, update)
	if err != nil {
		return fmt.Errorf("update blog: %w", err)
	}
	if res.MatchedCount == 0 {
		return errors.New(errors.ErrCodeBlogNotFound, "blog not found")
	}
	return nil
}

// Delete implements blog.Store.
func (s *BlogStore) Delete(ctx context.Context, id string) error {
	res, err := s.blogs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodeBlogNotFound, "blog not found")
	}
	return nil
}

// Get implements blog.Store.
func (s *BlogStore) Get(ctx context.Context, id string) (*blog.Blog, error) {
	return s.one(ctx, bson.M{"_id": id})
}

// GetBySlug implements blog.Store.
func (s *BlogStore) GetBySlug(ctx context.Context, slug string) (*blog.Blog, error) {
	return s.one(ctx, bson.M{"slug": slug})
}

func (s *BlogStore) one(ctx context.Context, filter bson.M) (*blog.Blog, error) {
	var b blog.Blog
	err := s.blogs.FindOne(ctx, filter).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeBlogNotFound, "blog not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load blog: %w", err)
	}
	list := []blog.Blog{b}
	if err := s.decorate(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// SlugTaken implements blog.Store.
func (s *BlogStore) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	n, err := s.blogs.CountDocuments(ctx, bson.M{"slug": slug, "_id": bson.M{"$ne": exceptID}})
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return n > 0, nil
}

// List implements blog.Store.
func (s *BlogStore) List(ctx context.Context, q blog.Query) ([]blog.Blog, int, error) {
	filter := bson.M{}
	if q.PublishedOnly {
		filter["published"] = true
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"content": re},
			bson.M{"excerpt": re},
		}
	}

	total, err := s.blogs.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count blogs: %w", err)
	}

	field, ok := sortFields[q.SortBy]
	if !ok {
		field = sortFields[blog.SortCreatedAt]
	}
	dir := -1
	if q.SortOrder == "asc" {
		dir = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: 1}}).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit))

	cur, err := s.blogs.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("query blogs: %w", err)
	}
	var list []blog.Blog
	if err := cur.All(ctx, &list); err != nil {
		return nil, 0, fmt.Errorf("decode blogs: %w", err)
	}
	if err := s.decorate(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, int(total), nil
}

// decorate fills like counts and authors.
func (s *BlogStore) decorate(ctx context.Context, list []blog.Blog) error {
	authors := make(map[string]*blog.Author)
	for i := range list {
		b := &list[i]
		if b.Tags == nil {
			b.Tags = []string{}
		}
		n, err := s.LikeCount(ctx, b.ID)
		if err != nil {
			return err
		}
		b.LikeCount = n

		a, seen := authors[b.AuthorID]
		if !seen {
			var u users.User
			err := s.users.FindOne(ctx, bson.M{"_id": b.AuthorID}).Decode(&u)
			switch {
			case err == nil:
				a = &blog.Author{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.ImagePtr()}
			case err != mongo.ErrNoDocuments:
				return fmt.Errorf("load author: %w", err)
			}
			authors[b.AuthorID] = a
		}
		b.Author = a
	}
	return nil
}

// IncrementViews implements blog.Store.
func (s *BlogStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	var doc struct {
		ViewCount int64 `bson:"view_count"`
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"view_count": 1})
	err := s.blogs.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"view_count": 1}}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, errors.New(errors.ErrCodeBlogNotFound, "blog not found")
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return doc.ViewCount, nil
}

// GetLike implements blog.Store.
func (s *BlogStore) GetLike(ctx context.Context, blogID, userID string) (*blog.Like, error) {
	var l blog.Like
	err := s.likes.FindOne(ctx, bson.M{"blog_id": blogID, "user_id": userID}).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load like: %w", err)
	}
	return &l, nil
}

// AddLike implements blog.Store. A duplicate like is ignored.
func (s *BlogStore) AddLike(ctx context.Context, l *blog.Like) error {
	if _, err := s.likes.InsertOne(ctx, l); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// RemoveLike implements blog.Store.
func (s *BlogStore) RemoveLike(ctx context.Context, blogID, userID string) error {
	if _, err := s.likes.DeleteOne(ctx, bson.M{"blog_id": blogID, "user_id": userID}); err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return nil
}

// DeleteLikes implements blog.Store.
func (s *BlogStore) DeleteLikes(ctx context.Context, blogID string) error {
	if _, err := s.likes.DeleteMany(ctx, bson.M{"blog_id": blogID}); err != nil {
		return fmt.Errorf("delete likes: %w", err)
	}
	return nil
}

// LikeCount implements blog.Store.
func (s *BlogStore) LikeCount(ctx context.Context, blogID string) (int64, error) {
	n, err := s.likes.CountDocuments(ctx, bson.M{"blog_id": blogID})
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return n, nil
}

var _ blog.Store = (*BlogStore)(nil)
