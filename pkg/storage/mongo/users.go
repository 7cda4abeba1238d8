package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/folioworks/folio/pkg/errors"
	"github.com/folioworks/folio/pkg/users"
)

// UserStore implements users.Store.
type UserStore struct {
	coll *mongo.Collection
}

// UpsertGitHubUser implements users.Store.
func (s *UserStore) UpsertGitHubUser(ctx context.Context, u *users.User) (*users.User, error) {
	update := bson.M{
		"$set": bson.M{
			"name":       u.Name,
			"email":      u.Email,
			"image":      u.Image,
			"updated_at": u.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":        u.ID,
			"created_at": u.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out users.User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"github_id": u.GitHubID}, update, opts).Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &out, nil
}

// GetByEmail implements users.Store. Addresses are stored lowercased.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return s.find(ctx, bson.M{"email": users.NormalizeEmail(email)})
}

// GetByID implements users.Store.
func (s *UserStore) GetByID(ctx context.Context, id string) (*users.User, error) {
	return s.find(ctx, bson.M{"_id": id})
}

func (s *UserStore) find(ctx context.Context, filter bson.M) (*users.User, error) {
	var u users.User
	err := s.coll.FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

var _ users.Store = (*UserStore)(nil)
