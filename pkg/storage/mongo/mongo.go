// Package mongo stores users, notes and blog posts in MongoDB.
//
// Collections:
//   - users: unique indexes on email and github_id
//   - notes: indexed by created_at and user_email
//   - blogs: unique index on slug
//   - blog_likes: unique index on (blog_id, user_id)
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultDatabase is used when the configuration names none.
const DefaultDatabase = "folio"

const (
	usersCollection = "users"
	notesCollection = "notes"
	blogsCollection = "blogs"
	likesCollection = "blog_likes"
)

// DB is a connected MongoDB database.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri, verifies the connection and ensures indexes.
func Open(ctx context.Context, uri, database string) (*DB, error) {
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	d := &DB{client: client, db: client.Database(database)}
	if err := d.Migrate(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return d, nil
}

// Migrate creates the indexes the stores rely on. It is idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "github_id", Value: 1}}, Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"github_id": bson.M{"$gt": 0}})},
		},
		notesCollection: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_email", Value: 1}}},
		},
		blogsCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "published", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		likesCollection: {
			{Keys: bson.D{{Key: "blog_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: unique},
		},
	}
	for coll, models := range indexes {
		if _, err := d.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// Drop deletes the database. Intended for tests.
func (d *DB) Drop(ctx context.Context) error {
	return d.db.Drop(ctx)
}

// Users returns the user store.
func (d *DB) Users() *UserStore { return &UserStore{coll: d.db.Collection(usersCollection)} }

// Notes returns the note store.
func (d *DB) Notes() *NoteStore { return &NoteStore{coll: d.db.Collection(notesCollection)} }

// Blogs returns the blog store.
func (d *DB) Blogs() *BlogStore {
	return &BlogStore{
		blogs: d.db.Collection(blogsCollection),
		likes: d.db.Collection(likesCollection),
		users: d.db.Collection(usersCollection),
	}
}
