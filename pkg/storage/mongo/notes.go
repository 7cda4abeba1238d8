package mongo

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/folioworks/folio/pkg/errors"
	"github.com/folioworks/folio/pkg/notes"
	"github.com/folioworks/folio/pkg/placement"
)

// NoteStore implements notes.Store.
type NoteStore struct {
	coll *mongo.Collection
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

// Create implements notes.Store.
func (s *NoteStore) Create(ctx context.Context, n *notes.Note) error {
	if _, err := s.coll.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// Get implements notes.Store.
func (s *NoteStore) Get(ctx context.Context, id string) (*notes.Note, error) {
	var n notes.Note
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeNoteNotFound, "note not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load note: %w", err)
	}
	return &n, nil
}

// Delete implements notes.Store.
func (s *NoteStore) Delete(ctx context.Context, id string) (string, error) {
	var n notes.Note
	err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return "", errors.New(errors.ErrCodeNoteNotFound, "note not found")
	}
	if err != nil {
		return "", fmt.Errorf("delete note: %w", err)
	}
	return n.UserID, nil
}

// ListPublic implements notes.Store.
func (s *NoteStore) ListPublic(ctx context.Context) ([]notes.Note, error) {
	return s.find(ctx, bson.M{"is_public": true})
}

// ListVisibleTo implements notes.Store.
func (s *NoteStore) ListVisibleTo(ctx context.Context, email string) ([]notes.Note, error) {
	return s.find(ctx, bson.M{"$or": bson.A{
		bson.M{"is_public": true},
		bson.M{"user_email": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(email) + "$", Options: "i"}},
	}})
}

// ListAll implements notes.Store.
func (s *NoteStore) ListAll(ctx context.Context) ([]notes.Note, error) {
	return s.find(ctx, bson.M{})
}

// Positions implements notes.Store.
func (s *NoteStore) Positions(ctx context.Context) ([]placement.Point, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"x": 1, "y": 1}))
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	var docs []struct {
		X float64 `bson:"x"`
		Y float64 `bson:"y"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}
	points := make([]placement.Point, len(docs))
	for i, d := range docs {
		points[i] = placement.Point{X: d.X, Y: d.Y}
	}
	return points, nil
}

func (s *NoteStore) find(ctx context.Context, filter bson.M) ([]notes.Note, error) {
	cur, err := s.coll.Find(ctx, filter, newestFirst)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	var out []notes.Note
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return out, nil
}

var _ notes.Store = (*NoteStore)(nil)
