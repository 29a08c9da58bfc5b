package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docsummarizer/go-services/internal/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores document metadata in a MongoDB collection. Identities are
// ObjectID hex strings kept in _id.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

// EnsureIndexes creates the owner listing index.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: 1}}}
	if _, err := m.col.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("documents index: %w", err)
	}
	return nil
}

func (m *MongoRepo) Insert(ctx context.Context, d *document.Document) (string, error) {
	rec := *d
	rec.ID = primitive.NewObjectID().Hex()
	rec.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := m.col.InsertOne(ctx, &rec); err != nil {
		return "", err
	}
	d.ID = rec.ID
	d.CreatedAt = rec.CreatedAt
	return rec.ID, nil
}

// ListByOwner sorts by createdAt so reloads are stable.
func (m *MongoRepo) ListByOwner(ctx context.Context, ownerID string) ([]*document.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := m.col.Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*document.Document{}
	for cur.Next(ctx) {
		var d document.Document
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	var d document.Document
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
