package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/docsummarizer/go-services/internal/chat"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}}
	if _, err := m.col.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("chats index: %w", err)
	}
	return nil
}

func (m *MongoRepo) Insert(ctx context.Context, c *chat.Chat) (string, error) {
	rec := *c
	rec.ID = primitive.NewObjectID().Hex()
	rec.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := m.col.InsertOne(ctx, &rec); err != nil {
		return "", err
	}
	c.ID, c.CreatedAt = rec.ID, rec.CreatedAt
	return rec.ID, nil
}

// ListByOwner returns newest first.
func (m *MongoRepo) ListByOwner(ctx context.Context, ownerID string) ([]*chat.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*chat.Chat{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoRepo) Delete(ctx context.Context, ownerID, id string) error {
	_, err := m.col.DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID})
	return err
}

func (m *MongoRepo) UpdateMessages(ctx context.Context, ownerID, id string, msgs []chat.Message, lastMessage string) (time.Time, error) {
	// BSON dates keep milliseconds; truncate so the caller sees what a reload returns.
	at := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{"$set": bson.M{
		"messages":    msgs,
		"lastMessage": lastMessage,
		"updatedAt":   at,
	}}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id, "ownerId": ownerID}, update)
	if err != nil {
		return time.Time{}, err
	}
	if res.MatchedCount == 0 {
		return time.Time{}, ErrNotFound
	}
	return at, nil
}
