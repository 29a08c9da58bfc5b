package users

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/docsummarizer/go-services/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository persists profiles. GetBySub returns (nil, nil) when absent.
type UserRepository interface {
	UpsertBySub(ctx context.Context, u *models.User) (*models.User, error)
	GetBySub(ctx context.Context, sub string) (*models.User, error)
}

type MongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sub", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	u.UpdatedAt = now

	filter := bson.M{"sub": u.Sub}
	update := bson.M{
		"$set": bson.M{
			"email":     u.Email,
			"name":      u.Name,
			"picture":   u.Picture,
			"updatedAt": u.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated models.User
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			u.CreatedAt = now
			return u, nil
		}
		return nil, err
	}
	return &updated, nil
}

func (r *MongoUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"sub": sub}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// MemoryUserRepository is used when no MongoDB is configured.
type MemoryUserRepository struct {
	mu    sync.Mutex
	bySub map[string]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{bySub: map[string]models.User{}}
}

func (m *MemoryUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	rec, ok := m.bySub[u.Sub]
	if !ok {
		rec = models.User{ID: uuid.NewString(), Sub: u.Sub, CreatedAt: now}
	}
	rec.Email, rec.Name, rec.Picture = u.Email, u.Name, u.Picture
	rec.UpdatedAt = now
	m.bySub[u.Sub] = rec
	out := rec
	return &out, nil
}

func (m *MemoryUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.bySub[sub]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
