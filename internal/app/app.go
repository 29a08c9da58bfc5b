// Package app wires the collaborators chosen by configuration: Mongo or
// in-memory repositories, MinIO or in-memory blobs, Redis-backed or local
// sessions, and the answering provider.
package app

import (
	"context"
	"time"

	"github.com/docsummarizer/go-services/internal/answer"
	"github.com/docsummarizer/go-services/internal/auth"
	chatrepo "github.com/docsummarizer/go-services/internal/chat/repository"
	chatservice "github.com/docsummarizer/go-services/internal/chat/service"
	"github.com/docsummarizer/go-services/internal/config"
	"github.com/docsummarizer/go-services/internal/database"
	docrepo "github.com/docsummarizer/go-services/internal/document/repository"
	docservice "github.com/docsummarizer/go-services/internal/document/service"
	"github.com/docsummarizer/go-services/internal/sessions"
	"github.com/docsummarizer/go-services/internal/storage"
	"github.com/docsummarizer/go-services/internal/upload"
	"github.com/docsummarizer/go-services/internal/users"
	"github.com/docsummarizer/go-services/internal/workspace"
	"github.com/docsummarizer/go-services/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type App struct {
	Cfg *config.Config

	Redis *redis.Client
	Mongo *mongo.Client

	Blobs     storage.ObjectStore
	Documents docrepo.Repository
	Chats     chatrepo.Repository
	Users     *users.Service
	Sessions  *sessions.Service
	Blacklist *sessions.TokenBlacklist
	Responder answer.Responder
	Pipeline  *upload.Pipeline

	Workspaces *workspace.Registry

	closers []func(context.Context)
}

// Build connects whatever the configuration names and falls back to the
// in-memory collaborators otherwise. Unreachable Redis is tolerated; an
// unreachable Mongo or MinIO that was explicitly configured is not.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Cfg: cfg}

	if cfg.Redis.Host != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis %s unreachable, continuing without it: %v", cfg.Redis.Addr(), err)
			_ = rc.Close()
		} else {
			logger.Infof("connected to redis %s", cfg.Redis.Addr())
			a.Redis = rc
			a.closers = append(a.closers, func(context.Context) { _ = rc.Close() })
		}
	}

	if err := a.buildRepositories(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.buildBlobs(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.buildResponder(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Blacklist = sessions.NewTokenBlacklist(a.Redis)
	a.Pipeline = upload.New(a.Blobs, a.Documents)
	a.Workspaces = workspace.NewRegistry(cfg.Workspace.IdleTTL, a.NewController)
	return a, nil
}

func (a *App) buildRepositories(ctx context.Context) error {
	cfg := a.Cfg
	if cfg.MongoDB.URI == "" {
		logger.Warn("MONGODB_URI not set; documents, chats and users are kept in memory")
		a.Documents = docrepo.NewMemoryRepo()
		a.Chats = chatrepo.NewMemoryRepo()
		a.Users = users.NewService(users.NewMemoryUserRepository())
		a.Sessions = a.sessionService(sessions.NewMemoryRepository())
		return nil
	}

	client, err := connectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		return err
	}
	a.Mongo = client
	a.closers = append(a.closers, func(ctx context.Context) { _ = client.Disconnect(ctx) })

	db := client.Database(cfg.MongoDB.Database)
	docs := docrepo.NewMongoRepo(db.Collection(database.DocumentsCollection))
	chats := chatrepo.NewMongoRepo(db.Collection(database.ChatsCollection))
	userRepo := users.NewMongoUserRepository(db.Collection(database.UsersCollection))
	sessRepo := sessions.NewMongoRepository(db.Collection(database.SessionsCollection))
	if err := database.EnsureIndexes(ctx, cfg.MongoDB.Timeout, docs, chats, userRepo, sessRepo); err != nil {
		logger.Warnf("mongo index setup: %v", err)
	}

	a.Documents = docs
	a.Chats = chats
	a.Users = users.NewService(userRepo)
	a.Sessions = a.sessionService(sessRepo)
	return nil
}

// sessionService prefers Redis for refresh sessions when it is reachable.
func (a *App) sessionService(fallback sessions.Repository) *sessions.Service {
	if a.Redis != nil {
		logger.Info("using redis for session storage")
		return sessions.NewService(sessions.NewRedisRepository(a.Redis, "session:"))
	}
	return sessions.NewService(fallback)
}

func connectWithRetry(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	const maxAttempts = 5
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, uri, timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, lastErr
}

func (a *App) buildBlobs(ctx context.Context) error {
	if a.Cfg.MinIO.Endpoint == "" {
		logger.Warn("MINIO_ENDPOINT not set; uploaded files are kept in memory")
		a.Blobs = storage.NewMemoryStorage(a.Cfg.MinIO.Bucket, a.Cfg.Upload.ChunkSize)
		return nil
	}
	s, err := storage.NewMinIOStorage(ctx, &a.Cfg.MinIO)
	if err != nil {
		return err
	}
	logger.Infof("using minio %s bucket=%s", a.Cfg.MinIO.Endpoint, a.Cfg.MinIO.Bucket)
	a.Blobs = s
	return nil
}

func (a *App) buildResponder(ctx context.Context) error {
	if a.Cfg.Answer.Provider != "gemini" {
		a.Responder = answer.NewSimulated(a.Cfg.Answer.Delay)
		return nil
	}
	g, err := answer.NewGemini(ctx, a.Cfg.Answer.APIKey, a.Cfg.Answer.Model, a.Cfg.Answer.Timeout)
	if err != nil {
		return err
	}
	logger.Infof("answers from gemini model=%s", a.Cfg.Answer.Model)
	a.Responder = g
	a.closers = append(a.closers, func(context.Context) { _ = g.Close() })
	return nil
}

// NewController builds the workspace of one signed-in user.
func (a *App) NewController(id auth.Identity) *workspace.Controller {
	return workspace.NewController(
		auth.NewSessionAuthenticator(id, a.Sessions, a.Blacklist),
		docservice.NewDocumentStore(id, a.Pipeline, a.Documents, a.Blobs),
		chatservice.NewChatStore(id, a.Chats),
		a.Responder,
	)
}

// Ready reports the health of the remote collaborators that are in use.
func (a *App) Ready(ctx context.Context) map[string]bool {
	deps := map[string]bool{"storage": a.Blobs != nil, "sessions": a.Sessions != nil}
	if a.Mongo != nil {
		deps["mongo"] = database.Ping(ctx, a.Mongo) == nil
	}
	if a.Redis != nil {
		deps["redis"] = a.Redis.Ping(ctx).Err() == nil
	}
	return deps
}

// Close releases connections in reverse order of creation.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}
