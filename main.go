package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docsummarizer/go-services/handlers"
	"github.com/docsummarizer/go-services/internal/app"
	"github.com/docsummarizer/go-services/internal/config"
	"github.com/docsummarizer/go-services/internal/tokens"
	"github.com/docsummarizer/go-services/pkg/logger"
	"github.com/docsummarizer/go-services/pkg/metrics"
	"github.com/docsummarizer/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.Configure(logger.Options{File: cfg.Log.File, JSON: cfg.Log.JSON || cfg.Production()})
	defer func() { _ = logger.Sync() }()
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v minio=%v answers=%s",
		cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "", cfg.Answer.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to initialize collaborators: %v", err)
	}
	defer a.Close(context.Background())

	var verifier middleware.Verifier
	if cfg.JWT.Secret != "" {
		verifier = tokens.NewVerifier(cfg.JWT.Secret)
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := handlers.NewRouter(cfg, handlers.Deps{
		Users:      a.Users,
		Sessions:   a.Sessions,
		Blacklist:  a.Blacklist,
		Workspaces: a.Workspaces,
		Verifier:   verifier,
		Redis:      a.Redis,
		Ready:      a.Ready,
	})

	srv := handlers.NewServer(cfg, r)
	go func() {
		logger.Infof("starting service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("graceful shutdown: %v", err)
	}
}
