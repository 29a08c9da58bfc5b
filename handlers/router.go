package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/docsummarizer/go-services/internal/config"
	"github.com/docsummarizer/go-services/internal/sessions"
	"github.com/docsummarizer/go-services/internal/users"
	"github.com/docsummarizer/go-services/internal/workspace"
	"github.com/docsummarizer/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Users      *users.Service
	Sessions   *sessions.Service
	Blacklist  *sessions.TokenBlacklist
	Workspaces *workspace.Registry
	// Verifier checks bearer tokens on /api/v1.
	Verifier middleware.Verifier
	// Redis backs the shared rate limiter when configured.
	Redis *redis.Client
	// Ready reports per-dependency health for /ready.
	Ready func(ctx context.Context) map[string]bool
}

var startTime = time.Now()

// NewRouter assembles the service routes.
func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(cors(), gin.Logger(), gin.Recovery())
	r.MaxMultipartMemory = cfg.Upload.MaxMultipartMemory

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{}
		if d.Ready != nil {
			deps = d.Ready(c.Request.Context())
		}
		deps["auth"] = d.Verifier != nil
		status, code := "ready", http.StatusOK
		for _, ok := range deps {
			if !ok {
				status, code = "not_ready", http.StatusServiceUnavailable
				break
			}
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterSwagger(r)

	NewAuthHandler(cfg, d.Users, d.Sessions, d.Workspaces).Register(r.Group("/"))

	api := r.Group("/api/v1")
	if d.Verifier == nil {
		api.Use(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication not configured"})
		})
	} else {
		api.Use(middleware.AuthMiddleware(d.Verifier, d.Blacklist))
	}
	if cfg.RateLimit.Enabled {
		api.Use(rateLimiter(cfg.RateLimit, d.Redis))
	}
	NewWorkspaceHandler(d.Workspaces).Register(api)
	return r
}

// rateLimiter runs after auth so buckets are keyed by subject.
func rateLimiter(rl config.RateLimitConfig, rc *redis.Client) gin.HandlerFunc {
	if rl.UseRedis && rc != nil {
		win := time.Duration(rl.WindowSeconds) * time.Second
		return middleware.RedisRateLimitMiddleware(rc, rl.RPS, rl.Burst, win)
	}
	return middleware.RateLimitMiddleware(rl.RPS, rl.Burst)
}

// Lightweight CORS for browser clients.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func addr(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
}

// NewServer wraps the router with the configured timeouts.
func NewServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr(cfg),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
