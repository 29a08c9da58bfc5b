package handlers

import (
	"net/http"
	"time"

	"github.com/docsummarizer/go-services/internal/auth"
	"github.com/docsummarizer/go-services/internal/config"
	"github.com/docsummarizer/go-services/internal/oidc"
	"github.com/docsummarizer/go-services/internal/sessions"
	"github.com/docsummarizer/go-services/internal/tokens"
	"github.com/docsummarizer/go-services/internal/users"
	"github.com/docsummarizer/go-services/internal/workspace"
	"github.com/docsummarizer/go-services/pkg/logger"
	"github.com/docsummarizer/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// LoginRequest used for password-mode login (dev/testing)
type LoginRequest struct {
	Mode        string `json:"mode" binding:"required"` // "password" | "auth_code"
	Username    string `json:"username"`
	Password    string `json:"password"`
	Code        string `json:"code"`         // authorization code
	RedirectURI string `json:"redirect_uri"` // redirect uri used in auth code flow
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	keycloak    *oidc.KeycloakClient
	idTokens    middleware.Verifier
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	workspaces  *workspace.Registry
}

func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, ws *workspace.Registry) *AuthHandler {
	issuer := cfg.Keycloak.Issuer()
	return &AuthHandler{
		cfg:         cfg,
		keycloak:    oidc.NewKeycloakClient(issuer, cfg.Keycloak.ClientID, cfg.Keycloak.ClientSecret),
		idTokens:    oidc.NewLazyVerifier(issuer, cfg.Keycloak.ClientID, cfg.Keycloak.AllowInsecure),
		usersSvc:    u,
		sessionsSvc: s,
		workspaces:  ws,
	}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Mode != "password" && req.Mode != "auth_code" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported mode"})
		return
	}
	if h.cfg.Keycloak.URL == "" || h.cfg.Keycloak.Realm == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Keycloak not configured"})
		return
	}

	ctx := c.Request.Context()
	var (
		ts  *oidc.TokenSet
		err error
	)
	if req.Mode == "password" {
		ts, err = h.keycloak.PasswordToken(ctx, req.Username, req.Password)
	} else {
		if req.Code == "" || req.RedirectURI == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code and redirect_uri required for auth_code mode"})
			return
		}
		ts, err = h.keycloak.ExchangeCode(ctx, req.Code, req.RedirectURI)
	}
	if err != nil {
		logger.Warnf("login (%s): %v", req.Mode, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed", "details": err.Error()})
		return
	}

	claims, err := oidc.IDTokenClaims(ctx, h.idTokens, ts.IDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id token", "details": err.Error()})
		return
	}
	u, err := h.usersSvc.UpsertFromClaims(ctx, claims)
	if err != nil {
		logger.Errorf("user upsert error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user upsert failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "id token has no subject"})
		return
	}
	rft, err := h.sessionsSvc.CreateSession(ctx, u.Sub, h.refreshTTL())
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg.JWT.Secret, u, h.accessTTL())
	if err != nil {
		logger.Errorf("failed to create access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": rft,
		"user":         auth.FromUser(u),
		"expiresIn":    int(h.accessTTL().Seconds()),
	})
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	sess, err := h.sessionsSvc.ValidateRefresh(ctx, req.RefreshToken)
	if err != nil {
		logger.Errorf("refresh validation: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	u, err := h.usersSvc.GetBySub(ctx, sess.UserID)
	if err != nil || u == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg.JWT.Secret, u, h.accessTTL())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "expiresIn": int(h.accessTTL().Seconds())})
}

// Logout signs the owner of the refresh token out through their workspace:
// the presented access token is revoked and the refresh session dropped.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	sess, err := h.sessionsSvc.ValidateRefresh(ctx, req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if sess == nil {
		// already signed out
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}

	id := auth.Identity{UserID: sess.UserID}
	if u, err := h.usersSvc.GetBySub(ctx, sess.UserID); err == nil && u != nil {
		id = auth.FromUser(u)
	}
	access, _ := middleware.BearerToken(c.GetHeader("Authorization"))
	ctrl := h.workspaces.Get(ctx, id)
	ctx = auth.WithCredentials(ctx, auth.Credentials{AccessToken: access, RefreshToken: req.RefreshToken})
	if err := ctrl.SignOut(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": ctrl.Snapshot().LastError})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) accessTTL() time.Duration {
	if h.cfg.JWT.AccessTokenTTL > 0 {
		return h.cfg.JWT.AccessTokenTTL
	}
	return 15 * time.Minute
}

func (h *AuthHandler) refreshTTL() time.Duration {
	if h.cfg.JWT.RefreshTokenTTL > 0 {
		return h.cfg.JWT.RefreshTokenTTL
	}
	return 7 * 24 * time.Hour
}
