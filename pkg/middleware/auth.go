package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/docsummarizer/go-services/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ClaimsKey      = "claims"
	AccessTokenKey = "accessToken"
)

// Token is a verified token that can expose its claims.
type Token interface {
	Claims(v interface{}) error
}

type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Blacklist reports access tokens revoked by sign-out.
type Blacklist interface {
	Contains(ctx context.Context, token string) (bool, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}

// AuthMiddleware verifies the bearer token and stores its claims under
// ClaimsKey. A non-nil blacklist rejects revoked tokens before verification.
func AuthMiddleware(ver Verifier, bl Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		token, ok := BearerToken(header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		if bl != nil {
			revoked, err := bl.Contains(c.Request.Context(), token)
			if err != nil {
				logger.Warnf("blacklist lookup failed: %v", err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "token check unavailable"})
				return
			}
			if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
				return
			}
		}

		verified, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}
		var claims map[string]interface{}
		if err := verified.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}
		if sub, _ := claims["sub"].(string); sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(AccessTokenKey, token)
		c.Next()
	}
}

// Claims returns the claims stored by AuthMiddleware.
func Claims(c *gin.Context) map[string]interface{} {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]interface{})
	return m
}

// limiterKey prefers the authenticated subject over the client address.
func limiterKey(c *gin.Context) string {
	if sub, ok := Claims(c)["sub"].(string); ok && sub != "" {
		return "sub:" + sub
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
