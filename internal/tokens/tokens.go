package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docsummarizer/go-services/internal/models"
	"github.com/docsummarizer/go-services/pkg/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are carried by access tokens issued after login.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an HS256 access token for the user.
func GenerateAccessToken(secret string, u *models.User, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := Claims{
		Name:    u.Name,
		Email:   u.Email,
		Picture: u.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAccessToken verifies signature and expiry. Only HS256 is accepted.
func ParseAccessToken(secret, raw string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RemainingTTL reads the exp claim without verifying the signature. It is
// used to size blacklist entries at sign-out.
func RemainingTTL(raw string, now time.Time) (time.Duration, error) {
	var c jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return 0, err
	}
	if c.ExpiresAt == nil {
		return 0, fmt.Errorf("exp claim not present")
	}
	return c.ExpiresAt.Sub(now), nil
}

// Verifier checks access tokens issued by this service.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier { return &Verifier{secret: secret} }

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	c, err := ParseAccessToken(v.secret, raw)
	if err != nil {
		return nil, err
	}
	return claimsToken{c}, nil
}

type claimsToken struct{ c *Claims }

func (t claimsToken) Claims(v interface{}) error {
	m, ok := v.(*map[string]interface{})
	if !ok {
		return fmt.Errorf("unsupported claims target %T", v)
	}
	out := map[string]interface{}{
		"sub":     t.c.Subject,
		"name":    t.c.Name,
		"email":   t.c.Email,
		"picture": t.c.Picture,
	}
	if t.c.ExpiresAt != nil {
		out["exp"] = float64(t.c.ExpiresAt.Unix())
	}
	*m = out
	return nil
}
