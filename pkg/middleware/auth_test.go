package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/docsummarizer/go-services/internal/sessions"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	switch raw {
	case "goodtoken", "black-token":
		return &fakeToken{data: map[string]interface{}{"sub": "user1", "email": "test@example.com"}}, nil
	case "nosub":
		return &fakeToken{data: map[string]interface{}{"email": "x@example.com"}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func serve(t *testing.T, bl Blacklist, header string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}, bl), h)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func ok(c *gin.Context) { c.Status(http.StatusOK) }

func TestAuthMiddleware_Rejections(t *testing.T) {
	cases := map[string]string{
		"no header":     "",
		"bad header":    "BadHeader",
		"empty bearer":  "Bearer ",
		"invalid token": "Bearer nope",
		"no subject":    "Bearer nosub",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, http.StatusUnauthorized, serve(t, nil, header, ok).Code)
		})
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rw := serve(t, nil, "bearer goodtoken", func(c *gin.Context) {
		require.Equal(t, "goodtoken", c.GetString(AccessTokenKey))
		c.JSON(http.StatusOK, gin.H{"claims": Claims(c)})
	})
	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Equal(t, "user1", got["claims"]["sub"])
}

func TestAuthMiddleware_RejectsBlacklistedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	bl := sessions.NewTokenBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	require.NoError(t, bl.Add(context.Background(), "black-token", 5*time.Second))

	require.Equal(t, http.StatusUnauthorized, serve(t, bl, "Bearer black-token", ok).Code)
	require.Equal(t, http.StatusOK, serve(t, bl, "Bearer goodtoken", ok).Code)

	m.Close()
	require.Equal(t, http.StatusServiceUnavailable, serve(t, bl, "Bearer goodtoken", ok).Code)
}

func TestBearerToken(t *testing.T) {
	tok, found := BearerToken("Bearer abc.def")
	require.True(t, found)
	require.Equal(t, "abc.def", tok)
	_, found = BearerToken("Basic xyz")
	require.False(t, found)
}
