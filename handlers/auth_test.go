package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docsummarizer/go-services/internal/auth"
	"github.com/docsummarizer/go-services/internal/config"
	"github.com/docsummarizer/go-services/internal/sessions"
	"github.com/docsummarizer/go-services/internal/tokens"
	"github.com/stretchr/testify/require"
)

// keycloakStub serves only the realm token endpoint, so discovery fails and
// id tokens are decoded insecurely.
func keycloakStub(t *testing.T, claims map[string]interface{}) *httptest.Server {
	t.Helper()
	b, err := json.Marshal(claims)
	require.NoError(t, err)
	idToken := "hdr." + base64.RawURLEncoding.EncodeToString(b) + ".sig"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/realms/realm/protocol/openid-connect/token" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "kc-at", "token_type": "Bearer", "id_token": idToken})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func withKeycloak(url string) func(cfg *config.Config) {
	return func(cfg *config.Config) {
		cfg.Keycloak.URL = url
		cfg.Keycloak.Realm = "realm"
		cfg.Keycloak.ClientID = "cid"
		cfg.Keycloak.ClientSecret = "csecret"
		cfg.Keycloak.AllowInsecure = true
	}
}

type loginResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	User         auth.Identity `json:"user"`
	ExpiresIn    int           `json:"expiresIn"`
}

func TestLoginAuthCodeSuccess(t *testing.T) {
	kc := keycloakStub(t, map[string]interface{}{"sub": "test-sub", "email": "a@b.c", "name": "Alice"})
	h := newHarness(t, withKeycloak(kc.URL))

	w := h.call(http.MethodPost, "/auth/login", "", `{"mode":"auth_code","code":"abc","redirect_uri":"http://localhost/cb"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got loginResponse
	decode(t, w, &got)
	require.NotEmpty(t, got.AccessToken)
	require.NotEmpty(t, got.RefreshToken)
	require.Equal(t, "test-sub", got.User.UserID)
	require.Equal(t, "Alice", got.User.Profile.DisplayName)
	require.Equal(t, 900, got.ExpiresIn)

	w = h.call(http.MethodGet, "/api/v1/me", got.AccessToken, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLoginPasswordDefaultsDisplayName(t *testing.T) {
	kc := keycloakStub(t, map[string]interface{}{"sub": "pw-sub"})
	h := newHarness(t, withKeycloak(kc.URL))

	w := h.call(http.MethodPost, "/auth/login", "", `{"mode":"password","username":"a","password":"b"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got loginResponse
	decode(t, w, &got)
	require.Equal(t, "User", got.User.Profile.DisplayName)
}

func TestLoginRejectsBadRequests(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, http.StatusBadRequest, h.call(http.MethodPost, "/auth/login", "", `{}`).Code)
	require.Equal(t, http.StatusBadRequest, h.call(http.MethodPost, "/auth/login", "", `{"mode":"magic"}`).Code)
	require.Equal(t, http.StatusInternalServerError, h.call(http.MethodPost, "/auth/login", "", `{"mode":"password"}`).Code, "keycloak not configured")

	kc := keycloakStub(t, map[string]interface{}{"sub": "x"})
	h = newHarness(t, withKeycloak(kc.URL))
	require.Equal(t, http.StatusBadRequest, h.call(http.MethodPost, "/auth/login", "", `{"mode":"auth_code"}`).Code)
}

func TestLogin_CORSHeaders(t *testing.T) {
	h := newHarness(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = h.call(http.MethodPost, "/auth/login", "", `{"mode":"password","username":"a","password":"b"}`)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRefresh(t *testing.T) {
	h := newHarness(t, nil)
	_, refresh := h.signIn("u1", "Alice")

	w := h.call(http.MethodPost, "/auth/refresh", "", fmt.Sprintf(`{"refresh_token":%q}`, refresh))
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	decode(t, w, &got)
	access, _ := got["accessToken"].(string)
	require.NotEmpty(t, access)
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/api/v1/me", access, "").Code)

	require.Equal(t, http.StatusUnauthorized, h.call(http.MethodPost, "/auth/refresh", "", `{"refresh_token":"does-not-exist"}`).Code)
	require.Equal(t, http.StatusBadRequest, h.call(http.MethodPost, "/auth/refresh", "", `{}`).Code)
}

func TestLogout_BlacklistsAccessAndDeletesRefresh(t *testing.T) {
	h := newHarness(t, nil)
	access, refresh := h.signIn("u1", "Alice")
	require.Equal(t, http.StatusOK, h.call(http.MethodGet, "/api/v1/me", access, "").Code)

	w := h.call(http.MethodPost, "/auth/logout", access, fmt.Sprintf(`{"refresh_token":%q}`, refresh))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.True(t, h.redis.Exists("blacklist:access:"+access))
	require.Equal(t, http.StatusUnauthorized, h.call(http.MethodGet, "/api/v1/me", access, "").Code)
	require.Equal(t, http.StatusUnauthorized, h.call(http.MethodPost, "/auth/refresh", "", fmt.Sprintf(`{"refresh_token":%q}`, refresh)).Code)

	// a second logout with the spent refresh token is harmless
	require.Equal(t, http.StatusOK, h.call(http.MethodPost, "/auth/logout", access, fmt.Sprintf(`{"refresh_token":%q}`, refresh)).Code)
}

func TestLogoutFailureSurfacesMessage(t *testing.T) {
	h := newHarness(t, nil)
	access, _ := h.signIn("u1", "Alice")

	// refresh sessions live outside redis so only the blacklist write fails
	local := sessions.NewService(sessions.NewMemoryRepository())
	refresh, err := local.CreateSession(context.Background(), "u1", time.Hour)
	require.NoError(t, err)
	h.router = NewRouter(h.cfg, Deps{
		Users:      h.app.Users,
		Sessions:   local,
		Blacklist:  h.app.Blacklist,
		Workspaces: h.app.Workspaces,
		Verifier:   tokens.NewVerifier(testSecret),
	})
	h.redis.SetError("READONLY You can't write against a read only replica.")

	w := h.call(http.MethodPost, "/auth/logout", access, fmt.Sprintf(`{"refresh_token":%q}`, refresh))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var got map[string]string
	decode(t, w, &got)
	require.Equal(t, "Failed to sign out. Please try again.", got["error"])

	h.redis.SetError("")
	sess, err := local.ValidateRefresh(context.Background(), refresh)
	require.NoError(t, err)
	require.NotNil(t, sess, "failed sign-out keeps the refresh session")
}
