package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/docsummarizer/go-services/internal/app"
	"github.com/docsummarizer/go-services/internal/config"
	"github.com/docsummarizer/go-services/internal/tokens"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testSecret = "handlers-test-secret-32-bytes-xxxx"

type harness struct {
	t      *testing.T
	cfg    *config.Config
	app    *app.App
	router *gin.Engine
	redis  *miniredis.Miniredis
}

func newHarness(t *testing.T, tune func(cfg *config.Config)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(m.Addr())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.Redis.Host, cfg.Redis.Port = host, port
	cfg.Answer.Provider = "simulated"
	cfg.Workspace.IdleTTL = time.Minute
	cfg.MinIO.Bucket = "documents"
	cfg.Upload.MaxMultipartMemory = 8 << 20
	if tune != nil {
		tune(cfg)
	}

	a, err := app.Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	r := NewRouter(cfg, Deps{
		Users:      a.Users,
		Sessions:   a.Sessions,
		Blacklist:  a.Blacklist,
		Workspaces: a.Workspaces,
		Verifier:   tokens.NewVerifier(cfg.JWT.Secret),
		Redis:      a.Redis,
		Ready:      a.Ready,
	})
	return &harness{t: t, cfg: cfg, app: a, router: r, redis: m}
}

func (h *harness) signIn(sub, name string) (access, refresh string) {
	h.t.Helper()
	ctx := context.Background()
	u, err := h.app.Users.UpsertFromClaims(ctx, map[string]interface{}{"sub": sub, "name": name})
	require.NoError(h.t, err)
	access, err = tokens.GenerateAccessToken(testSecret, u, time.Minute)
	require.NoError(h.t, err)
	refresh, err = h.app.Sessions.CreateSession(ctx, sub, time.Hour)
	require.NoError(h.t, err)
	return access, refresh
}

func (h *harness) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) call(method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return h.do(method, path, token, r, "application/json")
}

func (h *harness) upload(token, name, contentType string, content []byte) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(h.t, err)
	_, err = part.Write(content)
	require.NoError(h.t, err)
	require.NoError(h.t, mw.Close())
	return h.do(http.MethodPost, "/api/v1/documents", token, &buf, mw.FormDataContentType())
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
