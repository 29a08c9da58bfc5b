package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "docsummarizer_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "minio123")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "mongodb://localhost:27017/testdb", cfg.MongoDB.URI)
	require.Equal(t, "docsummarizer_test", cfg.MongoDB.Database)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, "documents", cfg.MinIO.Bucket)
	require.Equal(t, 168*time.Hour, cfg.MinIO.URLTTL)
	require.Equal(t, "simulated", cfg.Answer.Provider)
	require.Equal(t, time.Second, cfg.Answer.Delay)
	require.Equal(t, 30*time.Minute, cfg.Workspace.IdleTTL)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
}

func TestLoadConfigWithoutMongoUsesMemory(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Empty(t, cfg.MongoDB.URI)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("ANSWER_PROVIDER", "oracle")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "ANSWER_PROVIDER")

	t.Setenv("ANSWER_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "GEMINI_API_KEY")

	t.Setenv("GEMINI_API_KEY", "k")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "gemini", cfg.Answer.Provider)
}

func TestKeycloakIssuer(t *testing.T) {
	require.Equal(t, "http://kc:8080/realms/docs", KeycloakConfig{URL: "http://kc:8080/", Realm: "docs"}.Issuer())
	require.Equal(t, "http://kc/realms/x", KeycloakConfig{URL: "http://kc/realms/x"}.Issuer())
}
