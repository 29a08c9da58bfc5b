package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docsummarizer/go-services/internal/storage"
	"github.com/docsummarizer/go-services/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	MinIO     storage.MinIOConfig
	Upload    UploadConfig
	Answer    AnswerConfig
	Workspace WorkspaceConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MongoDBConfig with an empty URI selects the in-memory collaborators.
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type KeycloakConfig struct {
	URL           string
	Realm         string
	ClientID      string
	ClientSecret  string
	AllowInsecure bool
}

// Issuer is the realm issuer URL, or "" when Keycloak is not configured.
func (k KeycloakConfig) Issuer() string {
	if k.URL == "" || k.Realm == "" {
		return k.URL
	}
	return strings.TrimRight(k.URL, "/") + "/realms/" + k.Realm
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type UploadConfig struct {
	// ChunkSize applies to the in-memory object store only.
	ChunkSize int
	// MaxMultipartMemory bounds form parsing; files above the 5 MiB policy
	// are still rejected by validation.
	MaxMultipartMemory int64
}

type AnswerConfig struct {
	Provider string // simulated | gemini
	Model    string
	APIKey   string
	Delay    time.Duration
	Timeout  time.Duration
}

type WorkspaceConfig struct {
	IdleTTL time.Duration
}

type LogConfig struct {
	Level string
	File  string
	JSON  bool
}

func (c *Config) Production() bool { return c.Server.Environment == "production" }

// LoadConfig reads the environment (and an optional .env file).
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("DOTENV_PATH")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "docsummarizer")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_RPS", 5.0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("MINIO_BUCKET", "documents")
	viper.SetDefault("MINIO_URL_TTL_HOURS", 168)
	viper.SetDefault("UPLOAD_CHUNK_SIZE", 256<<10)
	viper.SetDefault("UPLOAD_MAX_MULTIPART_MEMORY", 8<<20)
	viper.SetDefault("ANSWER_PROVIDER", "simulated")
	viper.SetDefault("ANSWER_MODEL", "gemini-1.5-flash")
	viper.SetDefault("ANSWER_DELAY_MS", 1000)
	viper.SetDefault("ANSWER_TIMEOUT_SECONDS", 30)
	viper.SetDefault("WORKSPACE_IDLE_MINUTES", 30)
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Keycloak: KeycloakConfig{
			URL:           viper.GetString("KEYCLOAK_URL"),
			Realm:         viper.GetString("KEYCLOAK_REALM"),
			ClientID:      viper.GetString("KEYCLOAK_CLIENT_ID"),
			ClientSecret:  viper.GetString("KEYCLOAK_CLIENT_SECRET"),
			AllowInsecure: viper.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(viper.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		MinIO: storage.MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
			URLTTL:    time.Duration(viper.GetInt("MINIO_URL_TTL_HOURS")) * time.Hour,
		},
		Upload: UploadConfig{
			ChunkSize:          viper.GetInt("UPLOAD_CHUNK_SIZE"),
			MaxMultipartMemory: viper.GetInt64("UPLOAD_MAX_MULTIPART_MEMORY"),
		},
		Answer: AnswerConfig{
			Provider: strings.ToLower(viper.GetString("ANSWER_PROVIDER")),
			Model:    viper.GetString("ANSWER_MODEL"),
			APIKey:   firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY")),
			Delay:    time.Duration(viper.GetInt("ANSWER_DELAY_MS")) * time.Millisecond,
			Timeout:  time.Duration(viper.GetInt("ANSWER_TIMEOUT_SECONDS")) * time.Second,
		},
		Workspace: WorkspaceConfig{
			IdleTTL: time.Duration(viper.GetInt("WORKSPACE_IDLE_MINUTES")) * time.Minute,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
			File:  viper.GetString("LOG_FILE"),
			JSON:  viper.GetBool("LOG_JSON"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.JWT.Secret == "" {
		logger.Warn("JWT_SECRET is not set; login and API authentication are disabled")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Answer.Provider {
	case "simulated", "gemini":
	default:
		return fmt.Errorf("ANSWER_PROVIDER must be simulated or gemini, got %q", c.Answer.Provider)
	}
	if c.Answer.Provider == "gemini" && c.Answer.APIKey == "" {
		return fmt.Errorf("ANSWER_PROVIDER=gemini requires GEMINI_API_KEY or GOOGLE_API_KEY")
	}
	if c.MinIO.Endpoint != "" && (c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "") {
		return fmt.Errorf("MINIO_ENDPOINT is set but MINIO_ACCESS_KEY/MINIO_SECRET_KEY are missing")
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
