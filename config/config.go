package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Environment string `validate:"required,oneof=development staging production"`
	Server      struct {
		Port           string   `validate:"required,numeric"`
		AllowedOrigins []string `validate:"required,min=1,dive,required"`
		RateLimitRPS   int      `validate:"min=1"`
	}
	Database struct {
		URL string `validate:"required"`
	}
	Redis struct {
		URL string `validate:"required"`
	}
	Storage struct {
		Endpoint        string `validate:"required"`
		AccessKey       string
		SecretKey       string
		UseSSL          bool
		BucketStickers  string `validate:"required"`
		StickerCacheDir string `validate:"required"`
	}
	JWT struct {
		Secret string `validate:"required"`
	}
	CallLinks struct {
		Secret        string        `validate:"required"`
		CredentialTTL time.Duration `validate:"min=1s"`
		ServiceURL    string        `validate:"required,url"`
	}
	Groups struct {
		ServiceURL string `validate:"required,url"`
	}
	LinkPreviews struct {
		DefaultEnabled        bool
		Locale                string        `validate:"required"`
		UserAgent             string        `validate:"required"`
		RequestTimeout        time.Duration `validate:"min=1s"`
		MaxThumbnailDimension int           `validate:"min=16,max=4096"`
	}
}

var AppConfig *Config

var validate = validator.New()

// Load reads the environment, after merging a .env file when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{Environment: env("APP_ENV", "development")}
	cfg.loadServer()
	cfg.loadBackends()
	cfg.loadSecrets()
	cfg.loadLinkPreviews()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return cfg, nil
}

func (c *Config) loadServer() {
	c.Server.Port = env("PORT", "8090")
	c.Server.AllowedOrigins = envList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"})
	c.Server.RateLimitRPS = envInt("RATE_LIMIT_RPS", 10)
}

func (c *Config) loadBackends() {
	c.Database.URL = env("DATABASE_URL", "postgres://"+
		env("POSTGRES_USER", "zentra")+":"+env("POSTGRES_PASSWORD", "zentra_secure_password")+
		"@"+env("POSTGRES_HOST", "localhost")+":"+env("POSTGRES_PORT", "5432")+
		"/"+env("POSTGRES_DB", "zentra")+"?sslmode="+env("POSTGRES_SSLMODE", "disable"))

	c.Redis.URL = env("REDIS_URL", "redis://"+env("REDIS_HOST", "localhost")+":"+env("REDIS_PORT", "6379"))

	c.Storage.Endpoint = env("MINIO_ENDPOINT", "localhost:9000")
	c.Storage.AccessKey = env("MINIO_ACCESS_KEY", "zentra_minio")
	c.Storage.SecretKey = env("MINIO_SECRET_KEY", "zentra_minio_secret")
	c.Storage.UseSSL = envBool("MINIO_USE_SSL", false)
	c.Storage.BucketStickers = env("MINIO_BUCKET_STICKERS", "stickers")
	c.Storage.StickerCacheDir = env("STICKER_CACHE_DIR", filepath.Join(os.TempDir(), "zentra-stickers"))

	c.CallLinks.ServiceURL = env("CALLING_SERVICE_URL", "http://localhost:8091")
	c.Groups.ServiceURL = env("GROUPS_SERVICE_URL", "http://localhost:8092")
}

func (c *Config) loadSecrets() {
	c.JWT.Secret = env("JWT_SECRET", "your-super-secret-jwt-key-change-in-production")
	c.CallLinks.Secret = env("CALL_LINK_SECRET", "your-call-link-secret-change-in-production")
	c.CallLinks.CredentialTTL = envDuration("CALL_LINK_CREDENTIAL_TTL", time.Hour)
}

func (c *Config) loadLinkPreviews() {
	c.LinkPreviews.DefaultEnabled = envBool("LINK_PREVIEWS_DEFAULT_ENABLED", true)
	c.LinkPreviews.Locale = env("LINK_PREVIEW_LOCALE", "en")
	// Some sites only serve Open Graph tags to user agents they recognize as link unfurlers.
	c.LinkPreviews.UserAgent = env("LINK_PREVIEW_USER_AGENT", "WhatsApp/2")
	c.LinkPreviews.RequestTimeout = envDuration("LINK_PREVIEW_REQUEST_TIMEOUT", 30*time.Second)
	c.LinkPreviews.MaxThumbnailDimension = envInt("LINK_PREVIEW_MAX_THUMBNAIL_DIMENSION", 2400)
}

// Validate checks the loaded values against the struct tags.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func env(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// envParsed falls back when the variable is unset or does not parse.
func envParsed[T any](key string, fallback T, parse func(string) (T, error)) T {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := parse(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring unparsable environment value")
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	return envParsed(key, fallback, strconv.Atoi)
}

func envBool(key string, fallback bool) bool {
	return envParsed(key, fallback, strconv.ParseBool)
}

func envDuration(key string, fallback time.Duration) time.Duration {
	return envParsed(key, fallback, time.ParseDuration)
}

// envList reads a comma separated list, dropping blank entries.
func envList(key string, fallback []string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
