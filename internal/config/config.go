package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the application configuration.
var Module = fx.Module("config", fx.Provide(Load))

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	AdminAPIKey string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	Redis      RedisConfig
	Credential CredentialConfig
	RateLimit  RateLimitConfig
	Classifier ClassifierConfig
	Verify     VerifyConfig
}

// RedisConfig addresses the shared store backing credentials and rate counters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CredentialConfig tunes the token lifecycle manager.
type CredentialConfig struct {
	StrictOrigin bool
	DefaultTTL   time.Duration
}

// RateLimitConfig carries per-operation-class ceilings for the fixed window.
type RateLimitConfig struct {
	Enabled        bool
	Window         time.Duration
	VerifyLimit    int64
	AnalyticsLimit int64
	DashboardLimit int64
}

// ClassifierConfig points at the fitted model artifact.
type ClassifierConfig struct {
	ModelPath string
}

// VerifyConfig bounds the verification pipeline.
type VerifyConfig struct {
	ClassifierTimeout time.Duration
	RecordRetention   time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "botsense"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		AdminAPIKey: strings.TrimSpace(getenv("ADMIN_API_KEY", "")),

		DBType:            getenv("DATABASE_TYPE", "sqlite"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "botsense"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 2)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 10)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 3600)),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		Credential: CredentialConfig{
			StrictOrigin: getenvBool("CREDENTIAL_STRICT_ORIGIN", false),
			DefaultTTL:   getenvDuration("CREDENTIAL_DEFAULT_TTL", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getenvBool("RATE_LIMIT_ENABLED", true),
			Window:         getenvDuration("RATE_LIMIT_WINDOW", time.Hour),
			VerifyLimit:    getenvInt64("RATE_LIMIT_VERIFY", 10000),
			AnalyticsLimit: getenvInt64("RATE_LIMIT_ANALYTICS", 1000),
			DashboardLimit: getenvInt64("RATE_LIMIT_DASHBOARD", 500),
		},
		Classifier: ClassifierConfig{
			ModelPath: getenv("CLASSIFIER_MODEL_PATH", "model/classifier.json"),
		},
		Verify: VerifyConfig{
			ClassifierTimeout: getenvDuration("VERIFY_CLASSIFIER_TIMEOUT", 300*time.Millisecond),
			RecordRetention:   getenvDuration("VERIFY_RECORD_RETENTION", 90*24*time.Hour),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
