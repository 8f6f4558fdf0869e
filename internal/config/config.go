package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"

	CacheDriverNone   = "none"
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

type Config struct {
	Env         string
	Port        int
	APIBasePath string

	StoreDriver   string
	DBURL         string
	DBMaxConns    int
	DBAutoMigrate bool
	MongoURI      string
	MongoDB       string

	JWTSecret   string
	JWTTTLHours int

	CacheDriver     string
	CacheTTLSeconds int
	CacheMaxEntries int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	CORSOrigins           []string
	AuthRateLimit         int
	AuthRateWindowSeconds int

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64

	SeedUserEmail    string
	SeedUserPassword string
	SeedUserName     string
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	return Config{
		Env:         getEnv("APP_ENV", "dev"),
		Port:        getEnvInt("PORT", 5000),
		APIBasePath: strings.TrimRight(getEnv("API_BASE_PATH", "/api"), "/"),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DBURL:         getEnv("DATABASE_URL", buildDBURL()),
		DBMaxConns:    getEnvInt("DB_MAX_CONNS", 5),
		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
		MongoURI:      getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:       getEnv("MONGO_DB", "todohub"),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTTTLHours: getEnvInt("JWT_TTL_HOURS", 720),

		CacheDriver:     strings.ToLower(getEnv("CACHE_DRIVER", CacheDriverNone)),
		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 30),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 10000),
		RedisAddr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),

		CORSOrigins:           getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		AuthRateLimit:         getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindowSeconds: getEnvInt("AUTH_RATE_WINDOW_SECONDS", 60),

		OTelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio: getEnvFloat("OTEL_SAMPLE_RATIO", 1),

		SeedUserEmail:    getEnv("SEED_USER_EMAIL", ""),
		SeedUserPassword: getEnv("SEED_USER_PASSWORD", ""),
		SeedUserName:     getEnv("SEED_USER_NAME", "Demo User"),
	}
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMongo, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.CacheDriver {
	case CacheDriverNone, CacheDriverMemory, CacheDriverRedis:
	default:
		return fmt.Errorf("unknown CACHE_DRIVER %q", c.CacheDriver)
	}

	if c.JWTSecret == "" && c.Env != "dev" {
		return errors.New("JWT_SECRET is required outside dev")
	}

	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be within [0,1], got %v", c.OTelSampleRatio)
	}

	if c.Port <= 0 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}

	return nil
}

// Secret returns the JWT signing secret, falling back to a fixed value in dev only.
func (c Config) Secret() string {
	if c.JWTSecret == "" && c.Env == "dev" {
		return "dev-insecure-secret"
	}
	return c.JWTSecret
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c Config) AuthRateWindow() time.Duration {
	return time.Duration(c.AuthRateWindowSeconds) * time.Second
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "todohub")
	pass := getEnv("DB_PASSWORD", "todohub")
	name := getEnv("DB_NAME", "todohub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)

		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return b
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
