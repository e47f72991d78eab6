package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "change-me"

// Category delete policies.
const (
	DeleteRestrict = "restrict"
	DeleteCascade  = "cascade"
	DeleteNullify  = "nullify"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	AppEnv     string
	ServerPort string

	DBDriver    string
	DatabaseDSN string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	AdminEmail    string
	AdminUsername string
	AdminPassword string

	CategoryDeletePolicy string

	AuthRateLimit float64
	AuthRateBurst int

	StorageDriver    string
	StorageLocalRoot string
	StoragePublicURL string
	S3Bucket         string
	S3Region         string
	S3Endpoint       string
	S3Key            string
	S3Secret         string

	SwaggerHost string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is read first when present; real
// environment variables win over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppEnv:     getEnv("APP_ENV", "local"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBDriver:    getEnv("DB_DRIVER", "mysql"),
		DatabaseDSN: getEnv("DATABASE_DSN", "user:password@tcp(localhost:3306)/storefront?charset=utf8mb4&parseTime=True&loc=Local"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),
		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),

		JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 7*24*time.Hour),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@email.com"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		CategoryDeletePolicy: getEnv("CATEGORY_DELETE_POLICY", DeleteRestrict),

		AuthRateLimit: getEnvFloat("AUTH_RATE_LIMIT", 5),
		AuthRateBurst: getEnvInt("AUTH_RATE_BURST", 10),

		StorageDriver:    getEnv("STORAGE_DRIVER", "local"),
		StorageLocalRoot: getEnv("STORAGE_LOCAL_ROOT", "./uploads"),
		StoragePublicURL: getEnv("STORAGE_PUBLIC_URL", "/uploads"),
		S3Bucket:         os.Getenv("S3_BUCKET"),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3Key:            os.Getenv("S3_KEY"),
		S3Secret:         os.Getenv("S3_SECRET"),

		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

// Validate rejects configuration the service cannot run with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (supported: mysql, postgres, sqlite)", c.DBDriver)
	}
	switch c.CategoryDeletePolicy {
	case DeleteRestrict, DeleteCascade, DeleteNullify:
	default:
		return fmt.Errorf("unsupported CATEGORY_DELETE_POLICY %q (supported: restrict, cascade, nullify)", c.CategoryDeletePolicy)
	}
	switch c.StorageDriver {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("STORAGE_DRIVER=s3 requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q (supported: local, s3)", c.StorageDriver)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.IsProduction() && c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.JWTSecret == defaultJWTSecret {
		slog.Warn("JWT_SECRET is using the built-in default, set it before deploying")
	}
	return nil
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
