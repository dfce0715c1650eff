package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr          string
	DatabaseURL       string
	JWTSecret         string
	JWTIssuer         string
	SessionTTL        time.Duration
	Environment       string
	RedisAddr         string
	MediaUploadURL    string
	MediaUploadPreset string
	MediaAPIKey       string
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:       getenv("DATABASE_URL", ""),
		JWTSecret:         getenv("JWT_SECRET", ""),
		JWTIssuer:         getenv("JWT_ISSUER", "campus-identity"),
		SessionTTL:        getenvDuration("SESSION_TTL", 7*24*time.Hour),
		Environment:       getenv("ENVIRONMENT", "development"),
		RedisAddr:         getenv("REDIS_ADDR", ""),
		MediaUploadURL:    getenv("MEDIA_UPLOAD_URL", ""),
		MediaUploadPreset: getenv("MEDIA_UPLOAD_PRESET", ""),
		MediaAPIKey:       getenv("MEDIA_API_KEY", ""),
	}
}

// Validate reports fatal startup conditions. A service without a signing
// secret must refuse to start rather than fail per-request.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}

// Production reports whether cookies must carry the Secure flag.
func (c Config) Production() bool {
	return c.Environment != "development"
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
