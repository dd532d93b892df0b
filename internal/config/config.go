// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Upload backends.
const (
	UploadDisk = "disk"
	UploadS3   = "s3"
)

// DevJWTSecret is the signing secret used when JWT_SECRET is unset.
// Production refuses to start with it.
const DevJWTSecret = "inkpost-dev-secret-change-me"

const devDBPassword = "changeme"

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	StoreDriver string

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// MongoDB connection
	MongoURI string
	MongoDB  string

	// Valkey (Redis-compatible). Empty address disables it.
	ValkeyAddr     string
	ValkeyPassword string

	JWTSecret string
	JWTTTL    time.Duration

	// Image uploads
	UploadBackend  string
	UploadDir      string
	UploadMaxBytes int64

	// S3-compatible object storage
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string

	// AuthRateLimit is the number of /auth requests allowed per IP per minute.
	AuthRateLimit int

	// API client settings
	APIURL      string
	SessionFile string
}

// LoadDotEnv loads variables from the given .env files (".env" when none
// are named) into the process environment. Missing files are ignored and
// variables that are already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error for malformed values
// and for insecure defaults in production mode.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "5000"),
		Env:  envOrDefault("APP_ENV", "development"),

		StoreDriver: envOrDefault("STORE_DRIVER", DriverPostgres),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "inkpost"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", devDBPassword),
		DBName:     envOrDefault("POSTGRES_DB", "inkpost"),

		MongoURI: envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  envOrDefault("MONGO_DB", "inkpost"),

		ValkeyAddr:     os.Getenv("VALKEY_ADDR"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		JWTSecret: envOrDefault("JWT_SECRET", DevJWTSecret),

		UploadBackend: envOrDefault("UPLOAD_BACKEND", UploadDisk),
		UploadDir:     envOrDefault("UPLOAD_DIR", "uploads"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),

		APIURL:      envOrDefault("INKPOST_API_URL", "http://localhost:5000/api"),
		SessionFile: os.Getenv("INKPOST_SESSION_FILE"),
	}

	var err error
	if cfg.JWTTTL, err = envDuration("JWT_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.UploadMaxBytes, err = envInt64("UPLOAD_MAX_BYTES", 2<<20); err != nil {
		return nil, err
	}
	rate, err := envInt64("AUTH_RATE_LIMIT", 20)
	if err != nil {
		return nil, err
	}
	cfg.AuthRateLimit = int(rate)

	switch cfg.StoreDriver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be one of postgres, mongo, memory (got %q)", cfg.StoreDriver)
	}
	switch cfg.UploadBackend {
	case UploadDisk:
	case UploadS3:
		if cfg.S3Endpoint == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "" || cfg.S3Bucket == "" {
			return nil, fmt.Errorf("UPLOAD_BACKEND=s3 requires S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY and S3_BUCKET")
		}
	default:
		return nil, fmt.Errorf("UPLOAD_BACKEND must be disk or s3 (got %q)", cfg.UploadBackend)
	}

	if cfg.Env == "production" {
		if cfg.JWTSecret == DevJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		if cfg.StoreDriver == DriverPostgres && cfg.DBPassword == devDBPassword {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer (got %q)", key, v)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 1h or 30m (got %q)", key, v)
	}
	return d, nil
}
