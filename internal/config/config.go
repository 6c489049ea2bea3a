// Package config loads service settings from the environment (and .env in development).
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// devJWTSecret signs tokens for STORE=memory when JWT_SECRET is unset. Never used with postgres.
const devJWTSecret = "dev-secret-change-me"

type Config struct {
	// Server
	Port        string
	LogLevel    string
	MaxUploadMB int

	// Persistence
	Store       string // postgres | memory
	DatabaseURL string
	RedisURL    string // optional; enables the upload-link cache

	// Auth
	JWTSecret     string
	JWTTTL        time.Duration
	AdminEmail    string // seeded when no operator exists yet
	AdminPassword string

	// Archival
	ArchiveRetention     time.Duration
	ArchiveSweepInterval time.Duration

	// Supabase storage
	SupabaseURL       string
	SupabaseKey       string
	SupabaseBucket    string
	SignedURLLifetime time.Duration
}

// Load reads .env if present, then the environment, with defaults.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "3000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 10),

		Store:       strings.ToLower(getEnv("STORE", StorePostgres)),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTTTL:        getEnvDuration("JWT_TTL", 24*time.Hour),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		ArchiveRetention:     getEnvDuration("ARCHIVE_RETENTION", 90*24*time.Hour),
		ArchiveSweepInterval: getEnvDuration("ARCHIVE_SWEEP_INTERVAL", time.Hour),

		SupabaseURL:       getEnv("SUPABASE_URL", ""),
		SupabaseKey:       getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseBucket:    getEnv("SUPABASE_BUCKET", "case-documents"),
		SignedURLLifetime: getEnvDuration("SIGNED_URL_TTL", 5*time.Minute),
	}
	if cfg.JWTSecret == "" && cfg.Store == StoreMemory {
		cfg.JWTSecret = devJWTSecret
	}
	return cfg
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required unless STORE=memory")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("36h") and whole days ("90d").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if days, ok := strings.CutSuffix(v, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			return time.Duration(n) * 24 * time.Hour
		}
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	return fallback
}
