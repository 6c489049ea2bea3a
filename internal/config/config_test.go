package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE", "ARCHIVE_RETENTION", "ARCHIVE_SWEEP_INTERVAL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 90*24*time.Hour, cfg.ArchiveRetention)
	assert.Equal(t, time.Hour, cfg.ArchiveSweepInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORE", "Memory")
	t.Setenv("ARCHIVE_RETENTION", "30d")
	t.Setenv("ARCHIVE_SWEEP_INTERVAL", "15m")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 30*24*time.Hour, cfg.ArchiveRetention)
	assert.Equal(t, 15*time.Minute, cfg.ArchiveSweepInterval)
}

func TestGetEnvDuration_BadValuesFallBack(t *testing.T) {
	for _, v := range []string{"ninety", "-5d", "xd", "-1h"} {
		t.Setenv("X_DURATION", v)
		assert.Equal(t, time.Minute, getEnvDuration("X_DURATION", time.Minute), v)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("X_INT", "12")
	assert.Equal(t, 12, getEnvInt("X_INT", 1))
	t.Setenv("X_INT", "twelve")
	assert.Equal(t, 1, getEnvInt("X_INT", 1))
}

func TestLoad_JWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	t.Setenv("STORE", "postgres")
	cfg := Load()
	assert.Empty(t, cfg.JWTSecret)
	assert.Error(t, cfg.Validate())

	t.Setenv("STORE", "memory")
	cfg = Load()
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.NoError(t, cfg.Validate())

	t.Setenv("STORE", "postgres")
	t.Setenv("JWT_SECRET", "s3cret")
	cfg = Load()
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.NoError(t, cfg.Validate())
}
