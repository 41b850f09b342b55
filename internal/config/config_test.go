package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/study-spot-reservation/internal/config"
)

// clearEnv unsets every variable the tests touch so values from the host
// environment do not leak in. t.Setenv registers the restore.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "APP_PORT", "STORAGE_DRIVER", "APP_TIMEZONE",
		"DB_USER", "DB_PASS", "DB_HOST", "DB_PORT", "DB_NAME",
		"JWT_SECRET", "ACCESS_TOKEN_TTL_MIN", "REFRESH_TOKEN_TTL_DAYS", "BCRYPT_COST",
		"RATE_LIMIT_CAPACITY", "RATE_LIMIT_BURST", "RATE_LIMIT_REFILL_EVERY", "RATE_LIMIT_TTL",
		"CACHE_METHODS", "CACHE_TTL", "REDIS_HOST", "REDIS_PORT", "REDIS_ADDR",
		"RABBITMQ_URL", "CORS_ALLOW_ORIGINS", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

// TestLoad_defaults verifies the defaults with only the required values set.
func TestLoad_defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "study_spots")

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, "8080", cfg.App.Port)
	require.Equal(t, config.StorageMySQL, cfg.App.StorageDriver)
	require.Equal(t, "3306", cfg.DB.Port)
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL())
	require.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL())
	require.Equal(t, 60, cfg.RateLimit.Capacity)
	require.Equal(t, map[string]bool{"GET": true}, cfg.Cache.MethodSet())
	require.Equal(t, "localhost:6379", cfg.Redis.Address())
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORS.AllowOrigins)

	loc, err := cfg.App.Location()
	require.NoError(t, err)
	require.Equal(t, time.Local, loc)
}

// TestLoad_overrides verifies that values can be overridden via env vars.
func TestLoad_overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("APP_TIMEZONE", "Europe/Istanbul")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://app.example.com,https://admin.example.com")

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, config.StorageMemory, cfg.App.StorageDriver)
	require.Equal(t, 5, cfg.RateLimit.Capacity)
	require.Equal(t, 1, cfg.RateLimit.RefillTokens)
	require.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	require.Equal(t, 10*time.Second, cfg.RateLimit.TTL, "TTL is raised to five refill intervals")
	require.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Cache.MethodSet())
	require.Equal(t, "cache:6380", cfg.Redis.Address())
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.AllowOrigins)

	loc, err := cfg.App.Location()
	require.NoError(t, err)
	require.Equal(t, "Europe/Istanbul", loc.String())
}

// TestLoad_missingRequired verifies the error names the missing variable.
func TestLoad_missingRequired(t *testing.T) {
	t.Run("jwt secret", func(t *testing.T) {
		clearEnv(t)
		_, err := config.Load()
		require.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("mysql credentials", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "s3cret")
		_, err := config.Load()
		require.ErrorContains(t, err, "DB_USER")
	})

	t.Run("unknown storage driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("STORAGE_DRIVER", "postgres")
		_, err := config.Load()
		require.ErrorContains(t, err, "STORAGE_DRIVER")
	})

	t.Run("bad time zone", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("APP_TIMEZONE", "Mars/Olympus")
		_, err := config.Load()
		require.ErrorContains(t, err, "APP_TIMEZONE")
	})
}
