package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		// t.Setenv sets the environment variable for the duration of the test
		// and automatically restores it afterwards.
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "5433")
		t.Setenv("APP_PORT", "8080")
		t.Setenv("APP_ENV", "test")
		t.Setenv("JWT_SECRET", "jwt_secret")
		t.Setenv("ACCESS_TOKEN_TTL", "15m")
		t.Setenv("ORDER_RATE_LIMIT", "3")

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "5433", cfg.DBPort)
		assert.Equal(t, "8080", cfg.AppPort)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, "jwt_secret", cfg.JWTSecret)
		assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
		assert.Equal(t, 3, cfg.OrderRateLimit)
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("JWT_SECRET", "jwt_secret")

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
		assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
		assert.Equal(t, 10, cfg.OrderRateLimit)
		assert.Equal(t, time.Minute, cfg.OrderRateWindow)
		assert.Equal(t, 50, cfg.SearchRateLimit)
		assert.Equal(t, 100, cfg.RateLimitRequests)
	})

	t.Run("Missing DB host", func(t *testing.T) {
		t.Setenv("DB_HOST", "")

		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("Missing secret in production", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "")

		_, err := LoadConfig()
		assert.ErrorIs(t, err, ErrMissingSecret)
	})

	t.Run("Generated secret outside production", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("APP_ENV", "development")
		t.Setenv("JWT_SECRET", "")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.NotEmpty(t, cfg.JWTSecret)
	})
}
