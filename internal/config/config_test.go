//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	t.Run("should apply defaults on top of the yaml file", func(t *testing.T) {
		p := writeConfig(t, `
database:
  url: postgres://u:p@localhost/db
auth:
  jwt_secret: s3cret
verify:
  store_timeout: 5s
`)
		cfg, err := Load(p, true)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, LegacyCardSalt, cfg.Security.CardSalt)
		assert.Equal(t, 5*time.Second, cfg.Verify.StoreTimeout)
		assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
		assert.Equal(t, "card.verified", cfg.Events.Subject)
		assert.True(t, cfg.Runtime.Dev)
	})

	t.Run("should let environment variables override the file", func(t *testing.T) {
		p := writeConfig(t, `
database:
  url: postgres://file/db
auth:
  jwt_secret: from-file
`)
		t.Setenv("CARDKEY_DATABASE_URL", "postgres://env/db")
		t.Setenv("CARDKEY_VERIFY_RATE_LIMIT_PER_MINUTE", "30")

		cfg, err := Load(p, false)
		require.NoError(t, err)
		assert.Equal(t, "postgres://env/db", cfg.Database.URL)
		assert.Equal(t, 30, cfg.Verify.RateLimitPerMinute)
		assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	})

	t.Run("should work without a config file when env provides required values", func(t *testing.T) {
		t.Setenv("CARDKEY_DATABASE_URL", "postgres://env/db")
		t.Setenv("CARDKEY_AUTH_JWT_SECRET", "x")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), false)
		require.NoError(t, err)
		assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	})

	t.Run("should fail when the database url is missing", func(t *testing.T) {
		p := writeConfig(t, "auth:\n  jwt_secret: x\n")
		_, err := Load(p, false)
		assert.EqualError(t, err, "database.url is required")
	})

	t.Run("should fail when the jwt secret is missing", func(t *testing.T) {
		p := writeConfig(t, "database:\n  url: postgres://x/db\n")
		_, err := Load(p, false)
		assert.EqualError(t, err, "auth.jwt_secret is required")
	})
}
