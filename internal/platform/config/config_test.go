package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRY", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := FromEnv()

	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 10*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.NotEqual(t, cfg.Auth.AccessTokenSecret, cfg.Auth.RefreshTokenSecret)
	assert.True(t, cfg.Auth.CookieSecure)
	assert.Equal(t, 5*time.Minute, cfg.Retention.PurgeInterval)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRY", "5m")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "86400")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("COOKIE_INSECURE", "true")
	t.Setenv("LOCATION_PURGE_INTERVAL", "not-a-duration")

	cfg := FromEnv()

	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Auth.CookieSecure)
	assert.Equal(t, 5*time.Minute, cfg.Retention.PurgeInterval)
}

func TestValidateSigningSecrets(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")

	t.Run("defaults are allowed with in-memory stores", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		cfg := FromEnv()
		assert.True(t, cfg.Auth.UsesDevSecrets())
		require.NoError(t, cfg.Validate())
	})

	t.Run("defaults are refused with postgres", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://waypoint@localhost/waypoint")
		require.ErrorIs(t, FromEnv().Validate(), ErrDevSecrets)
	})

	t.Run("one default secret is enough to refuse", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://waypoint@localhost/waypoint")
		t.Setenv("ACCESS_TOKEN_SECRET", "a-real-access-secret")
		require.ErrorIs(t, FromEnv().Validate(), ErrDevSecrets)
	})

	t.Run("explicit secrets pass", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://waypoint@localhost/waypoint")
		t.Setenv("ACCESS_TOKEN_SECRET", "a-real-access-secret")
		t.Setenv("REFRESH_TOKEN_SECRET", "a-real-refresh-secret")
		cfg := FromEnv()
		assert.False(t, cfg.Auth.UsesDevSecrets())
		require.NoError(t, cfg.Validate())
	})
}
