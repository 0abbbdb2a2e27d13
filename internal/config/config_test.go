package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                "production",
		Port:               8080,
		DatabaseURL:        "postgres://localhost/gate",
		RedisURL:           "rediss://localhost:6379",
		AdminPasswordHash:  "$2b$10$abcdefghijklmnopqrstuvwxyz0123456789abcdefghijklmnopq",
		AdminSessionSecret: "an-admin-secret-that-is-long-enough-123",
		UserSessionSecret:  "a-user-secret-that-is-long-enough-4567",
	}
}

func TestValidate_Production(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate(true))
}

func TestValidate_RejectsPlaintextAdminPassword(t *testing.T) {
	cfg := validConfig()
	cfg.AdminPasswordHash = "hunter2"

	err := cfg.Validate(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bcrypt")
}

func TestValidate_RejectsShortSecretsInProduction(t *testing.T) {
	cfg := validConfig()
	cfg.UserSessionSecret = "short"

	err := cfg.Validate(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USER_SESSION_SECRET")
}

func TestValidate_RejectsKnownWeakSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.AdminSessionSecret = "change-me"

	err := cfg.Validate(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_SESSION_SECRET")
}

func TestValidate_DevelopmentIsLenient(t *testing.T) {
	cfg := &Config{
		Env:         "development",
		DatabaseURL: "postgres://localhost/gate",
		RedisURL:    "redis://localhost:6379",
	}
	assert.NoError(t, cfg.Validate(false))
}

func TestDurationHelpers(t *testing.T) {
	cfg := &Config{
		MagicLinkTTLMinutes:    15,
		SessionIdleTimeoutMins: 30,
		PaymentPendingTTLMins:  60,
		Port:                   9090,
	}

	assert.Equal(t, 15*time.Minute, cfg.MagicLinkTTL())
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout())
	assert.Equal(t, time.Hour, cfg.PaymentPendingTTL())
	assert.Equal(t, ":9090", cfg.Addr())
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{Env: "production"}).IsProduction())
	assert.False(t, (&Config{Env: "development"}).IsProduction())
}
