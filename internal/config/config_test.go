package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.SSO.TokenExpiry)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.Expiry)
	assert.Equal(t, "session", cfg.Session.CookieName)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 5, cfg.Auth.MaxFailedLogins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.com, https://b.com,")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("SSO_TOKEN_EXPIRY", "30m")
	t.Setenv("APP_BASE_URL", "https://manager.caleidoscopio.app/")
	t.Setenv("DB_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com", "https://b.com"}, cfg.Server.CORSAllowedOrigins)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.SSO.TokenExpiry)
	assert.Equal(t, "https://manager.caleidoscopio.app", cfg.Server.AppBaseURL)
	assert.Equal(t, "memory", cfg.Database.Driver)
}

func TestValidate_ProductionSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SSO_TOKEN_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSO_TOKEN_SECRET")
}

func TestValidate_UnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}
