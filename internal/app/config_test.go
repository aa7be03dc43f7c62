package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oncosaferx/authcore/internal/app"
	_ "github.com/oncosaferx/authcore/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "test-secret")
	t.Setenv("AUDIT_SALT", "test-salt")

	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
	require.Equal(t, 8*time.Hour, cfg.SessionMaxAge)
	require.Equal(t, 12*time.Hour, cfg.SessionElevatedMaxAge)
	require.Equal(t, 24*time.Hour, cfg.SessionAdminMaxAge)
	require.Equal(t, 80, cfg.SessionElevatedLevel)
	require.Equal(t, 90, cfg.SessionAdminLevel)
	require.Equal(t, 3, cfg.MaxConcurrentSessions)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "test-secret")
	t.Setenv("AUDIT_SALT", "test-salt")
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_ADMIN_MAX_AGE", "6h")
	t.Setenv("MAX_CONCURRENT_SESSIONS", "5")

	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 6*time.Hour, cfg.SessionAdminMaxAge)
	require.Equal(t, 5, cfg.MaxConcurrentSessions)
}

func TestLoadConfigRequiredSecrets(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "")
	t.Setenv("AUDIT_SALT", "test-salt")

	_, err := app.LoadConfig()
	require.Error(t, err)
}
