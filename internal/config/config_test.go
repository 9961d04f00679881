package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CMSCRM_JWT_SECRET", "unit-test-secret")
	t.Setenv("CMSCRM_DATABASE_URL", "postgres://localhost/cmscrm_test")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
	require.Equal(t, 5*time.Minute, cfg.StatsCacheTTL)
	require.Equal(t, 100, cfg.RateLimitMax)
	require.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	require.EqualValues(t, 5*1024*1024, cfg.MaxUploadSize)
	require.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CMSCRM_APP_ENV", "production")
	t.Setenv("CMSCRM_APP_PORT", "9090")
	t.Setenv("CMSCRM_TOKEN_TTL", "2h")
	t.Setenv("CMSCRM_STATS_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "production", cfg.AppEnv)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 2*time.Hour, cfg.TokenTTL)
	require.Equal(t, 30*time.Second, cfg.StatsCacheTTL)
	require.False(t, cfg.IsDevelopment())
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("CMSCRM_JWT_SECRET", "")
	t.Setenv("CMSCRM_DATABASE_URL", "postgres://localhost/cmscrm_test")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("CMSCRM_JWT_SECRET", "unit-test-secret")
	t.Setenv("CMSCRM_DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CMSCRM_TOKEN_TTL", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
}

func TestHTTPAddressKeepsExplicitColon(t *testing.T) {
	cfg := Config{AppPort: ":3000"}
	require.Equal(t, ":3000", cfg.HTTPAddress())
}
