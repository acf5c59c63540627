package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.True(t, cfg.Server.RateLimit.Enabled)
	require.Equal(t, time.Minute, cfg.Server.RateLimit.Window)

	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/voicedeck.sqlite", cfg.Database.Path)

	require.Equal(t, time.Duration(0), cfg.Cache.DefaultTTL)
	require.Equal(t, 5*time.Minute, cfg.Cache.SweepInterval)

	require.Equal(t, "jwt", cfg.Auth.Provider)
	require.Equal(t, "anonymous", cfg.Auth.OnDirectoryError)
	require.True(t, cfg.Directory.InvalidateOnUpdate)

	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)

	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@hourly", cfg.Maintenance.KeyExpirySchedule)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("VOICEDECK_SERVER_PORT", "9100")
	t.Setenv("VOICEDECK_AUTH_PROVIDER", "oidc")
	t.Setenv("VOICEDECK_AUTH_OIDC_ISSUER", "https://issuer.example.com")
	t.Setenv("VOICEDECK_AUTH_ON_DIRECTORY_ERROR", "fail")
	t.Setenv("VOICEDECK_DIRECTORY_INVALIDATE_ON_UPDATE", "false")
	t.Setenv("VOICEDECK_CACHE_SWEEP_INTERVAL", "30s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "oidc", cfg.Auth.Provider)
	require.Equal(t, "https://issuer.example.com", cfg.Auth.OIDC.Issuer)
	require.Equal(t, "fail", cfg.Auth.OnDirectoryError)
	require.False(t, cfg.Directory.InvalidateOnUpdate)
	require.Equal(t, 30*time.Second, cfg.Cache.SweepInterval)
}
