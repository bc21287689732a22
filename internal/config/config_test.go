package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "account-service", cfg.App.Name)
	require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	require.Equal(t, 24*time.Hour, cfg.Auth.AccessTokenTTL())
	require.Equal(t, 24*time.Hour, cfg.Auth.VerificationTTL())
	require.Equal(t, time.Hour, cfg.Auth.PasswordResetTTL())
	require.Equal(t, 10, cfg.Auth.BcryptCost)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("AUTH_PASSWORD_RESET_TTL_MINUTES", "15")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_HOURS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.App.Port)
	require.Equal(t, 15*time.Minute, cfg.Auth.PasswordResetTTL())
	require.Equal(t, 2*time.Hour, cfg.Auth.AccessTokenTTL())
}

func TestTTLFallbacks(t *testing.T) {
	auth := AuthConfig{}
	require.Equal(t, 24*time.Hour, auth.AccessTokenTTL())
	require.Equal(t, 24*time.Hour, auth.VerificationTTL())
	require.Equal(t, time.Hour, auth.PasswordResetTTL())
}
