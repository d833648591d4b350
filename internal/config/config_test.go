package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-delivery-console/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, v := range []string{"PORT", "APP_NAME", "ENV", "LOG_LEVEL", "API_URL", "API_TIMEOUT", "CREDENTIAL_STORE", "REDIS_DB", "REFRESH_SKEW", "SESSION_COOKIE", "SESSION_IDLE_TIMEOUT"} {
		t.Setenv(v, "")
	}
	c := config.New()

	require.Equal(t, ":3000", c.GetPort())
	require.Equal(t, "Delivery Console", c.GetAppName())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "info", c.GetLogLevel())
	require.Equal(t, config.DefaultAPIBaseURL, c.GetAPIBaseURL())
	require.Equal(t, 10*time.Second, c.GetRequestTimeout())
	require.Equal(t, config.BackendSQLite, c.GetCredentialBackend())
	require.Equal(t, 0, c.GetRedisDB())
	require.Equal(t, 30*time.Second, c.GetRefreshSkew())
	require.Equal(t, "console_session", c.GetSessionCookieName())
	require.Equal(t, 30*time.Minute, c.GetSessionIdleTimeout())
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("API_URL", "https://api.example.com/v1")
	t.Setenv("API_TIMEOUT", "2s")
	t.Setenv("CREDENTIAL_STORE", "REDIS")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SESSION_IDLE_TIMEOUT", "5m")
	c := config.New()

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "https://api.example.com/v1", c.GetAPIBaseURL())
	require.Equal(t, 2*time.Second, c.GetRequestTimeout())
	require.Equal(t, config.BackendRedis, c.GetCredentialBackend())
	require.Equal(t, 3, c.GetRedisDB())
	require.Equal(t, "debug", c.GetLogLevel())
	require.Equal(t, 5*time.Minute, c.GetSessionIdleTimeout())
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("API_TIMEOUT", "soon")
	t.Setenv("REDIS_DB", "zero")
	t.Setenv("CREDENTIAL_STORE", "floppy")
	t.Setenv("PORT", "8000")
	c := config.New()

	require.Equal(t, config.DefaultRequestTimeout, c.GetRequestTimeout())
	require.Equal(t, 0, c.GetRedisDB())
	require.Equal(t, config.BackendSQLite, c.GetCredentialBackend())
	require.Equal(t, ":8000", c.GetPort())
}
