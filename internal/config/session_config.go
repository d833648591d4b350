package config

import "time"

type Session struct{}

var _ SessionConfig = Session{}

// GetRefreshSkew is how long before access-token expiry a proactive refresh is attempted.
func (Session) GetRefreshSkew() time.Duration {
	return GetEnvDuration("REFRESH_SKEW", 30*time.Second)
}

func (Session) GetSessionCookieName() string {
	return GetEnv("SESSION_COOKIE", "console_session")
}

// GetSessionIdleTimeout is how long a browser console may go unused before the server evicts it.
func (Session) GetSessionIdleTimeout() time.Duration {
	return GetEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute)
}
