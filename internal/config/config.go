package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	StoreConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

// APIConfig describes how the remote delivery API is reached.
type APIConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
}

// StoreConfig selects and configures the persisted credential store.
type StoreConfig interface {
	GetCredentialBackend() string
	GetSQLitePath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type SessionConfig interface {
	GetRefreshSkew() time.Duration
	GetSessionCookieName() string
	GetSessionIdleTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	API
	Store
	Session
}

func New() Config {
	return mainConfig{}
}
