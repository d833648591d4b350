package config

import "strings"

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Store struct{}

var _ StoreConfig = Store{}

// GetCredentialBackend returns one of BackendSQLite, BackendRedis or BackendMemory.
func (Store) GetCredentialBackend() string {
	switch backend := strings.ToLower(GetEnv("CREDENTIAL_STORE", BackendSQLite)); backend {
	case BackendSQLite, BackendRedis, BackendMemory:
		return backend
	default:
		return BackendSQLite
	}
}

func (Store) GetSQLitePath() string {
	return GetEnv("SQLITE_PATH", "./data/credentials.db")
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Store) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}
