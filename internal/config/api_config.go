package config

import "time"

const (
	apiURLEnvVar     = "API_URL"
	apiTimeoutEnvVar = "API_TIMEOUT"

	DefaultAPIBaseURL     = "http://localhost:8081/api/v1"
	DefaultRequestTimeout = 10 * time.Second
)

type API struct{}

var _ APIConfig = API{}

func (API) GetAPIBaseURL() string {
	return GetEnv(apiURLEnvVar, DefaultAPIBaseURL)
}

func (API) GetRequestTimeout() time.Duration {
	return GetEnvDuration(apiTimeoutEnvVar, DefaultRequestTimeout)
}
