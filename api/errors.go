package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNetworkFailure = errors.New("network failure")
)

// StatusError is a non-2xx answer other than 401.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// UnauthorizedError is the signal raised for a 401 answer. It matches ErrUnauthorized.
type UnauthorizedError struct {
	Method  string
	Path    string
	Message string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("%s %s: unauthorized: %s", e.Method, e.Path, e.Message)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// NetworkError covers timeouts, connection failures and an open circuit. It matches ErrNetworkFailure.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network failure: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetworkFailure
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an HTTP answer.
func StatusCode(err error) int {
	var unauthorized *UnauthorizedError
	if errors.As(err, &unauthorized) {
		return http.StatusUnauthorized
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
