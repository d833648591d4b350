package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jrsteele09/go-delivery-console/api"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountSuspended   = errors.New("account suspended or inactive")
	ErrUnauthorized       = api.ErrUnauthorized
	ErrNetworkFailure     = api.ErrNetworkFailure
	ErrValidationFailure  = errors.New("validation failed")
)

// ValidationError carries one message per rejected form field. It matches ErrValidationFailure.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailure
}

// ErrorKind is the category a UI collaborator renders a message for.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInvalidCredentials
	KindAccountSuspended
	KindUnauthorized
	KindNetworkFailure
	KindValidationFailure
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindAccountSuspended:
		return "AccountSuspended"
	case KindUnauthorized:
		return "Unauthorized"
	case KindNetworkFailure:
		return "NetworkFailure"
	case KindValidationFailure:
		return "ValidationFailure"
	default:
		return "Unknown"
	}
}

// Kind categorises err. Login failures wrap the underlying 401, so credential errors are checked first.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidationFailure):
		return KindValidationFailure
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrAccountSuspended):
		return KindAccountSuspended
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNetworkFailure):
		return KindNetworkFailure
	default:
		return KindUnknown
	}
}
