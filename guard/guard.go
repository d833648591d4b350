// Package guard decides whether a view may be rendered for the current session.
package guard

import (
	"github.com/jrsteele09/go-delivery-console/sessions"
	"github.com/jrsteele09/go-delivery-console/users"
)

type Verdict int

const (
	// VerdictLoading means an auth operation is in flight; show a loading indicator and decide later.
	VerdictLoading Verdict = iota
	VerdictRender
	VerdictRedirectToLogin
	VerdictRedirectToUnauthorized
	// VerdictRedirect sends the caller to Decision.Location (the root route uses it).
	VerdictRedirect
	VerdictNotFound
)

func (v Verdict) String() string {
	switch v {
	case VerdictLoading:
		return "LOADING"
	case VerdictRender:
		return "RENDER"
	case VerdictRedirectToLogin:
		return "REDIRECT_TO_LOGIN"
	case VerdictRedirectToUnauthorized:
		return "REDIRECT_TO_UNAUTHORIZED"
	case VerdictRedirect:
		return "REDIRECT"
	case VerdictNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// Evaluate applies the protected-route decision table. An empty requiredRole admits any role.
// It never redirects while the session is loading.
func Evaluate(state sessions.State, requiredRole users.RoleType) Verdict {
	switch {
	case state.IsLoading:
		return VerdictLoading
	case !state.IsAuthenticated:
		return VerdictRedirectToLogin
	case !state.User.HasRole(requiredRole):
		return VerdictRedirectToUnauthorized
	default:
		return VerdictRender
	}
}
