package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/go-delivery-console/console"
	"github.com/jrsteele09/go-delivery-console/guard"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyConsole stores the browser's console
	ContextKeyConsole ContextKey = "console"
	// ContextKeyDecision stores the guard decision for the requested page
	ContextKeyDecision ContextKey = "decision"
)

// loadingRetryAfter is how long a browser should wait while its session is being restored
const loadingRetryAfter = 1 * time.Second

func withConsole(ctx context.Context, c *console.Console) context.Context {
	return context.WithValue(ctx, ContextKeyConsole, c)
}

// ConsoleFrom returns the console attached by ConsoleMiddleware.
func ConsoleFrom(ctx context.Context) (*console.Console, bool) {
	c, ok := ctx.Value(ContextKeyConsole).(*console.Console)
	return c, ok
}

func DecisionFrom(ctx context.Context) (guard.Decision, bool) {
	d, ok := ctx.Value(ContextKeyDecision).(guard.Decision)
	return d, ok
}

// RequireRoute resolves the requested path against the browser's session and only lets
// renderable pages through. Must be chained after ConsoleMiddleware.
func (s *Server) RequireRoute() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			c, ok := ConsoleFrom(r.Context())
			if !ok {
				writePage(w, http.StatusInternalServerError, errorPage("Session unavailable"))
				return
			}

			d := c.Resolve(r.URL.Path)
			switch d.Verdict {
			case guard.VerdictRender:
				next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyDecision, d)))

			case guard.VerdictLoading:
				w.Header().Set("Retry-After", strconv.Itoa(int(loadingRetryAfter/time.Second)))
				writePage(w, http.StatusServiceUnavailable, Page{Title: "Loading", Loading: true})

			case guard.VerdictRedirectToLogin, guard.VerdictRedirectToUnauthorized, guard.VerdictRedirect:
				log.Debug().
					Str("path", r.URL.Path).
					Stringer("verdict", d.Verdict).
					Str("location", d.Location).
					Msg("Route redirected")
				redirect(w, r, d.Location)

			default:
				writePage(w, http.StatusNotFound, errorPage("Page not found"))
			}
		}
	}
}
