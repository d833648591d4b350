package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-delivery-console/console"
	"github.com/rs/zerolog/log"
)

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// PageMiddleware is the standard chain for shell pages. mw runs last, after the browser's console
// is attached to the request.
func (s *Server) PageMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chainedMiddleWare := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.FrameSecurityMiddleware,
		s.ConsoleMiddleware,
	}
	chainedMiddleWare = append(chainedMiddleWare, mw...)
	return chainedMiddleWare
}

// statusRecorder captures the status code written by the handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		event := log.Debug()
		if rec.status >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("Request served")
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("Recovered from panic")
				writePage(w, http.StatusInternalServerError, errorPage("Internal error"))
			}
		}()
		next(w, r)
	}
}

func (s *Server) FrameSecurityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Prevent embedding on other sites
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'self'")
		next(w, r)
	}
}

// ConsoleMiddleware attaches the browser's console to the request, issuing a session cookie on
// first sight. A new console restores any persisted session before the page is served. Signed
// out browsers are served from a console that lives for the request only.
func (s *Server) ConsoleMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := s.sessionID(r)
		if id == "" {
			id = uuid.New().String()
			s.setSessionCookie(w, id)
		}

		c, created, err := s.consoles.getOrCreate(id, func() (*console.Console, error) {
			opts := append([]console.Option{console.WithSessionID(id)}, s.options...)
			return console.New(s.settings, s.repos(id), opts...)
		})
		if err != nil {
			log.Error().Err(err).Str("session", id).Msg("Failed to create console")
			writePage(w, http.StatusInternalServerError, errorPage("Session unavailable"))
			return
		}
		if created {
			// Init outlives the request: a cancelled check would discard the stored session
			authenticated := c.Init(context.WithoutCancel(r.Context()))
			log.Debug().Str("session", id).Bool("authenticated", authenticated).Msg("Console initialised")
			// A rejected stored session is routed by the guard, not by a pending redirect
			_, _ = c.TakeRedirect()
			if !authenticated {
				s.consoles.remove(id, c)
			}
		}

		next(w, r.WithContext(withConsole(r.Context(), c)))
		s.settleConsole(id, c, created)
	}
}

// settleConsole keeps c registered while it is signed in. A signed out console is dropped, and
// torn down when this request built it.
func (s *Server) settleConsole(id string, c *console.Console, owned bool) {
	state := c.Session.Snapshot()
	switch {
	case state.IsAuthenticated:
		if displaced := s.consoles.adopt(id, c); displaced != nil {
			displaced.Teardown()
		}
	case state.IsLoading:
	default:
		s.consoles.remove(id, c)
		if owned {
			c.Teardown()
		}
	}
}

// sessionID returns the session cookie's value when it holds a well formed ID.
func (s *Server) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.env == "PROD", // Only secure in production
		SameSite: http.SameSiteLaxMode,
	})
}
