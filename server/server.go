package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-delivery-console/console"
	"github.com/jrsteele09/go-delivery-console/internal/config"
	"github.com/rs/zerolog/log"
)

type ServerConfig interface {
	config.EnvConfig
	config.SessionConfig
}

// Server is the navigation shell. Each browser, identified by a cookie, gets its own console.
type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	cookieName string
	mux        *http.ServeMux
	routes     []string
	settings   console.Settings
	repos      console.RepoFactory
	consoles   *consoleRegistry
	options    []console.Option

	idleTimeout time.Duration
	stop        chan struct{}
	closeOnce   sync.Once
}

type Option func(*Server)

// WithConsoleOptions applies opts to every console the server creates.
func WithConsoleOptions(opts ...console.Option) Option {
	return func(s *Server) {
		s.options = append(s.options, opts...)
	}
}

// WithIdleTimeout overrides how long a console may go unused before it is evicted.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.idleTimeout = d
	}
}

func New(cfg ServerConfig, settings console.Settings, repos console.RepoFactory, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is required")
	}
	if repos == nil {
		return nil, errors.New("[server.New] repo factory is required")
	}
	if settings.APIBaseURL == "" {
		return nil, errors.New("[server.New] API base URL is required")
	}

	s := &Server{
		env:        cfg.GetEnv(),
		cookieName: cfg.GetSessionCookieName(),
		mux:        http.NewServeMux(),
		settings:   settings,
		repos:      repos,
		consoles:   newConsoleRegistry(),

		idleTimeout: cfg.GetSessionIdleTimeout(),
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()
	if s.idleTimeout > 0 {
		go s.evictIdle()
	}
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Close stops eviction and tears down every console. Persisted credentials are kept.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.stop) })
	for _, c := range s.consoles.drain() {
		c.Teardown()
	}
}

// evictIdle tears down consoles that have not served a request within the idle timeout. An evicted
// browser is restored from the credential store on its next request.
func (s *Server) evictIdle() {
	ticker := time.NewTicker(max(s.idleTimeout/2, 10*time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			evicted := s.consoles.sweep(s.idleTimeout)
			for _, c := range evicted {
				c.Teardown()
			}
			if len(evicted) > 0 {
				log.Debug().Int("evicted", len(evicted)).Int("live", s.consoles.len()).Msg("Evicted idle consoles")
			}
		}
	}
}

// Sessions is the number of live browser consoles.
func (s *Server) Sessions() int {
	return s.consoles.len()
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("Route registered")
	}
}
