// Package console assembles one principal's session: credential store, session state, API client,
// auth controller and router, with an explicit Init and Teardown.
package console

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-delivery-console/api"
	"github.com/jrsteele09/go-delivery-console/auth"
	"github.com/jrsteele09/go-delivery-console/credentials"
	"github.com/jrsteele09/go-delivery-console/guard"
	"github.com/jrsteele09/go-delivery-console/internal/config"
	"github.com/jrsteele09/go-delivery-console/sessions"
)

type Settings struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	RefreshSkew    time.Duration
	// CircuitBreaker enables a breaker named after the console when set
	CircuitBreaker bool
}

// SettingsFrom reads console settings from the environment configuration.
func SettingsFrom(cfg interface {
	config.APIConfig
	config.SessionConfig
}) Settings {
	return Settings{
		APIBaseURL:     cfg.GetAPIBaseURL(),
		RequestTimeout: cfg.GetRequestTimeout(),
		RefreshSkew:    cfg.GetRefreshSkew(),
	}
}

type Console struct {
	Session *sessions.Session
	Store   *credentials.Store
	Client  *api.Client
	Auth    *auth.Controller
	Router  *guard.Router

	navLock    sync.Mutex
	pending    string
	navigator  auth.Navigator
	httpClient *http.Client
	sessionID  string
}

type Option func(*Console)

func WithSessionID(id string) Option {
	return func(c *Console) {
		c.sessionID = id
	}
}

// WithNavigator forwards forced sign-out navigations to n as well as recording them.
func WithNavigator(n auth.Navigator) Option {
	return func(c *Console) {
		c.navigator = n
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Console) {
		c.httpClient = hc
	}
}

func New(settings Settings, repo credentials.Repo, opts ...Option) (*Console, error) {
	if repo == nil {
		return nil, errors.New("[console.New] credential repo is required")
	}
	c := &Console{Router: guard.NewRouter()}
	for _, opt := range opts {
		opt(c)
	}

	var sessionOpts []sessions.Option
	if c.sessionID != "" {
		sessionOpts = append(sessionOpts, sessions.WithID(c.sessionID))
	}
	c.Session = sessions.New(sessionOpts...)

	store, err := credentials.NewStore(repo)
	if err != nil {
		return nil, err
	}
	c.Store = store

	apiOpts := []api.Option{}
	if settings.RequestTimeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(settings.RequestTimeout))
	}
	if c.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(c.httpClient))
	}
	if settings.CircuitBreaker {
		apiOpts = append(apiOpts, api.WithCircuitBreaker(api.DefaultBreakerSettings("console-"+c.Session.ID)))
	}
	client, err := api.New(settings.APIBaseURL, store, apiOpts...)
	if err != nil {
		return nil, err
	}
	c.Client = client

	authOpts := []auth.ControllerOption{auth.WithNavigator(auth.NavigatorFunc(c.navigate))}
	if settings.RefreshSkew > 0 {
		authOpts = append(authOpts, auth.WithRefreshSkew(settings.RefreshSkew))
	}
	controller, err := auth.NewController(auth.Deps{
		Session:     c.Session,
		Credentials: store,
		API:         client,
	}, authOpts...)
	if err != nil {
		return nil, err
	}
	c.Auth = controller
	client.SetUnauthorizedHandler(controller.HandleUnauthorized)
	return c, nil
}

// Init restores any persisted session and reports whether it is authenticated.
func (c *Console) Init(ctx context.Context) bool {
	return c.Auth.CheckAuth(ctx)
}

// Teardown detaches the 401 coordinator and closes the session. Persisted credentials are kept so
// the next Init can restore them.
func (c *Console) Teardown() {
	c.Client.SetUnauthorizedHandler(nil)
	c.Session.Teardown()
}

func (c *Console) Resolve(path string) guard.Decision {
	return c.Router.Resolve(path, c.Session.Snapshot())
}

// TakeRedirect returns and forgets the location of the last forced sign-out.
func (c *Console) TakeRedirect() (string, bool) {
	c.navLock.Lock()
	defer c.navLock.Unlock()
	loc := c.pending
	c.pending = ""
	return loc, loc != ""
}

func (c *Console) navigate(ctx context.Context, location string) {
	c.navLock.Lock()
	c.pending = location
	c.navLock.Unlock()
	if c.navigator != nil {
		c.navigator.Navigate(ctx, location)
	}
}
