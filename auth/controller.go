package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-delivery-console/api"
	"github.com/jrsteele09/go-delivery-console/credentials"
	"github.com/jrsteele09/go-delivery-console/guard"
	"github.com/jrsteele09/go-delivery-console/sessions"
	"github.com/jrsteele09/go-delivery-console/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const defaultRefreshSkew = 30 * time.Second

// CredentialStore is the persisted half of a session. credentials.Store implements it.
type CredentialStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	User(ctx context.Context) (*users.User, error)
	Token(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, accessToken, refreshToken string, user *users.User) error
	SaveUser(ctx context.Context, user *users.User) error
	Clear(ctx context.Context) error
}

// AuthAPI is the part of the backend the controller talks to. api.Client implements it.
type AuthAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context, refreshToken string) (*api.LoginResponse, error)
	Profile(ctx context.Context) (*users.User, error)
}

// Navigator moves the UI to a location. The controller only uses it after a forced sign-out.
type Navigator interface {
	Navigate(ctx context.Context, location string)
}

type NavigatorFunc func(ctx context.Context, location string)

func (f NavigatorFunc) Navigate(ctx context.Context, location string) { f(ctx, location) }

// Deps holds the controller's required collaborators
type Deps struct {
	Session     *sessions.Session
	Credentials CredentialStore
	API         AuthAPI
}

// Controller runs login, logout, refresh and startup recovery for one session. It is the only
// writer of the session and its credential store.
type Controller struct {
	deps        Deps
	navigator   Navigator
	nowTime     func() time.Time
	refreshSkew time.Duration
	refreshLock sync.Mutex // single flight for token refresh
}

type ControllerOption func(*Controller)

func WithNavigator(n Navigator) ControllerOption {
	return func(c *Controller) {
		c.navigator = n
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.nowTime = nowFunc
	}
}

// WithRefreshSkew sets how long before expiry EnsureFreshToken refreshes
func WithRefreshSkew(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.refreshSkew = d
	}
}

func NewController(deps Deps, options ...ControllerOption) (*Controller, error) {
	if deps.Session == nil {
		return nil, errors.New("[NewController] Session is required")
	}
	if deps.Credentials == nil {
		return nil, errors.New("[NewController] Credentials store is required")
	}
	if deps.API == nil {
		return nil, errors.New("[NewController] API is required")
	}

	c := &Controller{
		deps:        deps,
		nowTime:     time.Now,
		refreshSkew: defaultRefreshSkew,
		navigator: NavigatorFunc(func(_ context.Context, location string) {
			log.Debug().Str("location", location).Msg("No navigator registered")
		}),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Controller) State() sessions.State {
	return c.deps.Session.Snapshot()
}

// Login validates the form, exchanges the credentials and, on success, persists tokens and user and
// publishes an authenticated session. A rejected login leaves the session untouched. A failed
// persist has already emptied the store, so it also ends any previous session.
func (c *Controller) Login(ctx context.Context, email, password string) (*users.User, error) {
	req := api.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := ValidateLogin(req); err != nil {
		return nil, err
	}

	gen, done, err := c.deps.Session.Begin()
	if err != nil {
		return nil, err
	}
	defer done()

	resp, err := c.deps.API.Login(ctx, req)
	if err != nil {
		return nil, loginError(err)
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, fmt.Errorf("login: incomplete response from server")
	}
	if resp.User.Status == users.StatusSuspended || resp.User.Status == users.StatusInactive {
		return nil, ErrAccountSuspended
	}

	err = c.deps.Session.Authenticate(gen, resp.User, resp.AccessToken, func() error {
		return c.deps.Credentials.Save(ctx, resp.AccessToken, resp.RefreshToken, resp.User)
	})
	switch {
	case errors.Is(err, sessions.ErrStaleGeneration), errors.Is(err, sessions.ErrSessionClosed):
		return nil, fmt.Errorf("login: %w", err)
	case err != nil:
		log.Err(err).Str("session", c.deps.Session.ID).Msg("Failed to persist login")
		c.invalidate(ctx, gen, "persist login")
		return nil, fmt.Errorf("login: %w", err)
	}
	log.Info().Str("session", c.deps.Session.ID).Str("userID", resp.User.ID).Str("role", string(resp.User.Role)).Msg("User logged in")
	return resp.User, nil
}

func loginError(err error) error {
	switch api.StatusCode(err) {
	case 400, 401:
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	case 403:
		return fmt.Errorf("%w: %w", ErrAccountSuspended, err)
	}
	if errors.Is(err, ErrNetworkFailure) {
		return err
	}
	return fmt.Errorf("login: %w", err)
}

// Logout notifies the backend best effort, then always clears the session and the credential store.
func (c *Controller) Logout(ctx context.Context) {
	if _, done, err := c.deps.Session.Begin(); err == nil {
		defer done()
	}

	if err := c.deps.API.Logout(ctx); err != nil {
		log.Warn().Err(err).Str("session", c.deps.Session.ID).Msg("Logout notification failed, clearing locally")
	}
	c.clear(ctx, "logout")
}

// RefreshToken exchanges the persisted refresh token for a new pair. Any failure other than being
// superseded by a newer commit ends the session.
func (c *Controller) RefreshToken(ctx context.Context) error {
	c.refreshLock.Lock()
	defer c.refreshLock.Unlock()
	return c.refresh(ctx)
}

func (c *Controller) refresh(ctx context.Context) error {
	gen, done, err := c.deps.Session.Begin()
	if err != nil {
		return err
	}
	defer done()

	refreshToken, err := c.deps.Credentials.RefreshToken(ctx)
	if err != nil {
		c.invalidate(ctx, gen, "no refresh token")
		if errors.Is(err, credentials.ErrNotFound) {
			return fmt.Errorf("refresh: %w: no refresh token", ErrUnauthorized)
		}
		return fmt.Errorf("refresh: %w", err)
	}

	resp, err := c.deps.API.Refresh(ctx, refreshToken)
	if err != nil {
		log.Warn().Err(err).Str("session", c.deps.Session.ID).Msg("Token refresh failed")
		c.invalidate(ctx, gen, "refresh failed")
		return fmt.Errorf("refresh: %w", err)
	}
	if resp.AccessToken == "" || resp.User == nil {
		c.invalidate(ctx, gen, "incomplete refresh response")
		return fmt.Errorf("refresh: %w: incomplete response from server", ErrUnauthorized)
	}

	err = c.deps.Session.Authenticate(gen, resp.User, resp.AccessToken, func() error {
		return c.deps.Credentials.Save(ctx, resp.AccessToken, resp.RefreshToken, resp.User)
	})
	switch {
	case errors.Is(err, sessions.ErrStaleGeneration):
		return fmt.Errorf("refresh superseded: %w", err)
	case err != nil:
		c.invalidate(ctx, gen, "persist refreshed tokens")
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

// CheckAuth restores the session from the credential store at startup. Both the access token and
// the cached user must be present; otherwise the session is cleared without any network call.
// The token is then confirmed against the profile endpoint and the user replaced by the server's copy.
func (c *Controller) CheckAuth(ctx context.Context) bool {
	gen, done, err := c.deps.Session.Begin()
	if err != nil {
		return false
	}
	defer done()

	token, tokenErr := c.deps.Credentials.AccessToken(ctx)
	_, userErr := c.deps.Credentials.User(ctx)
	if tokenErr != nil || userErr != nil {
		c.invalidate(ctx, gen, "no stored session")
		return false
	}

	profile, err := c.deps.API.Profile(ctx)
	if err != nil {
		log.Info().Err(err).Str("session", c.deps.Session.ID).Msg("Stored session rejected")
		c.invalidate(ctx, gen, "profile check failed")
		return false
	}
	if profile.IsSuspended() {
		log.Info().Str("session", c.deps.Session.ID).Str("userID", profile.ID).Msg("Stored session belongs to a suspended account")
		c.invalidate(ctx, gen, "account suspended")
		return false
	}

	err = c.deps.Session.Authenticate(gen, profile, token, func() error {
		return c.deps.Credentials.SaveUser(ctx, profile)
	})
	switch {
	case errors.Is(err, sessions.ErrStaleGeneration):
		return c.deps.Session.Snapshot().IsAuthenticated
	case err != nil:
		log.Err(err).Str("session", c.deps.Session.ID).Msg("Failed to restore session")
		c.invalidate(ctx, gen, "persist profile")
		return false
	}
	return true
}

// EnsureFreshToken refreshes when the stored access token expires within the refresh skew.
// Tokens without an expiry are left alone.
func (c *Controller) EnsureFreshToken(ctx context.Context) error {
	c.refreshLock.Lock()
	defer c.refreshLock.Unlock()

	tok, err := c.deps.Credentials.Token(ctx)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return nil
		}
		return err
	}
	if tok.Expiry.IsZero() || c.nowTime().Add(c.refreshSkew).Before(tok.Expiry) {
		return nil
	}
	return c.refresh(ctx)
}

// HandleUnauthorized coordinates the API client's 401 signal: it ends the session and sends the
// UI to the sign-in page. The client raises the signal once per rejected response.
func (c *Controller) HandleUnauthorized(ctx context.Context, uerr *api.UnauthorizedError) {
	ev := log.Info().Str("session", c.deps.Session.ID)
	if uerr != nil {
		ev = ev.Str("method", uerr.Method).Str("path", uerr.Path)
	}
	ev.Msg("Session rejected by API, signing out")

	c.clear(ctx, "unauthorized")
	c.navigator.Navigate(ctx, guard.RouteLogin)
}

func (c *Controller) clear(ctx context.Context, reason string) {
	if err := c.deps.Session.Clear(c.purge(ctx)); err != nil {
		log.Err(err).Str("session", c.deps.Session.ID).Str("reason", reason).Msg("Failed to purge stored credentials")
	}
}

func (c *Controller) invalidate(ctx context.Context, gen uint64, reason string) {
	if _, err := c.deps.Session.Invalidate(gen, c.purge(ctx)); err != nil {
		log.Err(err).Str("session", c.deps.Session.ID).Str("reason", reason).Msg("Failed to purge stored credentials")
	}
}

// purge outlives a cancelled caller: local sign-out must complete.
func (c *Controller) purge(ctx context.Context) func() error {
	return func() error {
		return c.deps.Credentials.Clear(context.WithoutCancel(ctx))
	}
}
