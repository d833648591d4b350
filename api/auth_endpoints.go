package api

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-delivery-console/users"
)

const (
	PathLogin   = "/auth/login"
	PathLogout  = "/auth/logout"
	PathRefresh = "/auth/refresh"
	PathProfile = "/auth/profile"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResponse is returned by both login and refresh.
type LoginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         *users.User `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, call{method: http.MethodPost, path: PathLogin, body: req, out: &out, credentialExchange: true})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the backend the session is over. A 401 here only confirms that.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodPost, path: PathLogout, credentialExchange: true})
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, call{method: http.MethodPost, path: PathRefresh, body: refreshRequest{RefreshToken: refreshToken}, out: &out, credentialExchange: true})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile validates the bearer token and returns the server's current copy of the user.
func (c *Client) Profile(ctx context.Context) (*users.User, error) {
	var out users.User
	if err := c.Get(ctx, PathProfile, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
