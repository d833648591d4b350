package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-delivery-console/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Store is the typed view over a Repo used by the auth controller and the API client.
type Store struct {
	repo Repo
}

func NewStore(repo Repo) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("[NewStore] repo is required")
	}
	return &Store{repo: repo}, nil
}

func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.nonEmpty(ctx, KeyAccessToken)
}

func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.nonEmpty(ctx, KeyRefreshToken)
}

// User returns the cached profile. A cached value that cannot be decoded is treated as absent.
func (s *Store) User(ctx context.Context) (*users.User, error) {
	raw, err := s.nonEmpty(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	var u users.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		log.Warn().Err(err).Msg("Discarding undecodable cached user")
		return nil, ErrNotFound
	}
	return &u, nil
}

// Token returns the persisted credentials as an oauth2 bearer token. Expiry is taken from the
// access token's exp claim when it is a JWT and left zero otherwise.
func (s *Store) Token(ctx context.Context) (*oauth2.Token, error) {
	access, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	refresh, err := s.RefreshToken(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	tok := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}
	if exp, ok := TokenExpiry(access); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

// Save persists a complete credential set. If any write fails the keys written so far are removed,
// so a failed save never leaves a partial session behind.
func (s *Store) Save(ctx context.Context, accessToken, refreshToken string, user *users.User) error {
	if accessToken == "" {
		return fmt.Errorf("[Store.Save] access token is required")
	}
	if err := s.saveAll(ctx, accessToken, refreshToken, user); err != nil {
		if rmErr := s.repo.Remove(ctx, AllKeys...); rmErr != nil {
			log.Err(rmErr).Msg("Failed to roll back partial credential write")
		}
		return err
	}
	return nil
}

func (s *Store) saveAll(ctx context.Context, accessToken, refreshToken string, user *users.User) error {
	if err := s.SaveTokens(ctx, accessToken, refreshToken); err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return s.SaveUser(ctx, user)
}

// SaveTokens writes the token pair. An empty refresh token removes any stored one.
func (s *Store) SaveTokens(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.repo.Set(ctx, KeyAccessToken, accessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if refreshToken == "" {
		return s.repo.Remove(ctx, KeyRefreshToken)
	}
	if err := s.repo.Set(ctx, KeyRefreshToken, refreshToken); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *Store) SaveUser(ctx context.Context, user *users.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.repo.Set(ctx, KeyUser, string(raw)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

// Clear removes every persisted key.
func (s *Store) Clear(ctx context.Context) error {
	return s.repo.Remove(ctx, AllKeys...)
}

func (s *Store) nonEmpty(ctx context.Context, key Key) (string, error) {
	v, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// TokenExpiry reads the exp claim of a JWT access token without verifying its signature.
// The console is not the audience that validates tokens; it only needs to know when to refresh.
func TokenExpiry(accessToken string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
