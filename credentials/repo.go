package credentials

import (
	"context"

	cerrors "github.com/jrsteele09/go-delivery-console/internal/errors"
)

// Key names a persisted credential entry. Each key is independently readable and removable.
type Key string

const (
	KeyAccessToken  Key = "accessToken"
	KeyRefreshToken Key = "refreshToken"
	KeyUser         Key = "user"
)

// AllKeys is every key the console persists.
var AllKeys = []Key{KeyAccessToken, KeyRefreshToken, KeyUser}

// ErrNotFound is returned by Repo.Get when the key is absent.
var ErrNotFound = cerrors.ErrNotFound

// Repo is the durable key/value port behind the credential Store.
type Repo interface {
	Get(ctx context.Context, key Key) (string, error)
	Set(ctx context.Context, key Key, value string) error
	Remove(ctx context.Context, keys ...Key) error
}
