package sqliterepo_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-delivery-console/credentials"
	"github.com/jrsteele09/go-delivery-console/credentials/sqliterepo"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T, path string) *sqliterepo.SQLiteRepo {
	t.Helper()
	db, err := sqliterepo.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := sqliterepo.New(db, "")
	require.NoError(t, err)
	return repo
}

func TestSQLiteRepo_SetGetRemove(t *testing.T) {
	repo := setupRepo(t, filepath.Join(t.TempDir(), "creds.db"))
	ctx := context.Background()

	_, err := repo.Get(ctx, credentials.KeyAccessToken)
	require.ErrorIs(t, err, credentials.ErrNotFound)

	require.NoError(t, repo.Set(ctx, credentials.KeyAccessToken, "T1"))
	require.NoError(t, repo.Set(ctx, credentials.KeyAccessToken, "T2"))

	v, err := repo.Get(ctx, credentials.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "T2", v)

	require.NoError(t, repo.Remove(ctx, credentials.AllKeys...))
	_, err = repo.Get(ctx, credentials.KeyAccessToken)
	require.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestSQLiteRepo_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "creds.db")
	ctx := context.Background()

	first := setupRepo(t, path)
	require.NoError(t, first.Set(ctx, credentials.KeyRefreshToken, "R1"))

	second := setupRepo(t, path)
	v, err := second.Get(ctx, credentials.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "R1", v)
}

func TestSQLiteRepo_NamespacesAreIsolated(t *testing.T) {
	repo := setupRepo(t, filepath.Join(t.TempDir(), "creds.db"))
	ctx := context.Background()
	other := repo.WithNamespace("browser-2")

	require.NoError(t, repo.Set(ctx, credentials.KeyAccessToken, "T1"))

	_, err := other.Get(ctx, credentials.KeyAccessToken)
	require.ErrorIs(t, err, credentials.ErrNotFound)

	require.NoError(t, other.Remove(ctx, credentials.AllKeys...))
	v, err := repo.Get(ctx, credentials.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "T1", v)
}

func TestSQLiteRepo_RequiresDB(t *testing.T) {
	_, err := sqliterepo.New(nil, "x")
	require.Error(t, err)

	_, err = sqliterepo.Open(" ")
	require.Error(t, err)
}
