package console

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-delivery-console/credentials"
	"github.com/jrsteele09/go-delivery-console/credentials/redisrepo"
	"github.com/jrsteele09/go-delivery-console/credentials/repofake"
	"github.com/jrsteele09/go-delivery-console/credentials/sqliterepo"
	"github.com/jrsteele09/go-delivery-console/internal/config"
	"github.com/rs/zerolog/log"
)

// RepoFactory returns the credential repo for a namespace. Repeated calls with the same namespace
// see the same data.
type RepoFactory func(namespace string) credentials.Repo

// OpenRepos opens the configured credential backend. The returned func releases it.
func OpenRepos(ctx context.Context, cfg config.StoreConfig) (RepoFactory, func() error, error) {
	switch backend := cfg.GetCredentialBackend(); backend {
	case config.BackendRedis:
		client, err := redisrepo.NewClient(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB())
		if err != nil {
			return nil, nil, err
		}
		base, err := redisrepo.New(client, sqliterepo.DefaultNamespace)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.GetRedisAddr()).Msg("Using redis credential store")
		return func(ns string) credentials.Repo { return base.WithNamespace(ns) }, client.Close, nil

	case config.BackendMemory:
		log.Warn().Msg("Using in-memory credential store, sessions will not survive a restart")
		return MemoryRepos(), func() error { return nil }, nil

	case config.BackendSQLite:
		db, err := sqliterepo.Open(cfg.GetSQLitePath())
		if err != nil {
			return nil, nil, err
		}
		base, err := sqliterepo.New(db, sqliterepo.DefaultNamespace)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info().Str("path", cfg.GetSQLitePath()).Msg("Using sqlite credential store")
		return func(ns string) credentials.Repo { return base.WithNamespace(ns) }, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown credential backend %q", backend)
	}
}

// MemoryRepos keeps one in-memory repo per namespace.
func MemoryRepos() RepoFactory {
	return NewMemoryStore().Repo
}

// MemoryStore holds in-memory credential repos by namespace. A namespace only takes memory while
// it holds at least one key.
type MemoryStore struct {
	lock  sync.Mutex
	repos map[string]*repofake.FakeCredentialRepo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{repos: make(map[string]*repofake.FakeCredentialRepo)}
}

// Repo returns the repo for ns. Repeated calls with the same namespace see the same data.
func (m *MemoryStore) Repo(ns string) credentials.Repo {
	return memoryRepo{store: m, namespace: ns}
}

// Namespaces is the number of namespaces holding credentials.
func (m *MemoryStore) Namespaces() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.repos)
}

type memoryRepo struct {
	store     *MemoryStore
	namespace string
}

func (r memoryRepo) Get(ctx context.Context, key credentials.Key) (string, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()
	repo, ok := r.store.repos[r.namespace]
	if !ok {
		return "", credentials.ErrNotFound
	}
	return repo.Get(ctx, key)
}

func (r memoryRepo) Set(ctx context.Context, key credentials.Key, value string) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()
	repo, ok := r.store.repos[r.namespace]
	if !ok {
		repo = repofake.NewFakeCredentialRepo()
		r.store.repos[r.namespace] = repo
	}
	return repo.Set(ctx, key, value)
}

func (r memoryRepo) Remove(ctx context.Context, keys ...credentials.Key) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()
	repo, ok := r.store.repos[r.namespace]
	if !ok {
		return nil
	}
	if err := repo.Remove(ctx, keys...); err != nil {
		return err
	}
	if repo.Len() == 0 {
		delete(r.store.repos, r.namespace)
	}
	return nil
}
