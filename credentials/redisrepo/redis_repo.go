package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-delivery-console/credentials"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "console:credentials"

var _ credentials.Repo = (*RedisRepo)(nil)

// RedisRepo stores credentials as plain string keys of the form console:credentials:<namespace>:<key>.
type RedisRepo struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

type Option func(*RedisRepo)

// WithTTL expires every written key after ttl. Zero keeps keys until removed.
func WithTTL(ttl time.Duration) Option {
	return func(r *RedisRepo) {
		r.ttl = ttl
	}
}

// NewClient connects to addr and verifies the connection with a PING.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func New(client redis.UniversalClient, namespace string, opts ...Option) (*RedisRepo, error) {
	if client == nil {
		return nil, errors.New("redisrepo: client is nil")
	}
	if strings.TrimSpace(namespace) == "" {
		return nil, errors.New("redisrepo: namespace is required")
	}
	r := &RedisRepo{client: client, namespace: namespace}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// WithNamespace returns a repo sharing the client but scoped to another namespace.
func (r *RedisRepo) WithNamespace(namespace string) *RedisRepo {
	return &RedisRepo{client: r.client, namespace: namespace, ttl: r.ttl}
}

func (r *RedisRepo) Get(ctx context.Context, key credentials.Key) (string, error) {
	value, err := r.client.Get(ctx, r.redisKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", credentials.ErrNotFound
		}
		return "", fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	return value, nil
}

func (r *RedisRepo) Set(ctx context.Context, key credentials.Key, value string) error {
	if err := r.client.Set(ctx, r.redisKey(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

func (r *RedisRepo) Remove(ctx context.Context, keys ...credentials.Key) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		redisKeys = append(redisKeys, r.redisKey(k))
	}
	if err := r.client.Del(ctx, redisKeys...).Err(); err != nil {
		return fmt.Errorf("failed to delete credentials from redis: %w", err)
	}
	return nil
}

func (r *RedisRepo) redisKey(key credentials.Key) string {
	return keyPrefix + ":" + r.namespace + ":" + string(key)
}
