package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/redis/go-redis/v9"
)

var _ ledger.CredentialPersistence = (*Redis)(nil)

// Redis mirrors credentials into Redis keys under a prefix.
type Redis struct {
	client redis.UniversalClient
	prefix string
	own    bool
}

// ConnectRedis parses a redis:// URL, connects and pings the server.
func ConnectRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	if url == "" {
		return nil, constants.ErrStoreURLRequired
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	store := NewRedis(client, prefix)
	store.own = true

	return store, nil
}

// NewRedis uses an existing client. The caller keeps ownership of client.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = constants.DefaultRedisPrefix
	}

	return &Redis{client: client, prefix: prefix}
}

// Get returns the value for key, or "" if it is not set.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", constants.ErrEmptyPersistedKey
	}

	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to get credential[%s]: %w", key, err)
	}

	return value, nil
}

// Set stores value under key without expiry.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return constants.ErrEmptyPersistedKey
	}

	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set credential[%s]: %w", key, err)
	}

	return nil
}

// Clear removes key.
func (r *Redis) Clear(ctx context.Context, key string) error {
	if key == "" {
		return constants.ErrEmptyPersistedKey
	}

	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete credential[%s]: %w", key, err)
	}

	return nil
}

// Close closes the client if this store opened it.
func (r *Redis) Close() error {
	if !r.own {
		return nil
	}

	return r.client.Close()
}
