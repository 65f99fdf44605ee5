package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore holds canonical records and seed lists in Redis.
// It is the default source for hydration and initial population.
type RedisStore struct {
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedisStore creates a new Redis-based store with its own client.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisStore{
		client: client,
		owned:  true,
	}, nil
}

// NewRedisStoreFromClient wraps an existing client. Keys are prefixed with prefix.
// Close leaves the client open.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// WithPrefix returns a store sharing rs's client, with keys prefixed by prefix.
func (rs *RedisStore) WithPrefix(prefix string) *RedisStore {
	return &RedisStore{client: rs.client, prefix: prefix, owned: rs.owned}
}

// Get retrieves a value from Redis.
func (rs *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := rs.client.Get(ctx, rs.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

// Set stores a value in Redis.
func (rs *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return rs.client.Set(ctx, rs.prefix+key, value, 0).Err()
}

// Delete removes a value from Redis.
func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	return rs.client.Del(ctx, rs.prefix+key).Err()
}

// Close closes the Redis connection when the store created it.
func (rs *RedisStore) Close() error {
	if !rs.owned {
		return nil
	}
	return rs.client.Close()
}

// GetClient returns the underlying Redis client.
func (rs *RedisStore) GetClient() *redis.Client {
	return rs.client
}

// ErrNotFound is returned when a key is not found.
var ErrNotFound = errors.New("key not found in redis")
