package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultAddr = "localhost:6379"
	dialTimeout = 5 * time.Second
)

// compareAndDelete deletes the key only while it still holds the expected
// value. Run server-side so a lease that expires and is re-acquired
// between the read and the delete is never removed from under the new
// holder.
var compareAndDelete = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// ValkeyStore backs the invocation lease with a shared Valkey (or Redis)
// instance.
type ValkeyStore struct {
	client *redis.Client
}

// ValkeyConfig holds the connection settings for the lease store.
type ValkeyConfig struct {
	Addr     string // host:port, defaults to localhost:6379
	Password string // optional
	DB       int    // database number
}

func (cfg ValkeyConfig) options() *redis.Options {
	addr := cfg.Addr
	if addr == "" {
		addr = defaultAddr
	}
	return &redis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	}
}

// NewValkeyStore connects to Valkey and verifies the connection before
// handing the store out; a daemon with an unreachable lease store must
// fail at startup, not at the first trigger.
func NewValkeyStore(cfg ValkeyConfig) (*ValkeyStore, error) {
	opts := cfg.options()
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("kv: connecting to valkey at %s: %w", opts.Addr, err)
	}

	return &ValkeyStore{client: client}, nil
}

// Set stores a value with the given key and TTL.
func (s *ValkeyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a value by key.
func (s *ValkeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

// Delete removes a key.
func (s *ValkeyStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// SetNX sets a value only if the key doesn't exist.
func (s *ValkeyStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

// CompareAndDelete removes the key only if it currently holds value.
func (s *ValkeyStore) CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error) {
	deleted, err := compareAndDelete.Run(ctx, s.client, []string{key}, value).Int()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}

// Close closes the connection to Valkey.
func (s *ValkeyStore) Close() error {
	return s.client.Close()
}

// Ensure ValkeyStore implements Store.
var _ Store = (*ValkeyStore)(nil)
