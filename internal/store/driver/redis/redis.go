package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/songzhibin97/adminconsole/pkg/store"
)

// RedisStore implements the store.Store interface using Redis
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	config    *store.Config
}

// New creates a new Redis store instance
func New(config *store.Config) (*RedisStore, error) {
	if config == nil {
		config = store.DefaultConfig()
	}

	if config.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opts := &redis.Options{
		Addr:     config.Address,
		Username: config.Username,
		Password: config.Password,
		DB:       config.Database,
	}

	if config.Timeout > 0 {
		opts.DialTimeout = config.Timeout
		opts.ReadTimeout = config.Timeout
		opts.WriteTimeout = config.Timeout
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis %s: %v", store.ErrStoreConnectionFailed, config.Address, err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: config.KeyPrefix,
		config:    config,
	}, nil
}

// getKey returns the full key with prefix
func (rs *RedisStore) getKey(key string) string {
	return store.PrefixedKey(rs.keyPrefix, ":", key)
}

// Get retrieves a value by key
func (rs *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := rs.client.Get(ctx, rs.getKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("get %s: %w", key, store.ErrKeyNotFound)
		}
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return result, nil
}

// Put stores a value by key without expiry
func (rs *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	if err := rs.client.Set(ctx, rs.getKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// PutAll writes every entry inside a MULTI/EXEC transaction
func (rs *RedisStore) PutAll(ctx context.Context, entries map[string][]byte) error {
	for key := range entries {
		if key == "" {
			return store.ErrInvalidKey
		}
	}

	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(ctx, rs.getKey(key), value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set %d keys: %w", len(entries), err)
	}
	return nil
}

// Delete removes keys with a single DEL command
func (rs *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = rs.getKey(key)
	}

	if err := rs.client.Del(ctx, fullKeys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys %s: %w", strings.Join(keys, ", "), err)
	}
	return nil
}

// Close closes the store connection and releases resources
func (rs *RedisStore) Close() error {
	if rs.client != nil {
		return rs.client.Close()
	}
	return nil
}

// Health returns the health status of the store
func (rs *RedisStore) Health(ctx context.Context) store.HealthStatus {
	health := store.HealthStatus{
		Status:    store.StatusHealthy,
		Message:   "Redis store is operational",
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"type":     store.TypeRedis,
			"address":  rs.config.Address,
			"database": rs.config.Database,
		},
	}

	if err := rs.client.Ping(ctx).Err(); err != nil {
		health.Status = store.StatusUnhealthy
		health.Message = fmt.Sprintf("Redis connection failed: %v", err)
		health.Details["error"] = err.Error()
		return health
	}

	if info, err := rs.client.Info(ctx, "server").Result(); err == nil {
		health.Details["server_info"] = parseRedisInfo(info)
	}

	return health
}

// parseRedisInfo parses Redis INFO command output into a map
func parseRedisInfo(info string) map[string]string {
	result := make(map[string]string)
	for _, line := range strings.FieldsFunc(info, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if line == "" || line[0] == '#' {
			continue
		}
		if key, value, ok := strings.Cut(line, ":"); ok {
			result[key] = value
		}
	}
	return result
}
