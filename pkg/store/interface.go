package store

import (
	"context"
	"time"
)

// Store defines the key-value operations the console persists its session with.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a value by key. Missing keys return ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores a value by key
	Put(ctx context.Context, key string, value []byte) error

	// PutAll stores every entry in one step. Either all entries are
	// written or none are.
	PutAll(ctx context.Context, entries map[string][]byte) error

	// Delete removes the given keys in one step. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Close closes the store connection
	Close() error

	// Health returns the health status of the store
	Health(ctx context.Context) HealthStatus
}

// HealthStatus represents the health status of a store
type HealthStatus struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Health states reported by drivers.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Store types understood by the factory.
const (
	TypeMemory   = "memory"
	TypeFile     = "file"
	TypeRedis    = "redis"
	TypeEtcd     = "etcd"
	TypePostgres = "postgres"
)

// Config represents the configuration for a store
type Config struct {
	// Type specifies the store type (memory, file, redis, etcd, postgres)
	Type string `yaml:"type" json:"type"`

	// Address is the connection address for redis
	Address string `yaml:"address" json:"address"`

	// Endpoints lists the etcd cluster members
	Endpoints []string `yaml:"endpoints" json:"endpoints"`

	// Database number for stores that support multiple databases
	Database int `yaml:"database" json:"database"`

	// Username for authentication
	Username string `yaml:"username" json:"username"`

	// Password for authentication
	Password string `yaml:"password" json:"password"`

	// Path of the file store document
	Path string `yaml:"path" json:"path"`

	// DSN is the postgres connection string
	DSN string `yaml:"dsn" json:"dsn"`

	// Table holds the postgres key-value rows
	Table string `yaml:"table" json:"table"`

	// Timeout for operations
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// KeyPrefix for all keys stored by this instance
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// DefaultConfig returns a default store configuration
func DefaultConfig() *Config {
	return &Config{
		Type:      TypeMemory,
		Path:      "console-session.json",
		Table:     "console_kv",
		Timeout:   5 * time.Second,
		KeyPrefix: "console",
	}
}

// PrefixedKey joins prefix and key with sep, returning key unchanged when
// prefix is empty.
func PrefixedKey(prefix, sep, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + sep + key
}
