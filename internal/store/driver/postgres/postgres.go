package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"

	"github.com/songzhibin97/adminconsole/pkg/store"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresStore implements the store.Store interface on a key/value table.
type PostgresStore struct {
	db        *sql.DB
	table     string
	keyPrefix string
	ownsDB    bool
}

// New opens a database connection from config.DSN and ensures the table exists.
func New(config *store.Config) (*PostgresStore, error) {
	if config == nil {
		config = store.DefaultConfig()
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: postgres: %v", store.ErrStoreConnectionFailed, err)
	}

	s, err := NewWithDB(db, config.Table, config.KeyPrefix)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewWithDB wraps an existing database handle. The caller keeps ownership of db.
func NewWithDB(db *sql.DB, table, keyPrefix string) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if table == "" {
		table = store.DefaultConfig().Table
	}
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	s := &PostgresStore{db: db, table: table, keyPrefix: keyPrefix}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema() error {
	q := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	key TEXT PRIMARY KEY,
	value BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, s.table)
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("ensure %s schema: %w", s.table, err)
	}
	return nil
}

// getKey returns the full key with prefix
func (s *PostgresStore) getKey(key string) string {
	return store.PrefixedKey(s.keyPrefix, ":", key)
}

// Get retrieves a value by key
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	q := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table)

	var value []byte
	err := s.db.QueryRowContext(ctx, q, s.getKey(key)).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get %s: %w", key, store.ErrKeyNotFound)
		}
		return nil, fmt.Errorf("query key %s: %w", key, err)
	}
	return value, nil
}

// Put stores a value by key
func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	return s.PutAll(ctx, map[string][]byte{key: value})
}

// PutAll upserts every entry inside one transaction
func (s *PostgresStore) PutAll(ctx context.Context, entries map[string][]byte) error {
	for key := range entries {
		if key == "" {
			return store.ErrInvalidKey
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := fmt.Sprintf(`
INSERT INTO %s (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, s.table)
	for key, value := range entries {
		if _, err := tx.ExecContext(ctx, q, s.getKey(key), value); err != nil {
			return fmt.Errorf("upsert key %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Delete removes keys with a single statement
func (s *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = s.getKey(key)
	}

	q := fmt.Sprintf(`DELETE FROM %s WHERE key = ANY($1)`, s.table)
	if _, err := s.db.ExecContext(ctx, q, pq.Array(fullKeys)); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

// Close closes the database handle when the store opened it
func (s *PostgresStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// Health returns the health status of the store
func (s *PostgresStore) Health(ctx context.Context) store.HealthStatus {
	health := store.HealthStatus{
		Status:    store.StatusHealthy,
		Message:   "Postgres store is operational",
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"type":  store.TypePostgres,
			"table": s.table,
		},
	}

	if err := s.db.PingContext(ctx); err != nil {
		health.Status = store.StatusUnhealthy
		health.Message = fmt.Sprintf("Postgres connection failed: %v", err)
		health.Details["error"] = err.Error()
		return health
	}

	stats := s.db.Stats()
	health.Details["open_connections"] = stats.OpenConnections
	health.Details["in_use"] = stats.InUse
	return health
}
