package etcd

import (
	"context"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/songzhibin97/adminconsole/pkg/store"
)

// EtcdStore implements the store.Store interface using etcd
type EtcdStore struct {
	client    *clientv3.Client
	endpoints []string
	keyPrefix string
	timeout   time.Duration
}

// New creates a new etcd store and verifies the first endpoint responds.
func New(config *store.Config) (*EtcdStore, error) {
	if config == nil {
		config = store.DefaultConfig()
	}
	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints are required")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	clientConfig := clientv3.Config{
		Endpoints:   config.Endpoints,
		DialTimeout: timeout,
	}
	if config.Username != "" {
		clientConfig.Username = config.Username
		clientConfig.Password = config.Password
	}

	client, err := clientv3.New(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := client.Status(ctx, config.Endpoints[0]); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: etcd %s: %v", store.ErrStoreConnectionFailed, config.Endpoints[0], err)
	}

	return &EtcdStore{
		client:    client,
		endpoints: config.Endpoints,
		keyPrefix: config.KeyPrefix,
		timeout:   timeout,
	}, nil
}

// getFullKey returns the full key with prefix
func (es *EtcdStore) getFullKey(key string) string {
	return store.PrefixedKey(strings.TrimSuffix(es.keyPrefix, "/"), "/", key)
}

// Get retrieves a value by key
func (es *EtcdStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := es.client.Get(ctx, es.getFullKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("get %s: %w", key, store.ErrKeyNotFound)
	}

	return resp.Kvs[0].Value, nil
}

// Put stores a value by key
func (es *EtcdStore) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	if _, err := es.client.Put(ctx, es.getFullKey(key), string(value)); err != nil {
		return fmt.Errorf("failed to put key %s: %w", key, err)
	}
	return nil
}

// PutAll writes every entry in one transaction
func (es *EtcdStore) PutAll(ctx context.Context, entries map[string][]byte) error {
	ops := make([]clientv3.Op, 0, len(entries))
	for key, value := range entries {
		if key == "" {
			return store.ErrInvalidKey
		}
		ops = append(ops, clientv3.OpPut(es.getFullKey(key), string(value)))
	}

	if _, err := es.client.Txn(ctx).Then(ops...).Commit(); err != nil {
		return fmt.Errorf("failed to put %d keys: %w", len(entries), err)
	}
	return nil
}

// Delete removes keys in one transaction
func (es *EtcdStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ops := make([]clientv3.Op, len(keys))
	for i, key := range keys {
		ops[i] = clientv3.OpDelete(es.getFullKey(key))
	}

	if _, err := es.client.Txn(ctx).Then(ops...).Commit(); err != nil {
		return fmt.Errorf("failed to delete keys %s: %w", strings.Join(keys, ", "), err)
	}
	return nil
}

// Close closes the etcd client
func (es *EtcdStore) Close() error {
	return es.client.Close()
}

// Health reports the status of every configured endpoint
func (es *EtcdStore) Health(ctx context.Context) store.HealthStatus {
	health := store.HealthStatus{
		Status:    store.StatusHealthy,
		Message:   "Etcd store is operational",
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"type": store.TypeEtcd,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, es.timeout)
	defer cancel()

	endpoints := make(map[string]interface{})
	for _, endpoint := range es.endpoints {
		status, err := es.client.Status(ctx, endpoint)
		if err != nil {
			endpoints[endpoint] = map[string]interface{}{
				"status": store.StatusUnhealthy,
				"error":  err.Error(),
			}
			health.Status = store.StatusUnhealthy
			health.Message = fmt.Sprintf("etcd endpoint %s failed: %v", endpoint, err)
			continue
		}
		endpoints[endpoint] = map[string]interface{}{
			"status":  store.StatusHealthy,
			"version": status.Version,
			"leader":  status.Leader == status.Header.MemberId,
			"db_size": status.DbSize,
		}
	}
	health.Details["endpoints"] = endpoints

	return health
}
