// Package store opens the configured store.Store driver.
package store

import (
	"fmt"

	"github.com/songzhibin97/adminconsole/internal/store/driver/etcd"
	"github.com/songzhibin97/adminconsole/internal/store/driver/file"
	"github.com/songzhibin97/adminconsole/internal/store/driver/memory"
	"github.com/songzhibin97/adminconsole/internal/store/driver/postgres"
	"github.com/songzhibin97/adminconsole/internal/store/driver/redis"
	"github.com/songzhibin97/adminconsole/pkg/store"
)

// New opens the driver named by config.Type.
func New(config *store.Config) (store.Store, error) {
	if config == nil {
		config = store.DefaultConfig()
	}

	var (
		s   store.Store
		err error
	)
	switch config.Type {
	case "", store.TypeMemory:
		s, err = memory.New(config)
	case store.TypeFile:
		s, err = file.New(config)
	case store.TypeRedis:
		s, err = redis.New(config)
	case store.TypeEtcd:
		s, err = etcd.New(config)
	case store.TypePostgres:
		s, err = postgres.New(config)
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnsupportedType, config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", config.Type, err)
	}
	return s, nil
}
