package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/songzhibin97/adminconsole/pkg/store"
)

// FileStore implements the store.Store interface on a single JSON document.
// The document is loaded once on open and rewritten on every mutation.
type FileStore struct {
	path string

	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// New opens the store document at config.Path, creating it on first write.
func New(config *store.Config) (*FileStore, error) {
	if config == nil {
		config = store.DefaultConfig()
	}

	path := strings.TrimSpace(config.Path)
	if path == "" {
		return nil, fmt.Errorf("file store path is required")
	}

	s := &FileStore{
		path: path,
		data: make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get retrieves a value by key
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}

	value, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, store.ErrKeyNotFound)
	}
	return []byte(value), nil
}

// Put stores a value by key
func (s *FileStore) Put(ctx context.Context, key string, value []byte) error {
	return s.PutAll(ctx, map[string][]byte{key: value})
}

// PutAll stores every entry with a single document write
func (s *FileStore) PutAll(ctx context.Context, entries map[string][]byte) error {
	for key := range entries {
		if key == "" {
			return store.ErrInvalidKey
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}

	next := s.cloneLocked()
	for key, value := range entries {
		next[key] = string(value)
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// Delete removes keys with a single document write
func (s *FileStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}

	next := s.cloneLocked()
	changed := false
	for _, key := range keys {
		if _, ok := next[key]; ok {
			delete(next, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// Close marks the store closed. The document stays on disk.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Health returns the health status of the store
func (s *FileStore) Health(ctx context.Context) store.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	health := store.HealthStatus{
		Status:    store.StatusHealthy,
		Message:   "File store is operational",
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"type":       store.TypeFile,
			"path":       s.path,
			"keys_count": len(s.data),
		},
	}
	if s.closed {
		health.Status = store.StatusUnhealthy
		health.Message = "File store is closed"
	}
	return health
}

func (s *FileStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read store file: %w", err)
	}
	if len(b) == 0 {
		return nil
	}

	if err := json.Unmarshal(b, &s.data); err != nil {
		return fmt.Errorf("decode store file: %w", err)
	}
	if s.data == nil {
		s.data = make(map[string]string)
	}
	return nil
}

func (s *FileStore) cloneLocked() map[string]string {
	next := make(map[string]string, len(s.data))
	for k, v := range s.data {
		next[k] = v
	}
	return next
}

// persist writes the document through a temp file and rename so readers never
// observe a half written file.
func (s *FileStore) persist(data map[string]string) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write store file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close store file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
