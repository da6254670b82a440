// Package credential persists the session token and the authenticated
// profile across restarts. Both entries are written and removed together.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/songzhibin97/adminconsole/pkg/console"
	"github.com/songzhibin97/adminconsole/pkg/log"
	"github.com/songzhibin97/adminconsole/pkg/store"
)

// Default storage keys.
const (
	DefaultTokenKey = "session_token"
	DefaultUserKey  = "session_user"
)

// Store wraps a store.Store with the two session entries.
type Store struct {
	backend  store.Store
	tokenKey string
	userKey  string
	logger   log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKeys overrides the storage keys.
func WithKeys(tokenKey, userKey string) Option {
	return func(s *Store) {
		if tokenKey != "" {
			s.tokenKey = tokenKey
		}
		if userKey != "" {
			s.userKey = userKey
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a credential store on top of backend.
func New(backend store.Store, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		tokenKey: DefaultTokenKey,
		userKey:  DefaultUserKey,
		logger:   log.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(log.Component("credential"))
	return s
}

// Token returns the stored token, or "" when none is stored.
func (s *Store) Token(ctx context.Context) (string, error) {
	value, err := s.backend.Get(ctx, s.tokenKey)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read token: %w", err)
	}
	return string(value), nil
}

// Profile returns the stored profile. ok is false when none is stored.
func (s *Store) Profile(ctx context.Context) (profile console.Profile, ok bool, err error) {
	value, err := s.backend.Get(ctx, s.userKey)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return console.Profile{}, false, nil
		}
		return console.Profile{}, false, fmt.Errorf("read profile: %w", err)
	}
	if err := json.Unmarshal(value, &profile); err != nil {
		return console.Profile{}, false, fmt.Errorf("decode stored profile: %w", err)
	}
	return profile, true, nil
}

// Save writes the token and profile together.
func (s *Store) Save(ctx context.Context, token string, profile console.Profile) error {
	if token == "" {
		return fmt.Errorf("save credentials: empty token")
	}
	encoded, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	err = s.backend.PutAll(ctx, map[string][]byte{
		s.tokenKey: []byte(token),
		s.userKey:  encoded,
	})
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	s.logger.Debug("credentials saved", log.String(log.FieldUserID, profile.ID))
	return nil
}

// Clear removes the token and profile together.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.tokenKey, s.userKey); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	s.logger.Debug("credentials cleared")
	return nil
}
