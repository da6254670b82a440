package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/songzhibin97/adminconsole/internal/store/driver/memory"
	"github.com/songzhibin97/adminconsole/pkg/console"
	"github.com/songzhibin97/adminconsole/pkg/store"
)

func newTestStore(t *testing.T) (*Store, store.Store) {
	t.Helper()
	backend, err := memory.New(&store.Config{})
	if err != nil {
		t.Fatalf("memory.New failed: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return New(backend), backend
}

func TestStore_Empty(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	token, err := s.Token(ctx)
	if err != nil || token != "" {
		t.Errorf("Token() = %q, %v", token, err)
	}
	_, ok, err := s.Profile(ctx)
	if err != nil || ok {
		t.Errorf("Profile() ok = %v, err = %v", ok, err)
	}
}

func TestStore_SaveAndClear(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	profile := console.Profile{ID: "u1", Email: "admin@example.com", FirstName: "Ada", Role: console.RoleAdmin}
	if err := s.Save(ctx, "tok", profile); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	token, _ := s.Token(ctx)
	if token != "tok" {
		t.Errorf("Token() = %q", token)
	}
	got, ok, err := s.Profile(ctx)
	if err != nil || !ok {
		t.Fatalf("Profile() ok = %v, err = %v", ok, err)
	}
	if got != profile {
		t.Errorf("Profile() = %+v, want %+v", got, profile)
	}

	raw, err := backend.Get(ctx, DefaultUserKey)
	if err != nil {
		t.Fatalf("user key missing: %v", err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		t.Errorf("user key holds %q, want JSON", raw)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if token, _ := s.Token(ctx); token != "" {
		t.Errorf("Token() after Clear = %q", token)
	}
	if _, ok, _ := s.Profile(ctx); ok {
		t.Error("Profile() after Clear still present")
	}
}

func TestStore_CustomKeys(t *testing.T) {
	backend, _ := memory.New(&store.Config{})
	s := New(backend, WithKeys("tk", "uk"))
	ctx := context.Background()

	_ = s.Save(ctx, "tok", console.Profile{ID: "u1"})
	if _, err := backend.Get(ctx, "tk"); err != nil {
		t.Errorf("custom token key not used: %v", err)
	}
	if _, err := backend.Get(ctx, "uk"); err != nil {
		t.Errorf("custom user key not used: %v", err)
	}
}

func TestStore_RejectsEmptyToken(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Save(context.Background(), "", console.Profile{}); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestStore_CorruptProfile(t *testing.T) {
	s, backend := newTestStore(t)
	_ = backend.Put(context.Background(), DefaultUserKey, []byte("not json"))
	if _, _, err := s.Profile(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

type failingStore struct{ store.Store }

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, store.ErrStoreConnectionFailed
}

func TestStore_BackendError(t *testing.T) {
	backend, _ := memory.New(&store.Config{})
	s := New(failingStore{backend})
	if _, err := s.Token(context.Background()); !errors.Is(err, store.ErrStoreConnectionFailed) {
		t.Errorf("Token() error = %v", err)
	}
}
