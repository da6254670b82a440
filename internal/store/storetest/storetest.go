// Package storetest holds the behaviour every store driver must share.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/songzhibin97/adminconsole/pkg/store"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) store.Store

// Run exercises the store.Store contract against the driver produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "absent")
		if !errors.Is(err, store.ErrKeyNotFound) {
			t.Fatalf("Get(absent) error = %v, want ErrKeyNotFound", err)
		}
	})

	t.Run("PutGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Put(ctx, "session_token", []byte("abc")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get(ctx, "session_token")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, []byte("abc")) {
			t.Errorf("Get = %q, want %q", got, "abc")
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_ = s.Put(ctx, "k", []byte("one"))
		if err := s.Put(ctx, "k", []byte("two")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, _ := s.Get(ctx, "k")
		if string(got) != "two" {
			t.Errorf("Get = %q, want %q", got, "two")
		}
	})

	t.Run("PutAllDelete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		entries := map[string][]byte{
			"session_token": []byte("tok"),
			"session_user":  []byte(`{"_id":"u1"}`),
		}
		if err := s.PutAll(ctx, entries); err != nil {
			t.Fatalf("PutAll failed: %v", err)
		}
		for key, want := range entries {
			got, err := s.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get(%s) failed: %v", key, err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("Get(%s) = %q, want %q", key, got, want)
			}
		}

		if err := s.Delete(ctx, "session_token", "session_user", "never_written"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		for key := range entries {
			if _, err := s.Get(ctx, key); !errors.Is(err, store.ErrKeyNotFound) {
				t.Errorf("Get(%s) after Delete error = %v, want ErrKeyNotFound", key, err)
			}
		}
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		s := newStore(t)
		if err := s.Delete(context.Background(), "absent"); err != nil {
			t.Errorf("Delete(absent) error = %v", err)
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.Put(ctx, "shared", []byte("v"))
				_, _ = s.Get(ctx, "shared")
			}()
		}
		wg.Wait()
		got, err := s.Get(ctx, "shared")
		if err != nil || string(got) != "v" {
			t.Errorf("Get(shared) = %q, %v", got, err)
		}
	})

	t.Run("Health", func(t *testing.T) {
		s := newStore(t)
		if h := s.Health(context.Background()); h.Status != store.StatusHealthy {
			t.Errorf("Health().Status = %q, message %q", h.Status, h.Message)
		}
	})
}
