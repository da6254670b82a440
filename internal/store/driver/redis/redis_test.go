package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/songzhibin97/adminconsole/internal/store/storetest"
	"github.com/songzhibin97/adminconsole/pkg/store"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rs, err := New(&store.Config{
		Type:      store.TypeRedis,
		Address:   mr.Addr(),
		Timeout:   time.Second,
		KeyPrefix: "test",
	})
	if err != nil {
		t.Fatalf("Failed to create Redis store: %v", err)
	}
	t.Cleanup(func() { rs.Close() })
	return mr, rs
}

func TestRedisStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		_, rs := newTestStore(t)
		return rs
	})
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	mr, rs := newTestStore(t)

	if err := rs.Put(context.Background(), "session_token", []byte("tok")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := mr.Get("test:session_token")
	if err != nil {
		t.Fatalf("prefixed key missing: %v", err)
	}
	if got != "tok" {
		t.Errorf("stored value = %q", got)
	}
}

func TestRedisStore_PutAllIsTransactional(t *testing.T) {
	mr, rs := newTestStore(t)

	err := rs.PutAll(context.Background(), map[string][]byte{
		"session_token": []byte("tok"),
		"session_user":  []byte("{}"),
	})
	if err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}
	if !mr.Exists("test:session_token") || !mr.Exists("test:session_user") {
		t.Errorf("keys = %v", mr.Keys())
	}
}

func TestRedisStore_UnhealthyAfterServerStops(t *testing.T) {
	mr, rs := newTestStore(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if h := rs.Health(ctx); h.Status != store.StatusUnhealthy {
		t.Errorf("Health().Status = %q, want unhealthy", h.Status)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(&store.Config{Type: store.TypeRedis}); err == nil {
		t.Error("expected error for missing address")
	}
	if _, err := New(&store.Config{Type: store.TypeRedis, Address: "127.0.0.1:1", Timeout: 200 * time.Millisecond}); !store.IsConnectionError(err) {
		t.Errorf("error = %v, want connection error", err)
	}
}

func TestParseRedisInfo(t *testing.T) {
	info := "# Server\r\nredis_version:7.2.0\r\nredis_mode:standalone\r\n"
	got := parseRedisInfo(info)
	if got["redis_version"] != "7.2.0" || got["redis_mode"] != "standalone" {
		t.Errorf("parseRedisInfo() = %v", got)
	}
	if _, ok := got["# Server"]; ok {
		t.Error("section headers must be skipped")
	}
}
