package etcd

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/songzhibin97/adminconsole/internal/store/storetest"
	"github.com/songzhibin97/adminconsole/pkg/store"
)

func TestNew_RequiresEndpoints(t *testing.T) {
	if _, err := New(&store.Config{Type: store.TypeEtcd}); err == nil {
		t.Error("expected error for missing endpoints")
	}
}

func TestGetFullKey(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{"", "session_token", "session_token"},
		{"console", "session_token", "console/session_token"},
		{"console/", "session_user", "console/session_user"},
	}
	for _, tt := range tests {
		es := &EtcdStore{keyPrefix: tt.prefix}
		if got := es.getFullKey(tt.key); got != tt.want {
			t.Errorf("getFullKey(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

// TestEtcdStore_Contract runs against a live cluster when
// CONSOLE_TEST_ETCD_ENDPOINTS is set.
func TestEtcdStore_Contract(t *testing.T) {
	endpoints := os.Getenv("CONSOLE_TEST_ETCD_ENDPOINTS")
	if endpoints == "" {
		t.Skip("CONSOLE_TEST_ETCD_ENDPOINTS not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		es, err := New(&store.Config{
			Type:      store.TypeEtcd,
			Endpoints: strings.Split(endpoints, ","),
			Timeout:   2 * time.Second,
			KeyPrefix: "console-test/" + t.Name(),
		})
		if err != nil {
			t.Skipf("etcd not available: %v", err)
		}
		t.Cleanup(func() { es.Close() })
		return es
	})
}
