package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/songzhibin97/adminconsole/internal/store/storetest"
	"github.com/songzhibin97/adminconsole/pkg/store"
)

func TestFileStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := New(&store.Config{Path: filepath.Join(t.TempDir(), "session.json")})
		if err != nil {
			t.Fatalf("Failed to create file store: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	ctx := context.Background()

	first, err := New(&store.Config{Path: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	err = first.PutAll(ctx, map[string][]byte{
		"session_token": []byte("tok"),
		"session_user":  []byte(`{"_id":"u1"}`),
	})
	if err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}
	first.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("store file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	second, err := New(&store.Config{Path: path})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	got, err := second.Get(ctx, "session_user")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"_id":"u1"}` {
		t.Errorf("Get = %q", got)
	}
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(&store.Config{Path: path}); err == nil {
		t.Error("expected decode error")
	}
}

func TestFileStore_EmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := New(&store.Config{Path: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, store.ErrKeyNotFound) {
		t.Errorf("Get error = %v", err)
	}
}

func TestNew_RequiresPath(t *testing.T) {
	if _, err := New(&store.Config{Path: "  "}); err == nil {
		t.Error("expected error for empty path")
	}
}
