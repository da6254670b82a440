package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/songzhibin97/adminconsole/pkg/store"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "console.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Prefix != "/api/v1" {
		t.Errorf("API.Prefix = %q", cfg.API.Prefix)
	}
	if cfg.API.Endpoints.Missions != "/missions/templates" {
		t.Errorf("Missions endpoint = %q", cfg.API.Endpoints.Missions)
	}
	if cfg.Session.PrivilegedRole != "admin" || cfg.Session.TokenKey != "session_token" || cfg.Session.UserKey != "session_user" {
		t.Errorf("Session = %+v", cfg.Session)
	}
	if cfg.Store.Type != store.TypeFile {
		t.Errorf("Store.Type = %q", cfg.Store.Type)
	}
	if cfg.Console.PageSize != 10 {
		t.Errorf("PageSize = %d", cfg.Console.PageSize)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.example.com
  timeout: 3s
store:
  type: redis
  address: 127.0.0.1:6379
console:
  page_size: 25
logging:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.com" || cfg.API.Timeout != 3*time.Second {
		t.Errorf("API = %+v", cfg.API)
	}
	if cfg.API.Endpoints.Login != "/auth/login" {
		t.Errorf("unset endpoints should keep defaults, got %q", cfg.API.Endpoints.Login)
	}
	if cfg.Store.Type != store.TypeRedis || cfg.Store.Address != "127.0.0.1:6379" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Console.PageSize != 25 || cfg.Logging.Level != "debug" {
		t.Errorf("Console = %+v, Logging = %+v", cfg.Console, cfg.Logging)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "store:\n  type: memory\n")
	t.Setenv("CONSOLE_API_BASE_URL", "http://backend:8080")
	t.Setenv("CONSOLE_STORE_TYPE", "etcd")
	t.Setenv("CONSOLE_ETCD_ENDPOINTS", "a:2379,b:2379")
	t.Setenv("CONSOLE_PAGE_SIZE", "50")
	t.Setenv("CONSOLE_JAEGER_ENDPOINT", "http://jaeger:14268/api/traces")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "http://backend:8080" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Store.Type != store.TypeEtcd || len(cfg.Store.Endpoints) != 2 {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Console.PageSize != 50 {
		t.Errorf("PageSize = %d", cfg.Console.PageSize)
	}
	if !cfg.Tracing.Enabled {
		t.Error("jaeger endpoint should enable tracing")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "api: [not, a, map]")); err == nil {
		t.Error("expected error for malformed yaml")
	}

	t.Setenv("CONSOLE_PAGE_SIZE", "many")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "CONSOLE_PAGE_SIZE") {
		t.Errorf("error = %v, want CONSOLE_PAGE_SIZE parse failure", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "localhost:5000" }},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://host" }},
		{"prefix without slash", func(c *Config) { c.API.Prefix = "api/v1" }},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"empty role", func(c *Config) { c.Session.PrivilegedRole = "" }},
		{"same keys", func(c *Config) { c.Session.UserKey = c.Session.TokenKey }},
		{"unknown store", func(c *Config) { c.Store.Type = "mongo" }},
		{"redis without address", func(c *Config) { c.Store.Type = store.TypeRedis; c.Store.Address = "" }},
		{"etcd without endpoints", func(c *Config) { c.Store.Type = store.TypeEtcd }},
		{"postgres without dsn", func(c *Config) { c.Store.Type = store.TypePostgres }},
		{"zero page size", func(c *Config) { c.Console.PageSize = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad sample rate", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Jaeger.SampleRate = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}
