package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/songzhibin97/adminconsole/pkg/store"
)

// Default returns the built-in configuration
func Default() *Config {
	storeCfg := store.DefaultConfig()
	storeCfg.Type = store.TypeFile

	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:5000",
			Prefix:  "/api/v1",
			Timeout: 15 * time.Second,
			Endpoints: EndpointsConfig{
				Login:        "/auth/login",
				Logout:       "/auth/logout",
				Profile:      "/users/profile",
				Register:     "/auth/register",
				Users:        "/users",
				Missions:     "/missions/templates",
				Protocols:    "/protocols/templates",
				Mentors:      "/mentors",
				CareerFields: "/career-fields",
			},
		},
		Session: SessionConfig{
			PrivilegedRole: "admin",
			LoginPath:      "/admin/login",
			TokenKey:       "session_token",
			UserKey:        "session_user",
		},
		Store: *storeCfg,
		Console: ConsoleConfig{
			PageSize: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Address:   ":9464",
			Path:      "/metrics",
			Namespace: "console",
		},
		Tracing: TracingConfig{
			Enabled: false,
			Jaeger: JaegerConfig{
				ServiceName: "admin-console",
				SampleRate:  1.0,
			},
		},
	}
}

// Load loads configuration from file with environment variable overrides
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(cfg *Config, filename string) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from CONSOLE_* environment variables
func loadFromEnv(cfg *Config) error {
	// API configuration
	if baseURL := os.Getenv("CONSOLE_API_BASE_URL"); baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if prefix, ok := os.LookupEnv("CONSOLE_API_PREFIX"); ok {
		cfg.API.Prefix = prefix
	}
	if timeout := os.Getenv("CONSOLE_API_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("CONSOLE_API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}

	// Session configuration
	if role := os.Getenv("CONSOLE_PRIVILEGED_ROLE"); role != "" {
		cfg.Session.PrivilegedRole = role
	}

	// Store configuration
	if storeType := os.Getenv("CONSOLE_STORE_TYPE"); storeType != "" {
		cfg.Store.Type = storeType
	}
	if path := os.Getenv("CONSOLE_STORE_PATH"); path != "" {
		cfg.Store.Path = path
	}
	if addr := os.Getenv("CONSOLE_REDIS_ADDR"); addr != "" {
		cfg.Store.Address = addr
	}
	if password := os.Getenv("CONSOLE_REDIS_PASSWORD"); password != "" {
		cfg.Store.Password = password
	}
	if endpoints := os.Getenv("CONSOLE_ETCD_ENDPOINTS"); endpoints != "" {
		cfg.Store.Endpoints = strings.Split(endpoints, ",")
	}
	if dsn := os.Getenv("CONSOLE_POSTGRES_DSN"); dsn != "" {
		cfg.Store.DSN = dsn
	}

	// Console configuration
	if size := os.Getenv("CONSOLE_PAGE_SIZE"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("CONSOLE_PAGE_SIZE: %w", err)
		}
		cfg.Console.PageSize = n
	}

	// Logging configuration
	if logLevel := os.Getenv("CONSOLE_LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	// Metrics and tracing
	if addr := os.Getenv("CONSOLE_METRICS_ADDRESS"); addr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = addr
	}
	if endpoint := os.Getenv("CONSOLE_JAEGER_ENDPOINT"); endpoint != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Jaeger.Endpoint = endpoint
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api base url: %q", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported api base url scheme: %s", u.Scheme)
	}
	if c.API.Prefix != "" && !strings.HasPrefix(c.API.Prefix, "/") {
		return fmt.Errorf("api prefix must start with '/': %q", c.API.Prefix)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}

	if c.Session.PrivilegedRole == "" {
		return fmt.Errorf("session privileged role cannot be empty")
	}
	if c.Session.TokenKey == "" || c.Session.UserKey == "" {
		return fmt.Errorf("session storage keys cannot be empty")
	}
	if c.Session.TokenKey == c.Session.UserKey {
		return fmt.Errorf("session token and user keys must differ")
	}

	switch c.Store.Type {
	case store.TypeMemory:
	case store.TypeFile:
		if c.Store.Path == "" {
			return fmt.Errorf("file store path cannot be empty")
		}
	case store.TypeRedis:
		if c.Store.Address == "" {
			return fmt.Errorf("redis address cannot be empty")
		}
	case store.TypeEtcd:
		if len(c.Store.Endpoints) == 0 {
			return fmt.Errorf("etcd endpoints cannot be empty")
		}
	case store.TypePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("postgres dsn cannot be empty")
		}
	default:
		return fmt.Errorf("invalid store type: %s", c.Store.Type)
	}

	if c.Console.PageSize <= 0 {
		return fmt.Errorf("console page size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Tracing.Enabled && (c.Tracing.Jaeger.SampleRate < 0 || c.Tracing.Jaeger.SampleRate > 1) {
		return fmt.Errorf("tracing sample rate must be within [0, 1]")
	}

	return nil
}

// DefaultFile returns the config file used when none is given: the value of
// CONSOLE_CONFIG, or "" to run on defaults and environment alone.
func DefaultFile() string {
	return os.Getenv("CONSOLE_CONFIG")
}
