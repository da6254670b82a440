package config

import (
	"time"

	"github.com/songzhibin97/adminconsole/pkg/store"
)

// Config is the root configuration of the console client
type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Store   store.Config  `yaml:"store"`
	Console ConsoleConfig `yaml:"console"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// APIConfig describes the backend the gateway talks to
type APIConfig struct {
	BaseURL   string          `yaml:"base_url"`
	Prefix    string          `yaml:"prefix"`
	Timeout   time.Duration   `yaml:"timeout"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
}

// EndpointsConfig maps console operations to backend paths, relative to the prefix
type EndpointsConfig struct {
	Login        string `yaml:"login"`
	Logout       string `yaml:"logout"`
	Profile      string `yaml:"profile"`
	Register     string `yaml:"register"`
	Users        string `yaml:"users"`
	Missions     string `yaml:"missions"`
	Protocols    string `yaml:"protocols"`
	Mentors      string `yaml:"mentors"`
	CareerFields string `yaml:"career_fields"`
}

// SessionConfig configures the session manager
type SessionConfig struct {
	PrivilegedRole string `yaml:"privileged_role"`
	LoginPath      string `yaml:"login_path"`
	TokenKey       string `yaml:"token_key"`
	UserKey        string `yaml:"user_key"`
}

// ConsoleConfig holds list page defaults
type ConsoleConfig struct {
	PageSize int `yaml:"page_size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig represents tracing configuration
type TracingConfig struct {
	Enabled bool         `yaml:"enabled"`
	Jaeger  JaegerConfig `yaml:"jaeger"`
}

// JaegerConfig represents Jaeger configuration
type JaegerConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}
