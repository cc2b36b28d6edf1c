package config

import (
	"time"
)

// Config is the fully merged application configuration. Values arrive in
// three layers: embedded crucible defaults
// (config/handlescan/v0/handlescan-defaults.yaml), the user file under
// ~/.config/handlescan/handlescan/config.yaml, and finally HANDLESCAN_*
// environment variables plus per-command runtime overrides. loader.go owns
// the merge.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Registry RegistryConfig `mapstructure:"registry"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Debug    DebugConfig    `mapstructure:"debug"`

	// Workers is the default worker count for batch scans. Per-platform
	// probe fan-out is governed by Probe.Concurrency instead.
	Workers int `mapstructure:"workers"`
}

// ServerConfig sizes the HTTP listener. ShutdownTimeout bounds the graceful
// drain once a termination signal arrives.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the history database. Path targets an embedded libsql
// file (or :memory:); setting URL switches to a remote Turso endpoint with
// AuthToken attached as a query parameter.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// ProbeConfig contains probing engine configuration.
//
// Delay is the per-platform courtesy pause before each request. Timeout
// bounds a single HTTP round trip, redirects included.
type ProbeConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Delay       time.Duration `mapstructure:"delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// RegistryConfig points at an optional platform registry override file.
// When File is empty the compiled-in registry is used.
type RegistryConfig struct {
	File string `mapstructure:"file"`
}

// OutputConfig contains rendering configuration for CLI results.
type OutputConfig struct {
	// Format selects the default renderer: table, json, or markdown.
	Format string `mapstructure:"format"`

	// Color controls ANSI output: auto, always, or never.
	Color string `mapstructure:"color"`
}

// LoggingConfig selects log verbosity and shape.
type LoggingConfig struct {
	// Level is the minimum severity emitted: trace, debug, info, warn,
	// or error.
	Level string `mapstructure:"level"`

	// Profile is the gofulmen logging profile (SIMPLE, STRUCTURED, or
	// ENTERPRISE). CLI commands log SIMPLE and the server STRUCTURED.
	Profile string `mapstructure:"profile"`
}

// MetricsConfig controls the Prometheus telemetry exporter.
type MetricsConfig struct {
	// Enabled turns metric emission on.
	Enabled bool `mapstructure:"enabled"`

	// Port is the exporter's listen port. The main HTTP server also
	// proxies the exposition format at /metrics.
	Port int `mapstructure:"port"`
}

// HealthConfig controls the /health endpoint family.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig gates diagnostics that should stay off in production.
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled exposes net/http/pprof profiling endpoints. Leave off
	// outside development environments.
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
