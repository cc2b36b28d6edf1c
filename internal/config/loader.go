// Package config loads the layered application configuration: crucible
// defaults shipped in config/handlescan/v0, user config files discovered
// through the app identity, and finally environment variables plus runtime
// overrides.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"

	"github.com/fulmenhq/gofulmen/pathfinder"
	"github.com/fulmenhq/gofulmen/schema"
	"github.com/go-viper/mapstructure/v2"
	"github.com/handlescan/handlescan/internal/appid"
)

var (
	appConfig   *Config
	configMu    sync.RWMutex
	appIdentity *appidentity.Identity
)

// findProjectRoot locates the repository root above the working directory so
// schema and defaults paths stay correct no matter where the process starts.
// pathfinder enforces the home-directory ceiling, a depth limit, and symlink
// loop detection.
func findProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	markers := []string{"go.mod", ".git"}

	// CI checkouts often live outside $HOME, where the default ceiling
	// stops the walk. The workspace env vars widen the boundary, but the
	// markers still decide what counts as the root.
	if boundary, ok := ciBoundary(cwd); ok {
		root, err := pathfinder.FindRepositoryRoot(cwd, markers,
			pathfinder.WithBoundary(boundary),
			pathfinder.WithMaxDepth(20),
		)
		if err == nil {
			return root, nil
		}
	}

	root, err := pathfinder.FindRepositoryRoot(cwd, markers, pathfinder.WithMaxDepth(10))
	if err != nil {
		return "", fmt.Errorf("project root not found: %w", err)
	}
	return root, nil
}

// ciBoundary returns the first CI workspace directory that contains cwd.
// Outside CI there is no hint to offer.
func ciBoundary(cwd string) (string, bool) {
	inCI := strings.EqualFold(strings.TrimSpace(os.Getenv("GITHUB_ACTIONS")), "true") ||
		strings.EqualFold(strings.TrimSpace(os.Getenv("CI")), "true")
	if !inCI {
		return "", false
	}

	for _, key := range []string{"FULMEN_WORKSPACE_ROOT", "GITHUB_WORKSPACE", "CI_PROJECT_DIR", "WORKSPACE"} {
		boundary := filepath.Clean(strings.TrimSpace(os.Getenv(key)))
		if !filepath.IsAbs(boundary) {
			continue
		}
		if st, err := os.Stat(boundary); err != nil || !st.IsDir() {
			continue
		}
		// The boundary must contain the start path or pathfinder would
		// refuse the walk anyway.
		if rel, err := filepath.Rel(boundary, cwd); err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		return boundary, true
	}
	return "", false
}

// EnvVarSpec maps a {PREFIX}{NAME} environment variable onto a config path.
type EnvVarSpec = gfconfig.EnvVarSpec

const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Load assembles the configuration from all three layers and replaces the
// cached copy. Safe to call again for reload.
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	if appIdentity == nil {
		identity, err := appid.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load app identity: %w", err)
		}
		appIdentity = identity
	}

	// Schemas and crucible defaults ship inside the repo, so resolve them
	// relative to the repository root rather than the working directory.
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	overrides := append([]map[string]any{envOverrides}, runtimeOverrides...)

	merged, diagnostics, err := gfconfig.LoadLayeredConfig(layeredOptions(projectRoot), overrides...)
	if err != nil {
		return nil, fmt.Errorf("failed to load layered config: %w", err)
	}

	// Schema diagnostics are advisory. They surface before any logger
	// exists, so stdout is the only sink.
	for _, diag := range diagnostics {
		fmt.Printf("Config validation: %s: %s\n", diag.Pointer, diag.Message)
	}

	cfg, err := decodeConfig(merged)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)
	return cfg, nil
}

// layeredOptions points gofulmen at the repo's schema catalog and defaults
// file.
func layeredOptions(projectRoot string) gfconfig.LayeredConfigOptions {
	return gfconfig.LayeredConfigOptions{
		Category:     "handlescan",
		Version:      "v0",
		DefaultsFile: "handlescan-defaults.yaml",
		SchemaID:     "handlescan/v0/config",
		UserPaths:    getUserConfigPaths(),
		Catalog:      schema.NewCatalog(filepath.Join(projectRoot, "schemas")),
		DefaultsRoot: filepath.Join(projectRoot, "config"),
	}
}

// decodeConfig unmarshals the merged layer map into a typed Config. The
// hooks accept duration strings and comma-separated lists, which is how env
// overrides arrive.
func decodeConfig(merged any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// GetConfig returns the most recently loaded configuration.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// getUserConfigPaths lists the XDG config files to check, with the previous
// binary name as a legacy location when it differs from the config name.
func getUserConfigPaths() []string {
	if appIdentity == nil {
		return nil
	}

	configName, binaryName := appNamesForPaths()
	var legacy []string
	if binaryName != configName {
		legacy = append(legacy, binaryName)
	}
	return gfconfig.GetAppConfigPaths(configName, legacy...)
}

// getEnvSpecs declares every {PREFIX}{NAME} variable the loader honors.
// Duration fields arrive as strings and rely on the decode hook.
func getEnvSpecs() []EnvVarSpec {
	if appIdentity == nil {
		return nil
	}

	prefix := appIdentity.EnvPrefix
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	return []EnvVarSpec{
		// Server
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		// Logging
		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// Probing
		{Name: prefix + "PROBE_CONCURRENCY", Path: []string{"probe", "concurrency"}, Type: EnvInt},
		{Name: prefix + "PROBE_DELAY", Path: []string{"probe", "delay"}, Type: EnvString},
		{Name: prefix + "PROBE_TIMEOUT", Path: []string{"probe", "timeout"}, Type: EnvString},
		{Name: prefix + "PROBE_USER_AGENT", Path: []string{"probe", "user_agent"}, Type: EnvString},

		// Platform registry
		{Name: prefix + "REGISTRY_FILE", Path: []string{"registry", "file"}, Type: EnvString},

		// Output
		{Name: prefix + "OUTPUT_FORMAT", Path: []string{"output", "format"}, Type: EnvString},
		{Name: prefix + "OUTPUT_COLOR", Path: []string{"output", "color"}, Type: EnvString},

		// Metrics and health
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		// Debug
		{Name: prefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
		{Name: prefix + "DEBUG_PPROF_ENABLED", Path: []string{"debug", "pprof_enabled"}, Type: EnvBool},

		// Workers
		{Name: prefix + "WORKERS", Path: []string{"workers"}, Type: EnvInt},
	}
}

// appNamesForPaths resolves the config and binary names used for XDG paths,
// falling back to "handlescan" when the identity leaves one blank.
func appNamesForPaths() (configName string, binaryName string) {
	configName = "handlescan"
	binaryName = "handlescan"
	if appIdentity == nil {
		return configName, binaryName
	}

	if strings.TrimSpace(appIdentity.ConfigName) != "" {
		configName = appIdentity.ConfigName
	}
	if strings.TrimSpace(appIdentity.BinaryName) != "" {
		binaryName = appIdentity.BinaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG path of the user config file.
func DefaultConfigPath() string {
	configName, _ := appNamesForPaths()
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG data directory for the app.
func DefaultDataDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppDataDir(configName)
}

// DefaultCacheDir returns the XDG cache directory for the app.
func DefaultCacheDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppCacheDir(configName)
}

// DefaultStorePath returns the default database file location, preferring
// the XDG data directory and falling back to the working directory.
func DefaultStorePath() string {
	configName, binaryName := appNamesForPaths()
	dataDir := gfconfig.GetAppDataDir(configName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dataDir, binaryName+".db")
}
