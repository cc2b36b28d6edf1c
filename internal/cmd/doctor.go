package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/handlescan/handlescan/internal/config"
	errwrap "github.com/handlescan/handlescan/internal/errors"
	"github.com/handlescan/handlescan/internal/observability"
)

// doctorReport numbers diagnostic lines and tracks whether every check came
// back clean.
type doctorReport struct {
	total   int
	step    int
	healthy bool
}

func newDoctorReport(total int) *doctorReport {
	return &doctorReport{total: total, healthy: true}
}

func (r *doctorReport) line(status, name, detail string) string {
	r.step++
	return fmt.Sprintf("[%d/%d] Checking %s... %s %s", r.step, r.total, name, status, detail)
}

func (r *doctorReport) pass(name, detail string, fields ...zap.Field) {
	observability.CLILogger.Info(r.line("✅", name, detail), fields...)
}

// note logs a warning that does not count against overall health, for
// conditions a fresh install is expected to hit.
func (r *doctorReport) note(name, detail string, fields ...zap.Field) {
	observability.CLILogger.Warn(r.line("⚠️ ", name, detail), fields...)
}

func (r *doctorReport) warn(name, detail string, fields ...zap.Field) {
	r.healthy = false
	observability.CLILogger.Warn(r.line("⚠️ ", name, detail), fields...)
}

func (r *doctorReport) fail(name, detail string, fields ...zap.Field) {
	r.healthy = false
	observability.CLILogger.Error(r.line("❌", name, detail), fields...)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the system and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		identity := GetAppIdentity()
		bannerName := "doctor"
		if identity != nil && identity.BinaryName != "" {
			bannerName = identity.BinaryName + " doctor"
		}
		observability.CLILogger.Info("=== " + bannerName + " ===")
		observability.CLILogger.Info("")
		observability.CLILogger.Info("Running diagnostic checks...")
		observability.CLILogger.Info("")

		report := newDoctorReport(8)

		goVersion := runtime.Version()
		if goVersion >= "go1.23" {
			report.pass("Go version", goVersion, zap.String("go_version", goVersion))
		} else {
			report.warn("Go version", goVersion+" (recommended: go1.23+)", zap.String("go_version", goVersion))
		}

		version := crucible.GetVersion()
		if version.Crucible != "" {
			report.pass("Crucible access", "v"+version.Crucible, zap.String("crucible_version", version.Crucible))
		} else {
			report.fail("Crucible access", "Cannot access Crucible")
			ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Cannot access Crucible", errwrap.NewExternalServiceError("Crucible service unavailable"))
		}

		if version.Gofulmen != "" {
			report.pass("Gofulmen access", "v"+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		} else {
			report.fail("Gofulmen access", "Cannot access Gofulmen")
		}

		configPath := config.DefaultConfigPath()
		if configPath == "" {
			report.fail("config directory", "Cannot resolve config directory")
			ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Cannot resolve config directory", errwrap.NewInternalError("config directory not resolved"))
		} else {
			configDir := filepath.Dir(configPath)
			report.pass("config directory", configDir, zap.String("config_dir", configDir))
		}

		report.pass("environment", runtime.GOOS+"/"+runtime.GOARCH,
			zap.String("os", runtime.GOOS),
			zap.String("arch", runtime.GOARCH))

		cfg, cfgErr := config.Load(ctx)
		checkDatabase(cfg, cfgErr, report)
		checkPlatformSets(ctx, cfgErr, report)
		checkRegistryHealth(cfg, cfgErr, report)

		observability.CLILogger.Info("")
		if report.healthy {
			appName := "handlescan"
			if identity != nil && identity.BinaryName != "" {
				appName = identity.BinaryName
			}
			observability.CLILogger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", appName))
		} else {
			observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		observability.CLILogger.Info("")
		observability.CLILogger.Info("=== End Diagnostics ===")
	},
}

// checkDatabase reports where the store lives and whether it exists yet. A
// missing file is expected before the first recorded check.
func checkDatabase(cfg *config.Config, cfgErr error, report *doctorReport) {
	if cfgErr != nil {
		report.warn("database", "config not loaded", zap.Error(cfgErr))
		return
	}
	if cfg.Store.URL != "" {
		report.pass("database", cfg.Store.URL+" (remote)", zap.String("db_url", cfg.Store.URL))
		return
	}

	absPath := resolvedStorePath(cfg)
	info, statErr := os.Stat(absPath)
	switch {
	case statErr == nil:
		report.pass("database", fmt.Sprintf("%s (%s)", absPath, formatFileSize(info.Size())),
			zap.String("db_path", absPath),
			zap.Int64("db_size", info.Size()))
	case os.IsNotExist(statErr):
		report.note("database", absPath+" (not created yet)", zap.String("db_path", absPath))
	default:
		report.warn("database", fmt.Sprintf("%s (error: %v)", absPath, statErr),
			zap.String("db_path", absPath),
			zap.Error(statErr))
	}
}

func checkPlatformSets(ctx context.Context, cfgErr error, report *doctorReport) {
	if cfgErr != nil {
		report.note("platform sets", "skipped (config not loaded)")
		return
	}

	store, err := openStore(ctx)
	if err != nil {
		report.warn("platform sets", "cannot open store", zap.Error(err))
		return
	}
	defer store.Close() //nolint:errcheck

	sets, err := store.ListSets(ctx)
	if err != nil {
		report.warn("platform sets", "cannot list sets", zap.Error(err))
		return
	}
	if len(sets) == 0 {
		report.note("platform sets", "none seeded (run 'handlescan store init')")
		return
	}

	var latest time.Time
	for _, rec := range sets {
		if rec.UpdatedAt.After(latest) {
			latest = rec.UpdatedAt
		}
	}
	report.pass("platform sets", fmt.Sprintf("%d sets (%s)", len(sets), formatTimeAgo(latest)),
		zap.Int("set_count", len(sets)),
		zap.Time("updated_at", latest))
}

func checkRegistryHealth(cfg *config.Config, cfgErr error, report *doctorReport) {
	if cfgErr != nil {
		report.note("platform registry", "skipped (config not loaded)")
		return
	}

	reg, err := buildRegistry(cfg, "")
	if err != nil {
		report.warn("platform registry", err.Error(), zap.Error(err))
		observability.CLILogger.Info("       Probes need a platform registry. Fix registry.file or remove it to use the compiled-in rules.")
		return
	}

	source := cfg.Registry.File
	if source == "" {
		source = "compiled-in"
	}
	report.pass("platform registry", fmt.Sprintf("%d platforms (%s)", reg.Len(), source),
		zap.Int("platforms", reg.Len()),
		zap.String("registry_source", source))
}

// resolvedStorePath returns the absolute path of the local database file,
// falling back to the per-user default when store.path is unset.
func resolvedStorePath(cfg *config.Config) string {
	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = config.DefaultStorePath()
	}
	if abs, err := filepath.Abs(dbPath); err == nil {
		return abs
	}
	return dbPath
}

var (
	doctorInitForce   bool
	doctorResetConfig bool
	doctorResetData   bool
	doctorResetAll    bool
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		dataDir := config.DefaultDataDir()
		cacheDir := config.DefaultCacheDir()

		observability.CLILogger.Info("Configuration:")
		observability.CLILogger.Info(fmt.Sprintf("  Config file:   %s (%s)", configPath, existenceStatus(fileExists(configPath))))
		if dataDir != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Data directory: %s (%s)", dataDir, existenceStatus(fileExists(dataDir))))
		} else {
			observability.CLILogger.Info("  Data directory: (not resolved)")
		}
		if cacheDir != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Cache directory: %s (%s)", cacheDir, existenceStatus(fileExists(cacheDir))))
		} else {
			observability.CLILogger.Info("  Cache directory: (not resolved)")
		}

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
			return nil
		}

		if cfg.Store.URL != "" {
			observability.CLILogger.Info(fmt.Sprintf("  Database:      %s (remote)", cfg.Store.URL))
		} else {
			absPath := resolvedStorePath(cfg)
			if info, statErr := os.Stat(absPath); statErr == nil {
				observability.CLILogger.Info(fmt.Sprintf("  Database:      %s (%s)", absPath, formatFileSize(info.Size())))
			} else if os.IsNotExist(statErr) {
				observability.CLILogger.Info(fmt.Sprintf("  Database:      %s (not created yet)", absPath))
			} else {
				observability.CLILogger.Warn("Database status error", zap.String("db_path", absPath), zap.Error(statErr))
			}
		}

		store, storeErr := openStore(cmd.Context())
		if storeErr != nil {
			observability.CLILogger.Warn("Platform sets: unavailable (cannot open store)", zap.Error(storeErr))
		} else {
			defer store.Close() //nolint:errcheck
			sets, listErr := store.ListSets(cmd.Context())
			if listErr != nil {
				observability.CLILogger.Warn("Platform sets: unavailable (cannot list)", zap.Error(listErr))
			} else {
				builtin := 0
				for _, rec := range sets {
					if rec.IsBuiltin {
						builtin++
					}
				}
				observability.CLILogger.Info(fmt.Sprintf("  Platform sets: %d (%d builtin, %d custom)", len(sets), builtin, len(sets)-builtin))
			}
		}

		observability.CLILogger.Info("")
		observability.CLILogger.Info("Environment:")
		observability.CLILogger.Info("  HANDLESCAN_DB_AUTH_TOKEN: " + envStatus("HANDLESCAN_DB_AUTH_TOKEN"))
		observability.CLILogger.Info("  HANDLESCAN_REGISTRY_FILE: " + envStatus("HANDLESCAN_REGISTRY_FILE"))

		observability.CLILogger.Info("")
		observability.CLILogger.Info("Effective Settings:")
		observability.CLILogger.Info(fmt.Sprintf("  probe.concurrency: %d", cfg.Probe.Concurrency))
		observability.CLILogger.Info(fmt.Sprintf("  output.format: %s", cfg.Output.Format))

		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset user configuration and/or data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if doctorResetAll {
			doctorResetConfig = true
			doctorResetData = true
		}

		if !doctorResetConfig && !doctorResetData {
			return fmt.Errorf("specify --config, --data, or --all")
		}

		if doctorResetConfig {
			configPath := config.DefaultConfigPath()
			if configPath == "" {
				observability.CLILogger.Warn("Config path not resolved; skipping config reset")
			} else if err := os.Remove(configPath); err == nil {
				observability.CLILogger.Info("Config removed", zap.String("path", configPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Config already removed", zap.String("path", configPath))
			} else {
				return fmt.Errorf("remove config file: %w", err)
			}
		}

		if doctorResetData {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Store.URL != "" {
				return fmt.Errorf("remote store configured; database reset is not supported")
			}

			absPath := resolvedStorePath(cfg)
			if err := os.Remove(absPath); err == nil {
				observability.CLILogger.Info("Database removed", zap.String("path", absPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Database already removed", zap.String("path", absPath))
			} else {
				return fmt.Errorf("remove database: %w", err)
			}
		}

		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configPath)
		}

		if _, err := config.Load(cmd.Context()); err != nil {
			return err
		}

		observability.CLILogger.Info("Config is valid", zap.String("path", configPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorResetCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")

	doctorResetCmd.Flags().BoolVar(&doctorResetConfig, "config", false, "remove user config file")
	doctorResetCmd.Flags().BoolVar(&doctorResetData, "data", false, "remove local database")
	doctorResetCmd.Flags().BoolVar(&doctorResetAll, "all", false, "remove config and data")
}

// defaultConfigYAML is what 'doctor init' writes. Commented keys document the
// overrides a fresh install is most likely to need.
const defaultConfigYAML = `# handlescan config - created by 'handlescan doctor init'
probe:
  concurrency: 5
  delay: 500ms
  timeout: 10s
  # user_agent: ""  # Override the probe User-Agent header
registry:
  # file: ""  # Path to a custom platform registry (YAML or JSON)
output:
  format: table
  color: auto
store:
  driver: libsql
  # path: ""  # Defaults to the per-user data directory
  # url: ""   # Remote libsql URL; set HANDLESCAN_DB_AUTH_TOKEN for auth
`

func formatFileSize(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return agoUnits(int(d.Minutes()), "min")
	case d < 24*time.Hour:
		return agoUnits(int(d.Hours()), "hour")
	default:
		return agoUnits(int(d.Hours()/24), "day")
	}
}

func agoUnits(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}
