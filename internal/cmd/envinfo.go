package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/handlescan/handlescan/internal/config"
	"github.com/handlescan/handlescan/internal/observability"
)

// envLine prints one aligned key/value row of the envinfo report.
func envLine(label, value string, fields ...zap.Field) {
	observability.CLILogger.Info(fmt.Sprintf("  %-15s %s", label+":", value), fields...)
}

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display comprehensive environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		version := crucible.GetVersion()
		identity := GetAppIdentity()

		observability.CLILogger.Info("=== HandleScan Environment Information ===")
		observability.CLILogger.Info("")

		observability.CLILogger.Info("Application:")
		envLine("Name", identity.BinaryName)
		envLine("Version", versionInfo.Version)
		envLine("Commit", versionInfo.Commit)
		envLine("Built", versionInfo.BuildDate)
		observability.CLILogger.Info("")

		observability.CLILogger.Info("SSOT:")
		envLine("Gofulmen", version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		envLine("Crucible", version.Crucible, zap.String("crucible_version", version.Crucible))
		observability.CLILogger.Info("")

		observability.CLILogger.Info("Runtime:")
		envLine("Go Version", runtime.Version(), zap.String("go_version", runtime.Version()))
		envLine("GOOS", runtime.GOOS, zap.String("goos", runtime.GOOS))
		envLine("GOARCH", runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		envLine("NumCPU", fmt.Sprintf("%d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		observability.CLILogger.Info("")

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
			return
		}

		observability.CLILogger.Info("Configuration:")
		envLine("Server Host", cfg.Server.Host, zap.String("host", cfg.Server.Host))
		envLine("Server Port", fmt.Sprintf("%d", cfg.Server.Port), zap.Int("port", cfg.Server.Port))
		envLine("Log Level", cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		envLine("Log Profile", cfg.Logging.Profile, zap.String("log_profile", cfg.Logging.Profile))
		envLine("DB Driver", cfg.Store.Driver, zap.String("db_driver", cfg.Store.Driver))
		if strings.TrimSpace(cfg.Store.URL) != "" {
			envLine("DB URL", cfg.Store.URL, zap.String("db_url", cfg.Store.URL))
		} else {
			envLine("DB Path", cfg.Store.Path, zap.String("db_path", cfg.Store.Path))
		}
		envLine("Metrics Port", fmt.Sprintf("%d", cfg.Metrics.Port), zap.Int("metrics_port", cfg.Metrics.Port))
		envLine("Config File", config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		observability.CLILogger.Info("")

		observability.CLILogger.Info("Probe:")
		envLine("Concurrency", fmt.Sprintf("%d", cfg.Probe.Concurrency), zap.Int("probe_concurrency", cfg.Probe.Concurrency))
		envLine("Delay", cfg.Probe.Delay.String(), zap.Duration("probe_delay", cfg.Probe.Delay))
		envLine("Timeout", cfg.Probe.Timeout.String(), zap.Duration("probe_timeout", cfg.Probe.Timeout))
		userAgent := strings.TrimSpace(cfg.Probe.UserAgent)
		if userAgent == "" {
			userAgent = "(engine default)"
		}
		envLine("User-Agent", userAgent)
		observability.CLILogger.Info("")

		observability.CLILogger.Info("Registry:")
		registryFile := strings.TrimSpace(cfg.Registry.File)
		if registryFile == "" {
			registryFile = "(compiled-in)"
		}
		envLine("Source", registryFile)
		if reg, regErr := buildRegistry(cfg, ""); regErr != nil {
			observability.CLILogger.Warn("  Registry load failed", zap.Error(regErr))
		} else {
			envLine("Platforms", fmt.Sprintf("%d", reg.Len()), zap.Int("platforms", reg.Len()))
			envLine("Major set", fmt.Sprintf("%v", reg.MajorIDs()))
		}
		observability.CLILogger.Info("")

		observability.CLILogger.Info("Output:")
		envLine("Format", cfg.Output.Format)
		envLine("Color", cfg.Output.Color)
		observability.CLILogger.Info("")

		observability.CLILogger.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
