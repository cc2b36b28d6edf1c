package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handlescan/handlescan/internal/core/registry"
	errwrap "github.com/handlescan/handlescan/internal/errors"
	"github.com/handlescan/handlescan/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check to verify the application can start successfully.",
	Run: func(cmd *cobra.Command, args []string) {
		if observability.CLILogger == nil {
			// Nothing to log with, so report on stderr.
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}

		observability.CLILogger.Info("Running health check...")
		observability.CLILogger.Info("✅ Logger initialized")

		if versionInfo.Version == "" {
			observability.CLILogger.Error("❌ FAIL: Version information missing")
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		observability.CLILogger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		observability.CLILogger.Info("✅ Version information available")

		reg := registry.BuiltIn()
		if reg.Len() == 0 {
			observability.CLILogger.Error("❌ FAIL: Platform registry is empty")
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Platform registry is empty", errwrap.NewConfigInvalidError("Platform registry is empty"))
			return
		}
		observability.CLILogger.Info("✅ Platform registry loaded", zap.Int("platforms", reg.Len()))

		observability.CLILogger.Info("✅ Configuration system ready")

		observability.CLILogger.Info("")
		observability.CLILogger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
