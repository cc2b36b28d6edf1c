package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"

	"github.com/handlescan/handlescan/internal/appid"
	"github.com/handlescan/handlescan/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/handlescan/handlescan/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// App identity loaded from .fulmen/app.yaml
	appIdentity *appidentity.Identity

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity (only valid after initConfig)
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	// NOTE: applyIdentity() overwrites these from app identity.
	Use:   filepath.Base(os.Args[0]),
	Short: "Username availability checker",
	Long: `Check username availability across social and developer platforms.

Use the subcommands to perform specific operations.`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

// applyIdentity refreshes the command surfaces that mention the binary. It
// runs twice: once in init so --help is correct before any config loads, and
// again from initConfig once the flag set exists.
func applyIdentity(identity *appidentity.Identity) {
	if identity == nil {
		return
	}
	appIdentity = identity

	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
		rootCmd.Long = fmt.Sprintf("%s - %s\n\nUse the subcommands to perform specific operations.", identity.BinaryName, identity.Description)
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName)
	}
}

func init() {
	// Config loading would otherwise emit metrics to stdout before serve
	// mode configures the real exporter.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	if identity, err := appid.Get(context.Background()); err == nil {
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults to app identity config path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().String("format", "table", "output format: table, json, markdown")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
}

// initConfig loads the app identity, wires viper's config file search, and
// seeds defaults. Runs before every command via cobra.OnInitialize.
func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity from .fulmen/app.yaml", err)
	}
	applyIdentity(identity)

	// The CLI logger must exist before config loading can report problems.
	observability.InitCLILogger(appIdentity.BinaryName, verbose)

	configureConfigSearch()

	viper.SetEnvPrefix(appIdentity.EnvPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
		}
	} else if verbose {
		// A missing file is fine, the defaults below cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			observability.CLILogger.Debug("No config file found, using defaults and environment variables")
		} else {
			observability.CLILogger.Warn("Error reading config file", zap.Error(err))
		}
	}

	setDefaults()
}

// configureConfigSearch points viper at the --config file when given, or at
// the identity-derived per-user config directory otherwise.
func configureConfigSearch() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		return
	}

	appConfigDir := gfconfig.GetAppConfigDir(appIdentity.ConfigName)
	if appConfigDir == "" {
		if verbose {
			observability.CLILogger.Warn("Could not resolve XDG config directory, falling back to home directory")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Could not find home directory", err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName("." + appIdentity.ConfigName)
	} else {
		viper.AddConfigPath(appConfigDir)
		viper.SetConfigName("config")

		// Binaries renamed after a release may still have configs under the
		// old directory.
		if appIdentity.BinaryName != "" && appIdentity.BinaryName != appIdentity.ConfigName {
			if legacyConfigDir := gfconfig.GetAppConfigDir(appIdentity.BinaryName); legacyConfigDir != "" {
				viper.AddConfigPath(legacyConfigDir)
			}
		}
	}

	viper.AddConfigPath("./config")
	viper.SetConfigType("yaml")
}

// configDefaults seeds viper for every key the commands read directly. The
// loader package keeps its own schema-backed defaults for config.Load.
var configDefaults = map[string]any{
	"server.host":             "localhost",
	"server.port":             8080,
	"server.read_timeout":     "30s",
	"server.write_timeout":    "30s",
	"server.idle_timeout":     "120s",
	"server.shutdown_timeout": "10s",

	"logging.level":   "info",
	"logging.profile": "structured",

	"store.driver":     "libsql",
	"store.url":        "",
	"store.auth_token": "",

	"probe.concurrency": 5,
	"probe.delay":       "500ms",
	"probe.timeout":     "10s",
	"probe.user_agent":  "",

	"registry.file": "",

	"output.format": "table",
	"output.color":  "auto",

	"metrics.enabled": true,
	"metrics.port":    9090,

	"health.enabled": true,

	"workers": 4,

	"debug.enabled":       false,
	"debug.pprof_enabled": false,
}

func setDefaults() {
	for key, value := range configDefaults {
		viper.SetDefault(key, value)
	}
	// Resolved at call time, the data dir depends on the environment.
	viper.SetDefault("store.path", config.DefaultStorePath())
}
