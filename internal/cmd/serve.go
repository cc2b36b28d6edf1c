package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/handlescan/handlescan/internal/config"
	"github.com/handlescan/handlescan/internal/core/engine"
	"github.com/handlescan/handlescan/internal/core/registry"
	"github.com/handlescan/handlescan/internal/core/store"
	errwrap "github.com/handlescan/handlescan/internal/errors"
	"github.com/handlescan/handlescan/internal/metrics"
	"github.com/handlescan/handlescan/internal/observability"
	"github.com/handlescan/handlescan/internal/server"
	"github.com/handlescan/handlescan/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// signalHealthChecker reports ready once the shutdown handlers are registered.
type signalHealthChecker struct{}

func (s signalHealthChecker) CheckHealth(ctx context.Context) error {
	return nil
}

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// identityHealthChecker validates app identity metadata
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (i identityHealthChecker) CheckHealth(ctx context.Context) error {
	switch {
	case i.binaryName == "":
		return errwrap.NewConfigInvalidError("app identity missing binary name")
	case i.envPrefix == "":
		return errwrap.NewConfigInvalidError("app identity missing env prefix")
	case i.configName == "":
		return errwrap.NewConfigInvalidError("app identity missing config name")
	}
	return nil
}

// registryHealthChecker guards against serving with an empty platform registry
type registryHealthChecker struct {
	registry *registry.Registry
}

func (r registryHealthChecker) CheckHealth(ctx context.Context) error {
	if r.registry == nil || r.registry.Len() == 0 {
		return errwrap.NewConfigInvalidError("platform registry is empty")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server will cleanly shut down the HTTP server, close the store, and
flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		identity := GetAppIdentity()
		namespace := identity.TelemetryNamespace()

		cfg, err := config.Load(ctx)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "config load failed")
		}

		observability.InitServerLogger(identity.BinaryName, cfg.Logging.Level, namespace)

		metricsPort := cfg.Metrics.Port
		if metricsPort == 0 {
			metricsPort = 9090
		}
		if err := observability.InitMetrics(identity.BinaryName, metricsPort, namespace); err != nil {
			observability.ServerLogger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
		metrics.SetServerStartTime(time.Now())

		reg, err := buildRegistry(cfg, "")
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "platform registry load failed")
		}

		prober := &engine.Prober{
			UserAgent:   cfg.Probe.UserAgent,
			Delay:       cfg.Probe.Delay,
			Timeout:     cfg.Probe.Timeout,
			Concurrency: cfg.Probe.Concurrency,
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("namespace", namespace),
			zap.String("version", versionInfo.Version),
			zap.String("host", serverHost),
			zap.Int("port", serverPort),
			zap.Int("metrics_port", metricsPort),
			zap.Int("platforms", reg.Len()))

		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		registerServeCheckers(hm, identity, reg)

		handlers.SetCheckDeps(prober, reg)
		handlers.SetAppIdentity(identity)

		// History recording and stored sets degrade gracefully when the
		// store cannot be opened.
		st, err := openStore(ctx)
		if err != nil {
			observability.ServerLogger.Warn("Store unavailable, serving without history",
				zap.Error(err))
		} else {
			handlers.SetCheckRecorder(st)
			handlers.SetSetReader(st)
			hm.RegisterChecker("store", handlers.CheckHealthFunc(st.Ping))
		}

		srv := server.New(serverHost, serverPort)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}
		registerLifecycleHooks(srv, st, shutdownTimeout)

		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", serverHost),
				zap.Int("port", serverPort))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()
		go func() {
			if err := signals.Listen(ctx); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(ctx, err, "server error")
		}
		return nil
	},
}

// registerServeCheckers wires the health surface for serve mode.
func registerServeCheckers(hm *handlers.HealthManager, identity *appidentity.Identity, reg *registry.Registry) {
	hm.RegisterChecker("signal_handlers", signalHealthChecker{})
	hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	hm.RegisterChecker("platform_registry", registryHealthChecker{registry: reg})
	hm.RegisterChecker("app_identity", identityHealthChecker{
		binaryName: identity.BinaryName,
		envPrefix:  identity.EnvPrefix,
		configName: identity.ConfigName,
	})
}

// registerLifecycleHooks wires graceful shutdown and reload. Shutdown hooks
// run LIFO, so the HTTP listener stops first, then the store closes, then
// logs flush.
func registerLifecycleHooks(srv *server.Server, st *store.Store, shutdownTimeout time.Duration) {
	signals.OnShutdown(func(ctx context.Context) error {
		observability.ServerLogger.Info("Flushing logger...")
		if err := observability.ServerLogger.Sync(); err != nil {
			// Sync on an already-closed stdout is expected during teardown.
			observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
				zap.Error(err))
		}
		return nil
	})

	if st != nil {
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Closing store...")
			if err := st.Close(); err != nil {
				observability.ServerLogger.Warn("Store close returned error",
					zap.Error(err))
			}
			return nil
		})
	}

	signals.OnShutdown(func(ctx context.Context) error {
		observability.ServerLogger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		observability.ServerLogger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(reloadConfig)

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		observability.ServerLogger.Warn("Failed to enable double-tap force quit",
			zap.Error(err))
	}
}

// reloadConfig re-reads the config file on SIGHUP.
func reloadConfig(ctx context.Context) error {
	observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			observability.ServerLogger.Info("No config file found - using defaults and environment variables")
			return nil
		}
		observability.ServerLogger.Error("Failed to reload config file",
			zap.String("file", viper.ConfigFileUsed()),
			zap.Error(err))
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}

	observability.ServerLogger.Info("Configuration reloaded successfully",
		zap.String("file", viper.ConfigFileUsed()))

	// TODO: rebuild the prober from the reloaded probe config instead of
	// recommending a restart.
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
