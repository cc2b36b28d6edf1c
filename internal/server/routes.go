package server

import (
	"context"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/handlescan/handlescan/internal/appid"
	"github.com/handlescan/handlescan/internal/observability"
	"github.com/handlescan/handlescan/internal/server/handlers"
)

func (s *Server) registerRoutes() {
	s.router.Get("/api/v1/check/{username}", handlers.CheckHandler)
	s.router.Get("/api/v1/platforms", handlers.PlatformsHandler)
	s.router.Get("/api/v1/platforms/sets", handlers.PlatformSetsHandler)

	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)

	// MetricsHandler lives in this package so it can reach HandleError.
	s.router.Get("/metrics", MetricsHandler)

	s.registerAdminEndpoint()
	s.registerDebugEndpoints()
}

// registerDebugEndpoints mounts the pprof suite under /debug when profiling
// is switched on in config.
func (s *Server) registerDebugEndpoints() {
	if !viper.GetBool("debug.pprof_enabled") {
		return
	}

	s.router.Mount("/debug", middleware.Profiler())

	if logger := observability.ServerLogger; logger != nil {
		logger.Warn("pprof endpoints enabled at /debug/pprof - do not expose this server publicly")
	}
}

// adminEnvSuffix names the env var, relative to the identity prefix, that
// arms the signal endpoint.
const adminEnvSuffix = "ADMIN_TOKEN"

// registerAdminEndpoint mounts POST /admin/signal when an admin token is
// configured. Without a token the route does not exist at all.
func (s *Server) registerAdminEndpoint() {
	identity, _ := appid.Get(context.Background())
	envPrefix := "HANDLESCAN_"
	if identity != nil && identity.EnvPrefix != "" {
		envPrefix = identity.EnvPrefix
	}
	tokenVar := envPrefix + adminEnvSuffix

	logger := observability.ServerLogger
	adminToken := os.Getenv(tokenVar)
	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + tokenVar + " set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
