package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	apperrors "github.com/handlescan/handlescan/internal/errors"
	"github.com/handlescan/handlescan/internal/observability"
	"github.com/handlescan/handlescan/internal/server/handlers"
	servermw "github.com/handlescan/handlescan/internal/server/middleware"
)

// Server owns the chi router and the backing http.Server lifecycle.
type Server struct {
	router *chi.Mux
	server *http.Server
	host   string
	port   int
}

// New assembles the router, middleware chain, and routes. The listener is
// not bound until Start.
func New(host string, port int) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// RequestID runs first so every later stage can correlate, metrics time
	// the rest, and Recovery sits closest to the handlers to catch panics
	// before they unwind past the instrumentation.
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		host:   host,
		port:   port,
	}

	// Handlers report failures through the shared responder so API errors
	// carry the same envelope shape everywhere.
	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

// Start builds the listener with configured timeouts and serves until
// Shutdown is called. It blocks, returning http.ErrServerClosed on a clean
// stop.
func (s *Server) Start() error {
	addr := s.Addr()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  timeoutOr("server.read_timeout", 30*time.Second),
		WriteTimeout: timeoutOr("server.write_timeout", 30*time.Second),
		IdleTimeout:  timeoutOr("server.idle_timeout", 120*time.Second),
	}

	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("host", s.host),
		zap.Int("port", s.port),
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests, giving up when ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.ServerLogger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router so tests can drive it without a real listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the host:port string the server binds to
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// Port reports the configured listen port.
func (s *Server) Port() int {
	return s.port
}

// timeoutOr reads a configured duration, falling back when unset
func timeoutOr(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}
