package observability

import (
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger backs the check, batch, and store commands (SIMPLE profile)
	CLILogger *logging.Logger

	// ServerLogger backs the serve command's HTTP API (STRUCTURED profile)
	ServerLogger *logging.Logger
)

// InitCLILogger sets up the CLI logger. Verbose drops the level to DEBUG.
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		fatalStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}

	if verbose {
		logger.SetLevel(logging.DEBUG)
	}

	CLILogger = logger
}

// InitServerLogger sets up the structured JSON logger for the HTTP server.
// The optional namespace is attached as a static field so log lines line up
// with the telemetry namespace.
func InitServerLogger(serviceName string, logLevel string, namespace ...string) {
	staticFields := make(map[string]any)
	if len(namespace) > 0 && namespace[0] != "" {
		staticFields["namespace"] = namespace[0]
	}

	logger, err := logging.New(serverLoggerConfig(serviceName, parseLogLevel(logLevel), staticFields))
	if err != nil {
		fatalStderr(foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
	}

	ServerLogger = logger
}

// serverLoggerConfig builds the STRUCTURED profile: JSON to stderr, caller
// and stacktrace capture on, correlation IDs injected by middleware.
func serverLoggerConfig(serviceName, level string, staticFields map[string]any) *logging.LoggerConfig {
	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: level,
		Service:      serviceName,
		Environment:  "production",
		StaticFields: staticFields,
		Middleware: []logging.MiddlewareConfig{
			{
				Name:    "correlation",
				Enabled: true,
				Order:   100,
				Config:  make(map[string]any),
			},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:   "console",
				Format: "json",
				Console: &logging.ConsoleSinkConfig{
					Stream:   "stderr",
					Colorize: false,
				},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

var logLevelNames = map[string]string{
	"trace":   "TRACE",
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// parseLogLevel maps config level strings onto gofulmen severity names,
// defaulting to INFO for anything unrecognized.
func parseLogLevel(levelStr string) string {
	if level, ok := logLevelNames[levelStr]; ok {
		return level
	}
	return "INFO"
}

// fatalStderr reports a fatal initialization error on stderr and exits with
// the semantic exit code. It runs before any logger exists, so stderr is the
// only sink available.
func fatalStderr(exitCode foundry.ExitCode, msg string, err error) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}

	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s (exit code: %d)\n", msg, exitCode)
		os.Exit(int(exitCode))
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}
