package main

import (
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/handlescan/handlescan/internal/cmd"
	"github.com/handlescan/handlescan/internal/server/handlers"
)

// Stamped at build time, e.g.
// go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2026-08-20"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		// Commands log their own failures; this catches anything that
		// escaped without one.
		cmd.ExitWithCodeStderr(foundry.ExitFailure, "Command execution failed", err)
	}
}
