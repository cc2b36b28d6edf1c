// Package appid resolves the application identity, preferring an on-disk
// .fulmen/app.yaml and falling back to the copy compiled into the binary.
package appid

import (
	"context"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/handlescan/handlescan/internal/assets/appidentity"
)

func init() {
	// Explicit overrides (Options.ExplicitPath and FULMEN_APP_IDENTITY_PATH)
	// still win over the embedded copy, so a failed registration only costs
	// the standalone fallback.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

// Get returns the resolved identity for this process.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}
