package appidentityassets

import _ "embed"

// YAML is the embedded copy of `.fulmen/app.yaml`, mirrored into a Go-embeddable
// location so the handlescan binary resolves its identity without a repo checkout.
// The two files must stay in sync.
//
//go:embed app.yaml
var YAML []byte
