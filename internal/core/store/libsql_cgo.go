//go:build cgo

package store

// The libsql driver is cgo-only; registering it here keeps pure-Go builds
// compiling while cgo builds retain the embedded driver.
import _ "github.com/tursodatabase/go-libsql"
