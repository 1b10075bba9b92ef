// Package env holds build-time identification, overridden via -ldflags at
// release build time (e.g. -X .../internal/env.Version=v1.2.3).
package env

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)
