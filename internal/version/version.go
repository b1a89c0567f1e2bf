// Package version exposes build metadata. The values are overwritten through
// -ldflags "-X github.com/kailas-cloud/sharingan/internal/version.Version=..." in CI.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
