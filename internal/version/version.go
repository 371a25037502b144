// Package version exposes the build identity stamped in with -ldflags.
package version

// Release builds overwrite these; the defaults mark a source build.
//
//nolint:revive
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
