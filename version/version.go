// Package version holds build information, overridden with -ldflags -X.
package version

var (
	Version = "devel"
	Commit  = "unknown"
)
