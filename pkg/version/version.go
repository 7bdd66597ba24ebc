// Package version holds build metadata injected with -ldflags.
package version

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
