// Package version exposes build metadata injected with -ldflags.
package version

// Set at build time:
//
//	go build -ldflags "-X github.com/stockdesk/stockdesk/pkg/version.version=1.2.0"
//
//nolint:gochecknoglobals // ldflags targets must be package variables.
var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// GetVersion returns the semantic version of the binary.
func GetVersion() string {
	return version
}

// GetGitCommit returns the commit the binary was built from.
func GetGitCommit() string {
	return gitCommit
}

// GetBuildDate returns the build timestamp.
func GetBuildDate() string {
	return buildDate
}
