package buildinfo

import "fmt"

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/goalbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/goalbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/goalbot/core/buildinfo.Date=2026-10-15T12:00:00Z'
//
// Default values are useful for local dev.
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders a single human readable line for `goalbot version`.
func String() string {
	if Date == "" {
		return fmt.Sprintf("goalbot %s (%s)", Version, Commit)
	}
	return fmt.Sprintf("goalbot %s (%s, built %s)", Version, Commit, Date)
}
