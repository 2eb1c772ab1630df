// Package buildinfo holds release metadata stamped in at link time, e.g.
//
//	go build -ldflags "-X github.com/cleared-dev/ofxsync/internal/buildinfo.Version=v0.3.0" ./cmd/ofxsync
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String is the line printed by --version.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}

// UserAgent identifies ofxsync to the remote API.
func UserAgent() string {
	return "ofxsync/" + Version
}
