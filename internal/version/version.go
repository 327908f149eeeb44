// Package version exposes the crewkit release version embedded at build time.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var raw string

// Get returns the release version string.
func Get() string {
	return strings.TrimSpace(raw)
}
