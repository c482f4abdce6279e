package common

import (
	"fmt"
)

// Version information (set via -ldflags during build)
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// Evolution contract version stamped into eligibility snapshots. Bumped only
// when the strategy registry or resolver semantics change.
const (
	EvolutionVersion    = "v1"
	EvolutionFrozenDate = "2026-01-29"
)

// GetVersion returns the current version string
func GetVersion() string {
	return Version
}

// GetFullVersion returns version with build info
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}
