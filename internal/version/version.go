package version

// Version contains the application version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X github.com/geoforge/gml2step/internal/version.Version=v1.2.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Full renders the version plus whatever build metadata the ldflags set,
// e.g. "v1.2.0 (commit 3f9c1a2, built 2026-08-31)".
func Full() string {
	s := Version
	if GitCommit != "unknown" && GitCommit != "" {
		s += " (commit " + GitCommit
		if BuildTime != "unknown" && BuildTime != "" {
			s += ", built " + BuildTime
		}
		s += ")"
	} else if BuildTime != "unknown" && BuildTime != "" {
		s += " (built " + BuildTime + ")"
	}
	return s
}
