package app

// Set with -ldflags "-X github.com/hyperifyio/notelink/internal/app.BuildVersion=...".
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// Version formats the build information for -version and startup logs.
func Version() string {
	return "notelink " + BuildVersion + " (" + BuildCommit + ", " + BuildDate + ")"
}
