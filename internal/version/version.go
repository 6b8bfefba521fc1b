package version

import "fmt"

// Version is set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/walletpool/internal/version.Version=v1.0.0".
var Version = "dev"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by `walletpool --version` and /health.
func String() string {
	return fmt.Sprintf("walletpool %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
