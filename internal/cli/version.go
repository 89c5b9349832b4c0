package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/unixpickle/dnc"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dnc %s (commit: %s, built: %s, interface layout v%d)\n",
			Version, Commit, BuildDate, dnc.LayoutVersion)
	},
}

// VersionString returns a formatted version string for use in health checks etc.
func VersionString() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
