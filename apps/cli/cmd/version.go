package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionShortFlag bool

// versionCmd reports the build stamped in by main with -ldflags.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the hitshell build",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if versionShortFlag {
			fmt.Fprintln(out, version)
			return
		}
		fmt.Fprintf(out, "hitshell %s\n", version)
		fmt.Fprintf(out, "  built:    %s\n", buildTime)
		fmt.Fprintf(out, "  go:       %s\n", runtime.Version())
		fmt.Fprintf(out, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShortFlag, "short", false, "Print only the version number")
}
