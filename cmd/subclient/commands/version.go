package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/PolymeshAssociation/polymesh-api-sub001/version"
)

func init() {
	VersionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show build details")
}

// VersionCmd ...
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Version:", version.VersionWithMeta)
		if !verbose {
			return
		}
		if version.Commit != "" {
			fmt.Fprintln(out, "Git Commit:", version.Commit)
		}
		if version.Date != "" {
			fmt.Fprintln(out, "Git Commit Date:", version.Date)
		}
		fmt.Fprintln(out, "Architecture:", runtime.GOARCH)
		fmt.Fprintln(out, "Go Version:", runtime.Version())
		fmt.Fprintln(out, "Operating System:", runtime.GOOS)
	},
}
