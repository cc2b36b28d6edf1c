package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
)

var showExtended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended to include build, Go, and foundation library details.",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&showExtended, "extended", "e", false, "show extended version information")
}

func runVersion(cmd *cobra.Command, args []string) error {
	identity := GetAppIdentity()

	fmt.Printf("%s %s\n", identity.BinaryName, versionInfo.Version)
	if !showExtended {
		return nil
	}

	fmt.Printf("Commit: %s\n", versionInfo.Commit)
	fmt.Printf("Built: %s\n", versionInfo.BuildDate)
	fmt.Printf("Go: %s\n", runtime.Version())

	deps := crucible.GetVersion()
	fmt.Printf("\nGofulmen: %s\n", deps.Gofulmen)
	fmt.Printf("Crucible: %s\n", deps.Crucible)
	return nil
}
