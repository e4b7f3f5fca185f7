package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nunu-cli/pkg/version"
)

var versionShort bool

// versionCmd prints build information; --short prints the bare version for scripts
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version, commit and build time of nunu-cli.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if versionShort {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get())
			return
		}
		version.Print(cmd.OutOrStdout())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")

	rootCmd.Version = version.Get()
	rootCmd.SetVersionTemplate("Nunu CLI v{{.Version}}\n")
	rootCmd.AddCommand(versionCmd)
}
