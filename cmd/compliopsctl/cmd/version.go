package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/compliops/pkg/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit, and build time of compliopsctl.`,
	Run: func(cmd *cobra.Command, args []string) {
		if GetOutput() == "json" {
			data, _ := json.MarshalIndent(config.GetBuildInfo(), "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), config.VersionString())
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
