package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/peervote/pkg/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit, and build time of peervote.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if GetOutput() == "json" {
			return printJSON(cmd.OutOrStdout(), config.Build())
		}
		fmt.Fprintln(cmd.OutOrStdout(), config.Build().String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
