package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chartflow/chartflow/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		ver, commit, date := version.Info()
		fmt.Fprintf(cmd.OutOrStdout(), "chartflow version %s\nCommit: %s\nDate: %s\n", ver, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
