package cmd

import (
	"fmt"

	"vantage/internal/version"

	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of vantage.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		out := newOutputWriter(outputFormat, cmd.OutOrStdout())
		if outputFormat == "table" {
			fmt.Fprintf(cmd.OutOrStdout(), "vantage %s\n", info.String())
			fmt.Fprintln(cmd.OutOrStdout(), info.Full())
			return nil
		}
		return out.Write(info, nil, []string{info.Version})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
