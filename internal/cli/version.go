package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alzymologist/tagrel/internal/version"
)

var versionCmd = &cobra.Command{
	Use:          "version",
	Short:        "Print version information",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "tagrel %s\n", version.Version)
		fmt.Fprintf(out, "  commit: %s\n", version.Commit)
		fmt.Fprintf(out, "  built:  %s\n", version.BuildDate)
		if version.IsDevBuild() {
			fmt.Fprintln(out, "  (development build, not a tagged release)")
		}
		return nil
	},
}

func init() {
	versionCmd.GroupID = GroupInspection
	rootCmd.AddCommand(versionCmd)
}
