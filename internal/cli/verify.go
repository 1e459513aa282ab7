package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alzymologist/tagrel/internal/preflight"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [tag]",
	Short: "Check release prerequisites without running the pipeline",
	Long: `Check release prerequisites: the release tag, worktree state, the
changelog section for the version, required tools, and credentials.

Exits with the preflight failure code when any check fails, so CI jobs
can gate on it before tagging.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		report := preflight.Run(preflight.Context{
			RepoPath: workingDir(),
			Tag:      tagFromArgs(args),
			Cfg:      cfg,
		})

		fmt.Fprint(cmd.OutOrStdout(), preflight.FormatReport(report))

		if !report.Passed {
			return NewExitError(ExitPreflightFailed)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nReady to release %s\n", report.Version.Tag)
		return nil
	},
}

func init() {
	verifyCmd.GroupID = GroupPipeline
	rootCmd.AddCommand(verifyCmd)
}
