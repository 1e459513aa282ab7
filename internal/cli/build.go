package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alzymologist/tagrel/internal/buildstep"
)

var buildCmd = &cobra.Command{
	Use:   "build [tag]",
	Short: "Run only the build step",
	Long: `Run the configured build command for a version and verify the
artifact it produces. Output streams to the console.

The build command may reference {{VERSION}} and {{TAG}}, which expand
to the shell-quoted semver and tag.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		v, err := resolveVersion(workingDir(), tagFromArgs(args))
		if err != nil {
			return err
		}

		timeout := time.Duration(cfg.Build.Timeout) * time.Second
		runner := buildstep.NewRunner(cfg.Build.Command, workingDir(), timeout)

		fmt.Fprintf(cmd.OutOrStdout(), "Running: %s\n", runner.ExpandCommand(v))
		if err := runner.Run(cmd.Context(), v, cmd.OutOrStdout()); err != nil {
			return err
		}

		artifact, err := buildstep.ResolveArtifact(cfg.Build.Artifact)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Built %s (%d bytes, sha256 %s)\n",
			artifact.Path, artifact.Size, artifact.SHA256)
		return nil
	},
}

func init() {
	buildCmd.GroupID = GroupPipeline
	rootCmd.AddCommand(buildCmd)
}
