package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alzymologist/tagrel/internal/history"
	"github.com/alzymologist/tagrel/internal/pipeline"
	"github.com/alzymologist/tagrel/internal/progress"
)

var runCmd = &cobra.Command{
	Use:   "run [tag]",
	Short: "Run the full release pipeline for a tagged commit",
	Long: `Run the full release pipeline: verify, build, notes, image, release.

The tag defaults to the release tag pointing at HEAD. Steps run in a
fixed order and the pipeline stops at the first failure. Step output is
streamed to the console and to per-run log files under the state
directory.

Examples:
  # Release the tag at HEAD
  tagrel run

  # Release an explicit tag
  tagrel run v0.9.2

  # Release without pushing an image
  tagrel run --skip image`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		skip, _ := cmd.Flags().GetStringSlice("skip")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")
		allowDirty, _ := cmd.Flags().GetBool("allow-dirty")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if allowDirty {
			cfg.AllowDirty = true
		}

		if !dryRun && !yes {
			ok, err := confirmRun(cmd)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		p := pipeline.New(pipeline.Options{
			Cfg:      cfg,
			RepoPath: workingDir(),
			Tag:      tagFromArgs(args),
			Skip:     skip,
			DryRun:   dryRun,
			Out:      cmd.OutOrStdout(),
			Display:  progress.NewDisplay(),
		})

		started := time.Now()
		result, runErr := p.Run(cmd.Context())

		writer := history.NewWriter(cfg.StateDir, cfg.MaxHistoryEntries)
		runID, tag := "", tagFromArgs(args)
		if result != nil {
			runID, tag = result.RunID, result.Version.Tag
		}
		writer.LogRun("run", runID, tag, ExitCode(runErr), time.Since(started))

		if runErr != nil {
			return runErr
		}

		out := cmd.OutOrStdout()
		if dryRun {
			fmt.Fprintf(out, "\nDry run complete for %s (run %s)\n", result.Version.Tag, result.RunID)
			return nil
		}
		fmt.Fprintf(out, "\nReleased %s (run %s)\n", result.Version.Tag, result.RunID)
		for _, ref := range result.ImageRefs {
			fmt.Fprintf(out, "  image: %s\n", ref)
		}
		if result.ReleaseURL != "" {
			fmt.Fprintf(out, "  release: %s\n", result.ReleaseURL)
		}
		return nil
	},
}

func init() {
	runCmd.GroupID = GroupPipeline
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSlice("skip", nil, "Step names to skip (image, release)")
	runCmd.Flags().Bool("dry-run", false, "Verify and extract notes without building or publishing")
	runCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	runCmd.Flags().Bool("allow-dirty", false, "Proceed despite a dirty worktree")
}

// stdinIsTerminal reports whether stdin is an interactive terminal.
// Replaced in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// confirmRun asks for confirmation before a real release. Runs without
// an interactive stdin (CI pipelines) proceed without prompting.
func confirmRun(cmd *cobra.Command) (bool, error) {
	if !stdinIsTerminal() {
		return true, nil
	}

	fmt.Fprint(cmd.OutOrStdout(), "Run the release pipeline? [y/N] ")
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
