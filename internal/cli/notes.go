package cli

import (
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alzymologist/tagrel/internal/changelog"
	"github.com/alzymologist/tagrel/internal/errors"
)

var notesCmd = &cobra.Command{
	Use:   "notes [version]",
	Short: "Extract release notes for a version from the changelog",
	Long: `Extract the changelog section for a version in markdown form,
suitable for a release body. The output is written to stdout.

Examples:
  tagrel notes v0.9.2      # Notes for version 0.9.2
  tagrel notes 0.9.2       # Same (v prefix optional)
  tagrel notes unreleased  # Unreleased changes
  tagrel notes --last 5    # Recent entries across versions`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")
		last, _ := cmd.Flags().GetInt("last")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		cl, err := changelog.Load(cfg.Changelog)
		if err != nil {
			return fmt.Errorf("loading changelog: %w", err)
		}

		if last > 0 {
			entries := cl.GetLastN(last)
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No changelog entries.")
				return nil
			}
			return changelog.FormatEntries(entries, cmd.OutOrStdout(),
				changelog.FormatOptions{Plain: plain})
		}

		if len(args) == 0 {
			return errors.NewArgumentErrorWithUsage(
				"a version argument is required unless --last is given",
				"tagrel notes <version>",
				"Example: tagrel notes v0.9.2")
		}

		v, err := cl.GetVersion(args[0])
		if err != nil {
			var notFound *changelog.VersionNotFoundError
			if stderrors.As(err, &notFound) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Version %q not found.\n\n", args[0])
				fmt.Fprintln(cmd.ErrOrStderr(), "Available versions:")
				for _, ver := range cl.ListVersions() {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", ver)
				}
				return NewExitError(ExitInvalidArguments)
			}
			return fmt.Errorf("getting version: %w", err)
		}

		if plain {
			return changelog.RenderNotes(v, cmd.OutOrStdout())
		}
		return changelog.FormatVersion(v, cmd.OutOrStdout(), changelog.FormatOptions{})
	},
}

func init() {
	notesCmd.GroupID = GroupPipeline
	rootCmd.AddCommand(notesCmd)

	notesCmd.Flags().Bool("plain", false, "Plain markdown output without color or icons")
	notesCmd.Flags().IntP("last", "n", 0, "Show the last N entries across versions")
}
