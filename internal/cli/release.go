package cli

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alzymologist/tagrel/internal/buildstep"
	"github.com/alzymologist/tagrel/internal/changelog"
	"github.com/alzymologist/tagrel/internal/config"
	"github.com/alzymologist/tagrel/internal/errors"
	"github.com/alzymologist/tagrel/internal/ghrelease"
	"github.com/alzymologist/tagrel/internal/gitrepo"
)

var releaseCmd = &cobra.Command{
	Use:   "release [tag]",
	Short: "Create the hosted release and upload assets",
	Long: `Create a release for the tag with the changelog section as its body,
then upload the build artifact and any configured extra assets.

Assumes the artifact was already built; pass --build to run the build
step first. A release that already exists for the tag is an error.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		withBuild, _ := cmd.Flags().GetBool("build")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.GithubToken == "" {
			return errors.NewConfigError("github_token is not set",
				"Set the GITHUB_TOKEN environment variable",
				"Or: tagrel config set github_token <token>")
		}

		v, err := resolveVersion(workingDir(), tagFromArgs(args))
		if err != nil {
			return err
		}

		if withBuild {
			timeout := time.Duration(cfg.Build.Timeout) * time.Second
			runner := buildstep.NewRunner(cfg.Build.Command, workingDir(), timeout)
			if err := runner.Run(cmd.Context(), v, cmd.OutOrStdout()); err != nil {
				return err
			}
		}

		artifact, err := buildstep.ResolveArtifact(cfg.Build.Artifact)
		if err != nil {
			return errors.WrapWithMessage(err, errors.Preflight,
				fmt.Sprintf("build artifact not ready: %v", err),
				"Run 'tagrel build' first, or pass --build")
		}

		cl, err := changelog.Load(cfg.Changelog)
		if err != nil {
			return fmt.Errorf("loading changelog: %w", err)
		}
		entry, err := cl.GetVersion(v.Semver)
		if err != nil {
			return err
		}
		notes := changelog.RenderNotesString(entry)

		client, err := releaseClient(cfg)
		if err != nil {
			return err
		}

		release, err := client.CreateRelease(cmd.Context(), ghrelease.CreateRequest{
			TagName:    v.Tag,
			Name:       v.Tag,
			Body:       notes,
			Draft:      cfg.Release.Draft,
			Prerelease: v.IsPrerelease(),
		})
		if err != nil {
			var exists *ghrelease.AlreadyExistsError
			if stderrors.As(err, &exists) {
				return errors.WrapWithMessage(err, errors.Preflight, err.Error(),
					"Delete the existing release first, or tag a new version")
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created release %s\n", release.HTMLURL)

		assets := append([]string{artifact.Path}, cfg.Release.Assets...)
		uploaded, err := client.UploadAssets(cmd.Context(), release, assets)
		if err != nil {
			return err
		}
		for _, a := range uploaded {
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s\n", a.Name)
		}
		return nil
	},
}

// releaseClient builds the release API client, resolving owner/repo
// from configuration or the origin remote.
func releaseClient(cfg *config.Configuration) (*ghrelease.Client, error) {
	owner, repo := cfg.Release.Owner, cfg.Release.Repo
	if owner == "" || repo == "" {
		remote, err := gitrepo.DetectRemote(workingDir())
		if err != nil {
			return nil, errors.WrapWithMessage(err, errors.Configuration,
				fmt.Sprintf("resolving release repository: %v", err),
				"Set release.owner and release.repo in the configuration")
		}
		if owner == "" {
			owner = remote.Owner
		}
		if repo == "" {
			repo = remote.Repo
		}
	}
	return ghrelease.NewClient(owner, repo, cfg.GithubToken), nil
}

func init() {
	releaseCmd.GroupID = GroupPipeline
	rootCmd.AddCommand(releaseCmd)

	releaseCmd.Flags().Bool("build", false, "Run the build step before creating the release")
}
