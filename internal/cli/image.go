package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alzymologist/tagrel/internal/errors"
	"github.com/alzymologist/tagrel/internal/image"
)

var imageCmd = &cobra.Command{
	Use:   "image [tag]",
	Short: "Build and push the container image",
	Long: `Build the container image for a version and push it to the
configured registry. The image is tagged with the semver and, for
non-prerelease versions, with latest.

Requires image.registry and image.name in the configuration.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Image.Registry == "" || cfg.Image.Name == "" {
			return errors.NewConfigError("image.registry and image.name must be set",
				"tagrel config set image.registry ghcr.io/<owner>",
				"tagrel config set image.name <project>")
		}

		v, err := resolveVersion(workingDir(), tagFromArgs(args))
		if err != nil {
			return err
		}

		publisher := image.NewPublisher(image.Options{
			Registry:   cfg.Image.Registry,
			Name:       cfg.Image.Name,
			Dockerfile: cfg.Image.Dockerfile,
			Context:    cfg.Image.Context,
			Username:   cfg.RegistryUser,
			Token:      cfg.RegistryToken,
			DryRun:     dryRun,
		})

		refs, err := publisher.Publish(cmd.Context(), v, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		for _, ref := range refs {
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %s\n", ref)
		}
		return nil
	},
}

func init() {
	imageCmd.GroupID = GroupPipeline
	rootCmd.AddCommand(imageCmd)

	imageCmd.Flags().Bool("dry-run", false, "Print docker commands without executing them")
}
