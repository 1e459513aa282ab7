package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alzymologist/tagrel/internal/config"
	"github.com/alzymologist/tagrel/internal/errors"
	"github.com/alzymologist/tagrel/internal/gitrepo"
)

// loadConfig loads configuration, honoring the --config flag.
func loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, errors.WrapWithMessage(err, errors.Configuration,
			fmt.Sprintf("loading configuration: %v", err),
			"Check .tagrel/config.yml for syntax errors",
			"Run 'tagrel config list' to see known keys")
	}
	return cfg, nil
}

// tagFromArgs returns the optional tag argument, or empty to detect
// the release tag from HEAD.
func tagFromArgs(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// resolveVersion resolves the version under release from an explicit
// tag or from the tags at HEAD.
func resolveVersion(repoPath, tag string) (gitrepo.Version, error) {
	if tag != "" {
		v, err := gitrepo.ParseTag(tag)
		if err != nil {
			return gitrepo.Version{}, errors.NewArgumentError(err.Error(),
				"Release tags look like v1.2.3 or v1.2.3-rc.1")
		}
		return v, nil
	}

	v, err := gitrepo.DetectReleaseTag(repoPath)
	if err != nil {
		return gitrepo.Version{}, errors.NewPreflightError(err.Error(),
			"Tag the commit first: git tag v<version>",
			"Or pass the tag explicitly: tagrel run v<version>")
	}
	return v, nil
}

// workingDir returns the current directory, which commands use as the
// repository path.
func workingDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}
