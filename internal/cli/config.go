package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alzymologist/tagrel/internal/config"
	"github.com/alzymologist/tagrel/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tagrel configuration",
	Long: `Manage tagrel configuration settings.

Configuration is loaded with the following priority (highest to lowest):
  1. Environment variables (TAGREL_*)
  2. Project config (.tagrel/config.yml)
  3. User config (~/.config/tagrel/config.yml)
  4. Built-in defaults`,
	Example: `  # Show effective configuration
  tagrel config list

  # Read a single value
  tagrel config get build.command

  # Set a value in the project config
  tagrel config set image.registry ghcr.io/alzymologist`,
}

var configGetCmd = &cobra.Command{
	Use:          "get <key>",
	Short:        "Print one effective configuration value",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if _, ok := config.KnownKeys[key]; !ok {
			return unknownKeyError(key)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		value, ok := configValue(cfg, key)
		if !ok {
			return unknownKeyError(key)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatValue(key, value))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:          "set <key> <value>",
	Short:        "Set a configuration value in the project config",
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if _, ok := config.KnownKeys[key]; !ok {
			return unknownKeyError(key)
		}

		configPath, _ := cmd.Flags().GetString("config")
		if err := config.SetProjectValue(configPath, key, value); err != nil {
			return errors.WrapWithMessage(err, errors.Configuration,
				fmt.Sprintf("setting %s: %v", key, err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List all configuration keys with their effective values",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, key := range config.SortedKeys() {
			value, ok := configValue(cfg, key)
			if !ok {
				continue
			}
			fmt.Fprintf(out, "%-20s = %s\n", key, formatValue(key, value))
		}
		return nil
	},
}

func init() {
	configCmd.GroupID = GroupConfiguration
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
}

func unknownKeyError(key string) error {
	return errors.NewArgumentError(fmt.Sprintf("unknown configuration key %q", key),
		"Run 'tagrel config list' to see known keys")
}

// configValue maps a schema key to its effective value.
func configValue(cfg *config.Configuration, key string) (interface{}, bool) {
	switch key {
	case "build.command":
		return cfg.Build.Command, true
	case "build.artifact":
		return cfg.Build.Artifact, true
	case "build.timeout":
		return cfg.Build.Timeout, true
	case "image.enabled":
		return cfg.Image.Enabled, true
	case "image.registry":
		return cfg.Image.Registry, true
	case "image.name":
		return cfg.Image.Name, true
	case "image.dockerfile":
		return cfg.Image.Dockerfile, true
	case "image.context":
		return cfg.Image.Context, true
	case "release.enabled":
		return cfg.Release.Enabled, true
	case "release.assets":
		return cfg.Release.Assets, true
	case "release.draft":
		return cfg.Release.Draft, true
	case "release.owner":
		return cfg.Release.Owner, true
	case "release.repo":
		return cfg.Release.Repo, true
	case "github_token":
		return cfg.GithubToken, true
	case "registry_token":
		return cfg.RegistryToken, true
	case "registry_user":
		return cfg.RegistryUser, true
	case "callback_url":
		return cfg.CallbackURL, true
	case "changelog":
		return cfg.Changelog, true
	case "state_dir":
		return cfg.StateDir, true
	case "max_history_entries":
		return cfg.MaxHistoryEntries, true
	case "allow_dirty":
		return cfg.AllowDirty, true
	default:
		return nil, false
	}
}

// formatValue renders a value for display, masking credentials.
func formatValue(key string, value interface{}) string {
	switch key {
	case "github_token", "registry_token":
		if s, ok := value.(string); ok && s != "" {
			return "********"
		}
	}
	return fmt.Sprintf("%v", value)
}
