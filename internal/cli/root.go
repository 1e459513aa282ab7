// Package cli implements the tagrel command tree. Commands map their
// errors to structured exit codes so CI jobs can branch on the failure
// class.
package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alzymologist/tagrel/internal/buildstep"
	"github.com/alzymologist/tagrel/internal/errors"
	"github.com/alzymologist/tagrel/internal/gitrepo"
	"github.com/alzymologist/tagrel/internal/version"
)

// Command group IDs for help output.
const (
	GroupPipeline      = "pipeline"
	GroupInspection    = "inspection"
	GroupConfiguration = "configuration"
)

var rootCmd = &cobra.Command{
	Use:   "tagrel",
	Short: "Tag-triggered release pipeline",
	Long: `tagrel runs the release pipeline for a version-tagged commit:
verify the tag and changelog, build the binary, extract release notes,
publish the container image, and create the hosted release.

Run 'tagrel run' from a checkout whose HEAD carries a v-prefixed semver
tag, or pass the tag explicitly to any pipeline command.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			gitrepo.SetDebugLogger(func(format string, args ...any) {
				fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
			})
		}
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupPipeline, Title: "Pipeline Commands:"},
		&cobra.Group{ID: GroupInspection, Title: "Inspection Commands:"},
		&cobra.Group{ID: GroupConfiguration, Title: "Configuration Commands:"},
	)

	rootCmd.PersistentFlags().String("config", "", "Path to project config file (default .tagrel/config.yml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// Execute runs the root command and prints structured errors. The
// returned error carries the exit code; use ExitCode to extract it.
func Execute() error {
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if !stderrors.As(err, &exitErr) {
		printCommandError(err)
	}
	return err
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}

	var timeoutErr *buildstep.TimeoutError
	if stderrors.As(err, &timeoutErr) {
		return ExitTimeout
	}

	if cliErr := errors.AsCLIError(err); cliErr != nil {
		switch cliErr.Category {
		case errors.Argument:
			return ExitInvalidArguments
		case errors.Configuration:
			return ExitMissingDependencies
		case errors.Preflight:
			return ExitPreflightFailed
		case errors.Step:
			return ExitStepFailed
		}
	}

	return ExitStepFailed
}

// printCommandError renders an error to stderr, with remediation steps
// for structured errors.
func printCommandError(err error) {
	if cliErr := errors.AsCLIError(err); cliErr != nil {
		errors.PrintError(cliErr)
		return
	}
	errors.PrintSimpleError(err, errors.Step)
}
