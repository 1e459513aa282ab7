package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/alzymologist/tagrel/internal/history"
)

var historyCmd = &cobra.Command{
	Use:          "history",
	Short:        "List recorded pipeline runs",
	Long:         `List recorded pipeline runs with timestamp, run ID, tag, exit code, and duration.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runHistory(cmd, cfg.StateDir)
	},
}

func init() {
	historyCmd.GroupID = GroupInspection
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringP("tag", "t", "", "Filter by release tag")
	historyCmd.Flags().IntP("limit", "n", 0, "Limit to last N entries (most recent)")
}

func runHistory(cmd *cobra.Command, stateDir string) error {
	tagFilter, _ := cmd.Flags().GetString("tag")
	limit, _ := cmd.Flags().GetInt("limit")

	if limit < 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}

	hist, err := history.LoadHistory(stateDir)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	entries := filterEntries(hist.Entries, tagFilter, limit)
	if len(entries) == 0 {
		if tagFilter != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "No matching entries for tag %q.\n", tagFilter)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No history available.")
		}
		return nil
	}

	displayEntries(cmd, entries)
	return nil
}

// filterEntries filters and limits history entries.
func filterEntries(entries []history.Entry, tagFilter string, limit int) []history.Entry {
	var result []history.Entry

	for _, entry := range entries {
		if tagFilter == "" || entry.Tag == tagFilter {
			result = append(result, entry)
		}
	}

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}

	return result
}

// displayEntries formats and displays history entries.
func displayEntries(cmd *cobra.Command, entries []history.Entry) {
	out := cmd.OutOrStdout()

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	for _, entry := range entries {
		timestamp := entry.Timestamp.Format("2006-01-02 15:04:05")

		exitCodeStr := fmt.Sprintf("%d", entry.ExitCode)
		if entry.ExitCode == 0 {
			exitCodeStr = green(exitCodeStr)
		} else {
			exitCodeStr = red(exitCodeStr)
		}

		tag := entry.Tag
		if tag == "" {
			tag = "-"
		}

		fmt.Fprintf(out, "%s  %s  %-12s  exit=%s  %s\n",
			cyan(timestamp),
			fmt.Sprintf("%-10s", entry.Command),
			tag,
			exitCodeStr,
			entry.Duration,
		)
	}
}
