package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/alzymologist/tagrel/internal/errors"
	"github.com/alzymologist/tagrel/internal/logtail"
	"github.com/alzymologist/tagrel/internal/runstate"
)

// followPoll is how often the follower re-reads the run state and step
// logs. Shortened in tests.
var followPoll = 200 * time.Millisecond

var logsCmd = &cobra.Command{
	Use:   "logs [run-id]",
	Short: "Print step logs for a pipeline run",
	Long: `Print step logs for a pipeline run. The run defaults to the most
recent one. With --step only that step's log is shown. With --follow
the log is tailed while the run is in progress; without --step the
follower switches to the next step's log as the run advances and stops
when the run finishes.

Examples:
  tagrel logs                    # All step logs of the latest run
  tagrel logs --step build       # Only the build log
  tagrel logs --step build -f    # Tail the build log of the active run
  tagrel logs -f                 # Follow the whole run, step by step
  tagrel logs 0.9.2-1756200000   # Logs of a specific run`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		step, _ := cmd.Flags().GetString("step")
		follow, _ := cmd.Flags().GetBool("follow")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		runID := tagFromArgs(args)
		if runID == "" {
			runID, err = runstate.LatestRun(cfg.StateDir)
			if err != nil || runID == "" {
				return errors.NewArgumentError("no pipeline runs recorded",
					"Run 'tagrel run' first")
			}
		}

		state, err := runstate.Load(cfg.StateDir, runID)
		if err != nil {
			return errors.NewArgumentError(fmt.Sprintf("run %s not found: %v", runID, err),
				"List known runs with 'tagrel history'")
		}

		if follow {
			if step != "" {
				return followLog(cmd, state.LogPath(step))
			}
			return followRun(cmd.Context(), cmd.OutOrStdout(), cfg.StateDir, state.ID)
		}

		if step != "" {
			return printLog(cmd, state.LogPath(step))
		}
		return printAllLogs(cmd, state)
	},
}

func init() {
	logsCmd.GroupID = GroupInspection
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringP("step", "s", "", "Step name (verify, build, notes, image, release)")
	logsCmd.Flags().BoolP("follow", "f", false, "Tail the log as it grows")
}

func printLog(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading log %s: %w", path, err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// printAllLogs prints every step log of a run in step order, with a
// header per step.
func printAllLogs(cmd *cobra.Command, state *runstate.RunState) error {
	paths := make([]string, 0, len(state.Steps))
	seen := make(map[string]bool)
	for _, step := range state.Steps {
		if step.LogFile != "" && !seen[step.LogFile] {
			paths = append(paths, step.LogFile)
			seen[step.LogFile] = true
		}
	}
	if len(paths) == 0 {
		// Older runs may predate step records; fall back to the dir.
		entries, err := filepath.Glob(filepath.Join(state.Dir(), "*.log"))
		if err == nil {
			sort.Strings(entries)
			paths = entries
		}
	}

	out := cmd.OutOrStdout()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "==> %s <==\n", filepath.Base(path))
		out.Write(data)
		fmt.Fprintln(out)
	}
	return nil
}

// followLog tails a step log until interrupted or the file stops
// growing after the run completes.
func followLog(cmd *cobra.Command, path string) error {
	tailer, err := logtail.NewTailer(path)
	if err != nil {
		return fmt.Errorf("opening tailer: %w", err)
	}
	defer tailer.Close()

	lines, err := tailer.Tail(cmd.Context(), true)
	if err != nil {
		return fmt.Errorf("tailing %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	for line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}

// followRun streams a run's step logs in pipeline order, printing a
// header and switching files whenever the run advances to a new step.
// It returns once the run state records a finish time.
func followRun(ctx context.Context, out io.Writer, stateDir, runID string) error {
	offsets := make(map[string]int64)
	current := ""
	loaded := false

	for {
		state, err := runstate.Load(stateDir, runID)
		if err != nil && !loaded {
			return fmt.Errorf("reading run state: %w", err)
		}
		// The pipeline rewrites state.yml between steps, so a poll can
		// catch a partial write. Once the run is known to exist such
		// errors are transient and the next poll retries.
		if err == nil {
			loaded = true

			for _, step := range state.Steps {
				if step.LogFile == "" {
					continue
				}
				if err := copyNewLog(out, step.LogFile, offsets, &current); err != nil {
					return err
				}
			}

			// Step logs are closed before the final state is written,
			// so the pass above has drained everything by the time the
			// finish time appears.
			if !state.FinishedAt.IsZero() {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(followPoll):
		}
	}
}

// copyNewLog writes any bytes of path past the recorded offset to out,
// emitting a file header when the output switches to a new log.
func copyNewLog(out io.Writer, path string, offsets map[string]int64, current *string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	offset := offsets[path]
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	if *current != path {
		if *current != "" {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "==> %s <==\n", filepath.Base(path))
		*current = path
	}

	if _, err := out.Write(data); err != nil {
		return err
	}
	offsets[path] = offset + int64(len(data))
	return nil
}
