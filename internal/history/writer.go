// Package history records pipeline runs to a YAML history file with
// automatic pruning, so `tagrel history` can show what shipped when.
package history

import (
	"fmt"
	"os"
	"time"
)

// Writer provides history logging with automatic pruning.
type Writer struct {
	// StateDir is the directory containing the history file.
	StateDir string
	// MaxEntries is the maximum number of entries to retain.
	MaxEntries int
}

// NewWriter creates a new history writer.
func NewWriter(stateDir string, maxEntries int) *Writer {
	return &Writer{
		StateDir:   stateDir,
		MaxEntries: maxEntries,
	}
}

// LogEntry adds a new entry to the history file.
// It loads the existing history, appends the new entry, prunes if needed,
// and saves. Errors are non-fatal: they are written to stderr and don't
// cause command failures.
func (w *Writer) LogEntry(entry Entry) {
	if err := w.logEntryInternal(entry); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to log history: %v\n", err)
	}
}

func (w *Writer) logEntryInternal(entry Entry) error {
	h, err := LoadHistory(w.StateDir)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	h.Entries = append(h.Entries, entry)

	// Prune oldest entries if over limit
	if w.MaxEntries > 0 && len(h.Entries) > w.MaxEntries {
		excess := len(h.Entries) - w.MaxEntries
		h.Entries = h.Entries[excess:]
	}

	if err := SaveHistory(w.StateDir, h); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}

	return nil
}

// LogRun is a convenience method to record a pipeline run.
func (w *Writer) LogRun(command, runID, tag string, exitCode int, duration time.Duration) {
	w.LogEntry(Entry{
		Timestamp: time.Now(),
		RunID:     runID,
		Tag:       tag,
		Command:   command,
		ExitCode:  exitCode,
		Duration:  duration.String(),
	})
}
