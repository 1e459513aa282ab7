package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry records one pipeline run in the history file.
type Entry struct {
	Timestamp time.Time `yaml:"timestamp"`
	RunID     string    `yaml:"run_id"`
	Tag       string    `yaml:"tag"`
	Command   string    `yaml:"command"`
	ExitCode  int       `yaml:"exit_code"`
	Duration  string    `yaml:"duration"`
}

// History wraps the entry list for YAML serialization.
type History struct {
	Entries []Entry `yaml:"entries"`
}

// historyPath returns the history file location inside the state dir.
func historyPath(stateDir string) string {
	return filepath.Join(stateDir, "history.yml")
}

// LoadHistory reads the history file, returning an empty history when
// the file does not exist yet.
func LoadHistory(stateDir string) (*History, error) {
	data, err := os.ReadFile(historyPath(stateDir))
	if os.IsNotExist(err) {
		return &History{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var h History
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parsing history: %w", err)
	}
	return &h, nil
}

// SaveHistory writes the history file, creating the state dir if needed.
func SaveHistory(stateDir string, h *History) error {
	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.WriteFile(historyPath(stateDir), data, 0o644); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}
