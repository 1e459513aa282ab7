// Package runstate persists per-run pipeline state: which steps ran, their
// outcome and timing, artifact checksums, and the resulting release URL.
// State files live under <state_dir>/runs/<run-id>/ next to the step logs.
package runstate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// StepStatus is the lifecycle state of a single pipeline step.
type StepStatus string

const (
	StatusPending StepStatus = "pending"
	StatusRunning StepStatus = "running"
	StatusOK      StepStatus = "ok"
	StatusFailed  StepStatus = "failed"
	StatusSkipped StepStatus = "skipped"
)

// StepRecord captures the outcome of one pipeline step.
type StepRecord struct {
	Name       string     `yaml:"name"`
	Status     StepStatus `yaml:"status"`
	StartedAt  time.Time  `yaml:"started_at,omitempty"`
	FinishedAt time.Time  `yaml:"finished_at,omitempty"`
	LogFile    string     `yaml:"log_file,omitempty"`
	Error      string     `yaml:"error,omitempty"`
}

// Duration returns the wall-clock duration of a finished step.
func (s StepRecord) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// ArtifactRecord describes a built artifact and its checksum.
type ArtifactRecord struct {
	Path   string `yaml:"path"`
	SHA256 string `yaml:"sha256"`
	Size   int64  `yaml:"size"`
}

// RunState is the persisted state of one pipeline run.
type RunState struct {
	ID         string           `yaml:"id"`
	Tag        string           `yaml:"tag"`
	Version    string           `yaml:"version"`
	Commit     string           `yaml:"commit,omitempty"`
	StartedAt  time.Time        `yaml:"started_at"`
	FinishedAt time.Time        `yaml:"finished_at,omitempty"`
	Steps      []StepRecord     `yaml:"steps"`
	Artifacts  []ArtifactRecord `yaml:"artifacts,omitempty"`
	ImageTags  []string         `yaml:"image_tags,omitempty"`
	ReleaseURL string           `yaml:"release_url,omitempty"`

	dir string
}

// NewRunState creates run state for a version, allocating the run ID and
// its directory under the state dir.
func NewRunState(stateDir, tag, version string) (*RunState, error) {
	id := fmt.Sprintf("%s-%d", version, time.Now().Unix())
	dir := filepath.Join(stateDir, "runs", id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	return &RunState{
		ID:        id,
		Tag:       tag,
		Version:   version,
		StartedAt: time.Now(),
		dir:       dir,
	}, nil
}

// Dir returns the run's directory under the state dir.
func (r *RunState) Dir() string {
	return r.dir
}

// LogPath returns the log file path for a named step.
func (r *RunState) LogPath(step string) string {
	return filepath.Join(r.dir, step+".log")
}

// StartStep records a step as running and returns its record index.
func (r *RunState) StartStep(name string) int {
	r.Steps = append(r.Steps, StepRecord{
		Name:      name,
		Status:    StatusRunning,
		StartedAt: time.Now(),
		LogFile:   r.LogPath(name),
	})
	return len(r.Steps) - 1
}

// FinishStep marks a started step as finished with the given outcome.
func (r *RunState) FinishStep(idx int, err error) {
	if idx < 0 || idx >= len(r.Steps) {
		return
	}
	step := &r.Steps[idx]
	step.FinishedAt = time.Now()
	if err != nil {
		step.Status = StatusFailed
		step.Error = err.Error()
	} else {
		step.Status = StatusOK
	}
}

// SkipStep records a step that was not run.
func (r *RunState) SkipStep(name string) {
	r.Steps = append(r.Steps, StepRecord{Name: name, Status: StatusSkipped})
}

// Failed reports whether any step failed.
func (r *RunState) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Save writes the run state to state.yml inside the run directory.
func (r *RunState) Save() error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling run state: %w", err)
	}

	path := filepath.Join(r.dir, "state.yml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run state: %w", err)
	}
	return nil
}

// Load reads the run state for a run ID from the state dir.
func Load(stateDir, id string) (*RunState, error) {
	dir := filepath.Join(stateDir, "runs", id)
	data, err := os.ReadFile(filepath.Join(dir, "state.yml"))
	if err != nil {
		return nil, fmt.Errorf("reading run state for %s: %w", id, err)
	}

	var state RunState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing run state for %s: %w", id, err)
	}
	state.dir = dir
	return &state, nil
}

// ListRuns returns the run IDs recorded under the state dir, newest first.
func ListRuns(stateDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(stateDir, "runs"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	type runDir struct {
		id    string
		mtime time.Time
	}
	dirs := make([]runDir, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, runDir{id: e.Name(), mtime: info.ModTime()})
	}
	// Newest first. Run IDs embed a timestamp but versions sort oddly as
	// strings, so directory mtime is the ordering source.
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mtime.After(dirs[j].mtime) })

	ids := make([]string, len(dirs))
	for i, d := range dirs {
		ids[i] = d.id
	}
	return ids, nil
}

// LatestRun returns the most recent run ID, or empty if none exist.
func LatestRun(stateDir string) (string, error) {
	ids, err := ListRuns(stateDir)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}
