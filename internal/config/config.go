// Package config provides hierarchical configuration management for tagrel
// using koanf. Configuration is loaded with priority: environment variables >
// project config (.tagrel/config.yml) > user config (~/.config/tagrel/config.yml)
// > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Configuration represents the tagrel CLI tool configuration.
type Configuration struct {
	// Build configures the binary build step.
	Build BuildConfig `koanf:"build"`
	// Image configures the container image step.
	Image ImageConfig `koanf:"image"`
	// Release configures release creation and asset upload.
	Release ReleaseConfig `koanf:"release"`

	// GithubToken is the API token for release creation.
	// Can be set via TAGREL_GITHUB_TOKEN; GITHUB_TOKEN is a fallback.
	GithubToken string `koanf:"github_token"`
	// RegistryToken is the password/token for docker login.
	// Falls back to GithubToken when empty (ghcr.io accepts it).
	RegistryToken string `koanf:"registry_token"`
	// RegistryUser is the username for docker login.
	RegistryUser string `koanf:"registry_user"`

	// CallbackURL, when set, receives a JSON release summary POST after
	// a successful run. Delivery failures do not fail the pipeline.
	CallbackURL string `koanf:"callback_url"`

	// Changelog is the path of the changelog file sliced for release notes.
	Changelog string `koanf:"changelog"`

	// StateDir is the directory for run state and step logs.
	StateDir string `koanf:"state_dir"`
	// MaxHistoryEntries caps the run history; oldest entries are pruned.
	MaxHistoryEntries int `koanf:"max_history_entries"`
	// AllowDirty permits running the pipeline with uncommitted changes.
	AllowDirty bool `koanf:"allow_dirty"`
}

// BuildConfig configures the binary build step.
type BuildConfig struct {
	// Command is the build command; {{VERSION}} and {{TAG}} placeholders
	// are expanded (shell-quoted) before execution.
	Command string `koanf:"command"`
	// Artifact is the path of the binary the command must produce.
	Artifact string `koanf:"artifact"`
	// Timeout is the build timeout in seconds (0 = no timeout).
	Timeout int `koanf:"timeout"`
}

// ImageConfig configures the container image step.
type ImageConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Registry   string `koanf:"registry"`
	Name       string `koanf:"name"`
	Dockerfile string `koanf:"dockerfile"`
	Context    string `koanf:"context"`
}

// ReleaseConfig configures release creation.
type ReleaseConfig struct {
	Enabled bool     `koanf:"enabled"`
	Assets  []string `koanf:"assets"`
	Draft   bool     `koanf:"draft"`
	// Owner and Repo identify the hosting repository; when empty they
	// are detected from the origin remote.
	Owner string `koanf:"owner"`
	Repo  string `koanf:"repo"`
}

// Load loads configuration from user, project, and environment sources.
// Priority: Environment variables > Project config > User config > Defaults.
// projectConfigPath overrides the project config location (empty = default).
func Load(projectConfigPath string) (*Configuration, error) {
	k := koanf.New(".")

	loadDefaults(k)

	userPath, _ := UserConfigPath()
	if fileExists(userPath) {
		if err := k.Load(file.Provider(userPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading user config %s: %w", userPath, err)
		}
	}

	projectPath := ProjectConfigPath()
	if projectConfigPath != "" {
		projectPath = projectConfigPath
	}
	switch {
	case fileExists(projectPath):
		parser, err := parserFor(projectPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(projectPath), parser); err != nil {
			return nil, fmt.Errorf("loading project config %s: %w", projectPath, err)
		}
	case fileExists(legacyProjectConfigPath()):
		// JSON project configs predate the YAML layout and still load.
		if err := k.Load(file.Provider(legacyProjectConfigPath()), json.Parser()); err != nil {
			return nil, fmt.Errorf("loading project config %s: %w", legacyProjectConfigPath(), err)
		}
	}

	if err := k.Load(env.Provider("TAGREL_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment config: %w", err)
	}

	return finalizeConfig(k)
}

// loadDefaults applies default configuration values from the key schema.
func loadDefaults(k *koanf.Koanf) {
	for key, schema := range KnownKeys {
		k.Set(key, schema.Default)
	}
}

// finalizeConfig unmarshals, validates, and applies final transformations.
func finalizeConfig(k *koanf.Koanf) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.StateDir = expandHomePath(cfg.StateDir)

	if cfg.GithubToken == "" {
		cfg.GithubToken = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.RegistryToken == "" {
		cfg.RegistryToken = cfg.GithubToken
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateConfig checks cross-field constraints that the key schema
// cannot express.
func validateConfig(cfg *Configuration) error {
	if cfg.Build.Command == "" {
		return fmt.Errorf("build.command must not be empty")
	}
	if cfg.Build.Timeout < 0 {
		return fmt.Errorf("build.timeout must not be negative")
	}
	if cfg.MaxHistoryEntries < 0 {
		return fmt.Errorf("max_history_entries must not be negative")
	}
	if cfg.Image.Enabled && cfg.Image.Name == "" && cfg.Image.Registry == "" {
		return fmt.Errorf("image step is enabled but image.registry and image.name are empty")
	}
	return nil
}

// SetProjectValue validates a key/value pair against the schema and writes
// it to the project config file, creating the file if needed.
func SetProjectValue(projectConfigPath, key, raw string) error {
	value, err := ValidateValue(key, raw)
	if err != nil {
		return err
	}

	path := projectConfigPath
	if path == "" {
		path = ProjectConfigPath()
	}

	k := koanf.New(".")
	if fileExists(path) {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("loading project config %s: %w", path, err)
		}
	}
	k.Set(key, value)

	data, err := yamlv3.Marshal(k.Raw())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing project config %s: %w", path, err)
	}

	return nil
}

// parserFor picks a koanf parser from the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch filepath.Ext(path) {
	case ".yml", ".yaml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// legacyProjectConfigPath is the pre-YAML project config location.
func legacyProjectConfigPath() string {
	return filepath.Join(".tagrel", "config.json")
}

// fileExists returns true if the file exists and is readable.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// envTransform converts environment variable names to config keys.
// A double underscore separates nesting levels so nested keys stay
// reachable: TAGREL_BUILD__COMMAND -> build.command,
// TAGREL_GITHUB_TOKEN -> github_token.
func envTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "TAGREL_"))
	return strings.ReplaceAll(key, "__", ".")
}

// expandHomePath expands ~ to the user's home directory.
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
