package config

import (
	"os"
	"path/filepath"
)

// UserConfigPath returns the path to the user-level config file.
// This follows the XDG Base Directory Specification:
// - Linux: ~/.config/tagrel/config.yml
// - macOS: ~/Library/Application Support/tagrel/config.yml
// - Windows: %APPDATA%\tagrel\config.yml
func UserConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "tagrel", "config.yml"), nil
}

// ProjectConfigPath returns the path to the project-level config file.
// This is always .tagrel/config.yml relative to the current directory.
func ProjectConfigPath() string {
	return filepath.Join(".tagrel", "config.yml")
}

// ProjectConfigDir returns the path to the project-level config directory.
func ProjectConfigDir() string {
	return ".tagrel"
}

// DefaultStateDir returns the default state directory (~/.tagrel/state).
func DefaultStateDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tagrel", "state")
	}
	return filepath.Join(homeDir, ".tagrel", "state")
}
