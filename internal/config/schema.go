package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueType defines the expected type for a configuration value.
type ValueType int

const (
	TypeBool ValueType = iota
	TypeInt
	TypeString
	TypeEnum
	TypeStringList
)

// String returns the string representation of ValueType.
func (t ValueType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	case TypeEnum:
		return "enum"
	case TypeStringList:
		return "list"
	default:
		return "unknown"
	}
}

// KeySchema defines a known configuration key with its expected type and
// validation rules.
type KeySchema struct {
	Path          string    // Dotted key path (e.g., "image.registry")
	Type          ValueType // Expected value type for validation
	AllowedValues []string  // Valid values for enum types (empty for non-enums)
	Description   string    // Human-readable description for help text
	Default       interface{}
}

// KnownKeys is the registry of all known configuration keys with their schemas.
var KnownKeys = map[string]KeySchema{
	"build.command": {
		Path:        "build.command",
		Type:        TypeString,
		Description: "Build command run for the build step ({{VERSION}} and {{TAG}} are expanded)",
		Default:     "cargo build --release",
	},
	"build.artifact": {
		Path:        "build.artifact",
		Type:        TypeString,
		Description: "Path of the binary produced by the build step",
		Default:     "target/release/kalatori",
	},
	"build.timeout": {
		Path:        "build.timeout",
		Type:        TypeInt,
		Description: "Build timeout in seconds (0 = no timeout)",
		Default:     3600,
	},
	"image.enabled": {
		Path:        "image.enabled",
		Type:        TypeBool,
		Description: "Build and push a container image (requires image.registry and image.name)",
		Default:     false,
	},
	"image.registry": {
		Path:        "image.registry",
		Type:        TypeString,
		Description: "Container registry host (e.g., ghcr.io/owner)",
		Default:     "",
	},
	"image.name": {
		Path:        "image.name",
		Type:        TypeString,
		Description: "Image name within the registry",
		Default:     "",
	},
	"image.dockerfile": {
		Path:        "image.dockerfile",
		Type:        TypeString,
		Description: "Dockerfile path for the image step",
		Default:     "Dockerfile",
	},
	"image.context": {
		Path:        "image.context",
		Type:        TypeString,
		Description: "Docker build context directory",
		Default:     ".",
	},
	"release.enabled": {
		Path:        "release.enabled",
		Type:        TypeBool,
		Description: "Create a release for the tag",
		Default:     true,
	},
	"release.assets": {
		Path:        "release.assets",
		Type:        TypeStringList,
		Description: "Files attached to the release as assets",
		Default:     []string{},
	},
	"release.draft": {
		Path:        "release.draft",
		Type:        TypeBool,
		Description: "Create the release as a draft",
		Default:     false,
	},
	"release.owner": {
		Path:        "release.owner",
		Type:        TypeString,
		Description: "Repository owner (empty = detect from origin remote)",
		Default:     "",
	},
	"release.repo": {
		Path:        "release.repo",
		Type:        TypeString,
		Description: "Repository name (empty = detect from origin remote)",
		Default:     "",
	},
	"github_token": {
		Path:        "github_token",
		Type:        TypeString,
		Description: "API token for release creation (falls back to GITHUB_TOKEN)",
		Default:     "",
	},
	"registry_token": {
		Path:        "registry_token",
		Type:        TypeString,
		Description: "Registry password/token for docker login (falls back to github_token)",
		Default:     "",
	},
	"registry_user": {
		Path:        "registry_user",
		Type:        TypeString,
		Description: "Registry username for docker login",
		Default:     "",
	},
	"callback_url": {
		Path:        "callback_url",
		Type:        TypeString,
		Description: "Optional URL POSTed a release summary after a successful run",
		Default:     "",
	},
	"changelog": {
		Path:        "changelog",
		Type:        TypeString,
		Description: "Changelog file sliced for release notes",
		Default:     "CHANGELOG.md",
	},
	"state_dir": {
		Path:        "state_dir",
		Type:        TypeString,
		Description: "Directory for run state and logs",
		Default:     "~/.tagrel/state",
	},
	"max_history_entries": {
		Path:        "max_history_entries",
		Type:        TypeInt,
		Description: "Maximum number of run history entries to retain",
		Default:     200,
	},
	"allow_dirty": {
		Path:        "allow_dirty",
		Type:        TypeBool,
		Description: "Allow running the pipeline with uncommitted changes",
		Default:     false,
	},
}

// ValidateValue checks a raw string value against the schema for a key.
// Returns the parsed value ready to be stored, or an error describing
// the expected format.
func ValidateValue(key, raw string) (interface{}, error) {
	schema, ok := KnownKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key %q (see 'tagrel config list')", key)
	}

	switch schema.Type {
	case TypeBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q expects a bool, got %q", key, raw)
		}
		return v, nil
	case TypeInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q expects an int, got %q", key, raw)
		}
		return v, nil
	case TypeEnum:
		for _, allowed := range schema.AllowedValues {
			if raw == allowed {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("key %q expects one of [%s], got %q",
			key, strings.Join(schema.AllowedValues, ", "), raw)
	case TypeStringList:
		if raw == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return raw, nil
	}
}

// SortedKeys returns all known key paths in lexical order.
func SortedKeys() []string {
	keys := make([]string, 0, len(KnownKeys))
	for k := range KnownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
