package gitrepo

import (
	"fmt"
	"regexp"
	"strings"
)

// tagPattern matches release tags: a leading "v" marker followed by a
// semantic version with optional pre-release and build metadata.
var tagPattern = regexp.MustCompile(
	`^v(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z.-]+))?(?:\+([0-9A-Za-z.-]+))?$`)

// Version is the single normalized form of a release tag. Every pipeline
// step receives a Version instead of re-deriving values from the raw tag
// string, so the "v" marker is stripped exactly once, at parse time.
type Version struct {
	// Tag is the original tag name including the "v" marker (e.g., "v0.3.1").
	Tag string
	// Semver is the tag without the marker (e.g., "0.3.1-rc.1").
	Semver string
	// Prerelease is the pre-release suffix, empty for final releases.
	Prerelease string
}

// InvalidTagError is returned when a tag does not match the release tag pattern.
type InvalidTagError struct {
	Tag string
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("tag %q does not match the release tag pattern vMAJOR.MINOR.PATCH", e.Tag)
}

// ParseTag validates a tag name against the release pattern and returns
// the normalized Version. Returns InvalidTagError for non-release tags.
func ParseTag(tag string) (Version, error) {
	m := tagPattern.FindStringSubmatch(tag)
	if m == nil {
		return Version{}, &InvalidTagError{Tag: tag}
	}

	return Version{
		Tag:        tag,
		Semver:     strings.TrimPrefix(tag, "v"),
		Prerelease: m[4],
	}, nil
}

// IsReleaseTag reports whether the tag matches the release tag pattern.
func IsReleaseTag(tag string) bool {
	return tagPattern.MatchString(tag)
}

// IsPrerelease reports whether the version carries a pre-release suffix.
// Pre-releases skip the floating "latest" image tag and are marked as
// prereleases on the hosting side.
func (v Version) IsPrerelease() bool {
	return v.Prerelease != ""
}

// String returns the original tag name.
func (v Version) String() string {
	return v.Tag
}
