package changelog

import (
	"fmt"
	"strings"
)

// VersionNotFoundError is returned when a requested version doesn't exist.
type VersionNotFoundError struct {
	Version           string
	AvailableVersions []string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %q not found in changelog (available: %s)",
		e.Version, strings.Join(e.AvailableVersions, ", "))
}

// GetVersion retrieves a specific version section from the changelog.
// Accepts both "v0.3.1" and "0.3.1" forms (normalizes the input).
// Returns VersionNotFoundError if the version doesn't exist.
func (c *Changelog) GetVersion(version string) (*Version, error) {
	normalized := NormalizeVersion(version)

	for i := range c.Versions {
		if c.Versions[i].Version == normalized {
			return &c.Versions[i], nil
		}
	}

	return nil, &VersionNotFoundError{
		Version:           version,
		AvailableVersions: c.ListVersions(),
	}
}

// Section returns the raw release-notes text for a version: the body of
// the matching heading, captured up to the next version heading. This is
// the text that becomes the release body.
func (c *Changelog) Section(version string) (string, error) {
	v, err := c.GetVersion(version)
	if err != nil {
		return "", err
	}
	return v.Body, nil
}

// GetUnreleased retrieves the unreleased section, or nil if absent.
func (c *Changelog) GetUnreleased() *Version {
	for i := range c.Versions {
		if c.Versions[i].IsUnreleased() {
			return &c.Versions[i]
		}
	}
	return nil
}

// HasUnreleased returns true if the changelog has an unreleased section.
func (c *Changelog) HasUnreleased() bool {
	return c.GetUnreleased() != nil
}

// ListVersions returns all version identifiers in file order (newest first).
func (c *Changelog) ListVersions() []string {
	versions := make([]string, len(c.Versions))
	for i, v := range c.Versions {
		versions[i] = v.Version
	}
	return versions
}

// GetLatestRelease returns the most recent released version (not unreleased).
// Returns nil if there are no released versions.
func (c *Changelog) GetLatestRelease() *Version {
	for i := range c.Versions {
		if !c.Versions[i].IsUnreleased() {
			return &c.Versions[i]
		}
	}
	return nil
}

// AllEntries returns all entries from all versions, newest first.
func (c *Changelog) AllEntries() []Entry {
	var entries []Entry
	for _, v := range c.Versions {
		entries = append(entries, v.Entries()...)
	}
	return entries
}

// GetLastN retrieves the N most recent entries across all versions.
func (c *Changelog) GetLastN(n int) []Entry {
	if n <= 0 {
		return []Entry{}
	}

	entries := c.AllEntries()
	if len(entries) <= n {
		return entries
	}
	return entries[:n]
}

// GetEntryCount returns the total number of entries across all versions.
func (c *Changelog) GetEntryCount() int {
	count := 0
	for _, v := range c.Versions {
		count += v.Changes.Count()
	}
	return count
}
