package changelog

// Changelog is the parsed model of a CHANGELOG.md file in Keep a Changelog
// form: a title header followed by version sections, newest first.
type Changelog struct {
	// Title is the text of the top-level heading (usually "Changelog").
	Title string
	// Versions holds the version sections in file order.
	Versions []Version
}

// Version is a single version section of the changelog.
// The Version field is a bare semantic version (e.g., "0.3.1") or the
// special identifier "unreleased"; the parser normalizes "v" prefixes
// and heading case on input. Date is required for released versions
// (format: YYYY-MM-DD) and empty for unreleased.
type Version struct {
	Version string
	Date    string
	Changes Changes
	// Body is the raw section text: everything between this version's
	// heading and the next version heading, with surrounding blank
	// lines trimmed. This is what release notes are built from.
	Body string
	// Line is the 1-based line number of the section heading.
	Line int
}

// Changes groups change entries by Keep a Changelog category.
// All fields are optional; empty categories are omitted when rendering.
type Changes struct {
	Added      []string
	Changed    []string
	Deprecated []string
	Removed    []string
	Fixed      []string
	Security   []string
}

// Entry is a flattened view of a single changelog entry, used for
// querying and display where version and category context is needed
// alongside the text.
type Entry struct {
	Text     string
	Category string
	Version  string
}

// IsEmpty returns true if the Changes struct has no entries in any category.
func (c Changes) IsEmpty() bool {
	return c.Count() == 0
}

// Count returns the total number of entries across all categories.
func (c Changes) Count() int {
	return len(c.Added) +
		len(c.Changed) +
		len(c.Deprecated) +
		len(c.Removed) +
		len(c.Fixed) +
		len(c.Security)
}

// IsUnreleased returns true if this version represents unreleased changes.
func (v Version) IsUnreleased() bool {
	return v.Version == "unreleased"
}

// Entries returns a flattened list of all entries in this version,
// in standard category order.
func (v Version) Entries() []Entry {
	entries := make([]Entry, 0, v.Changes.Count())
	for _, cat := range v.Changes.byCategory() {
		for _, text := range cat.entries {
			entries = append(entries, Entry{Text: text, Category: cat.name, Version: v.Version})
		}
	}
	return entries
}

// namedCategory pairs a category name with its entries for ordered iteration.
type namedCategory struct {
	name    string
	entries []string
}

// byCategory returns the categories in their standard rendering order.
func (c Changes) byCategory() []namedCategory {
	return []namedCategory{
		{"added", c.Added},
		{"changed", c.Changed},
		{"deprecated", c.Deprecated},
		{"removed", c.Removed},
		{"fixed", c.Fixed},
		{"security", c.Security},
	}
}

// ValidCategories returns the list of valid Keep a Changelog categories
// in their standard rendering order.
func ValidCategories() []string {
	return []string{"added", "changed", "deprecated", "removed", "fixed", "security"}
}
