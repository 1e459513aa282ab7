package changelog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	// versionHeadingPattern matches a version section heading:
	//   ## [0.3.1] - 2024-06-10
	//   ## [Unreleased]
	// The brackets are optional so hand-edited changelogs still parse.
	versionHeadingPattern = regexp.MustCompile(
		`^##\s+\[?([^\]\s]+)\]?(?:\s+-\s+(\S+))?\s*$`)

	categoryHeadingPattern = regexp.MustCompile(`^###\s+(\S+)\s*$`)

	semverPattern = regexp.MustCompile(
		`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ParseError reports a malformed changelog line with its position.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Load reads and parses a CHANGELOG.md file from the given path.
func Load(path string) (*Changelog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening changelog file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a Keep a Changelog markdown document and builds the
// structured model. Each version section captures both its raw body
// (every line until the next version heading, the release-notes text)
// and the categorized entries parsed from it.
func Parse(r io.Reader) (*Changelog, error) {
	p := &parser{log: &Changelog{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.line++
		if err := p.consume(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading changelog: %w", err)
	}

	p.finishSection()

	if err := validate(p.log); err != nil {
		return nil, err
	}

	return p.log, nil
}

// parser holds the line-by-line parsing state.
type parser struct {
	log      *Changelog
	line     int
	current  *Version
	category string
	body     []string
}

// consume processes a single input line.
func (p *parser) consume(line string) error {
	trimmed := strings.TrimRight(line, " \t")

	switch {
	case strings.HasPrefix(trimmed, "# ") && p.log.Title == "":
		p.log.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		return nil

	case strings.HasPrefix(trimmed, "## "):
		return p.startSection(trimmed)

	case p.current == nil:
		// Preamble between the title and the first version heading.
		return nil

	default:
		p.body = append(p.body, line)
		return p.consumeSectionLine(trimmed)
	}
}

// startSection begins a new version section from its heading line.
func (p *parser) startSection(heading string) error {
	p.finishSection()

	m := versionHeadingPattern.FindStringSubmatch(heading)
	if m == nil {
		return &ParseError{Line: p.line, Message: fmt.Sprintf("malformed version heading %q", heading)}
	}

	p.current = &Version{
		Version: NormalizeVersion(m[1]),
		Date:    m[2],
		Line:    p.line,
	}
	p.category = ""
	p.body = nil
	return nil
}

// consumeSectionLine parses category headings and entry bullets inside a section.
func (p *parser) consumeSectionLine(trimmed string) error {
	if m := categoryHeadingPattern.FindStringSubmatch(trimmed); m != nil {
		cat := strings.ToLower(m[1])
		if !isValidCategory(cat) {
			return &ParseError{Line: p.line, Message: fmt.Sprintf("unknown change category %q", m[1])}
		}
		p.category = cat
		return nil
	}

	text, isBullet := cutBullet(trimmed)
	switch {
	case isBullet && p.category != "":
		p.current.Changes.append(p.category, text)
	case isContinuation(trimmed) && p.category != "":
		p.current.Changes.extendLast(p.category, strings.TrimSpace(trimmed))
	}
	// Anything else (blank lines, link references, prose) only
	// contributes to the raw body.
	return nil
}

// finishSection closes the current version section, storing its raw body.
func (p *parser) finishSection() {
	if p.current == nil {
		return
	}
	p.current.Body = strings.Trim(strings.Join(p.body, "\n"), "\n")
	p.log.Versions = append(p.log.Versions, *p.current)
	p.current = nil
	p.body = nil
}

// cutBullet strips a leading "- " or "* " bullet marker.
func cutBullet(line string) (string, bool) {
	for _, marker := range []string{"- ", "* "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker)), true
		}
	}
	return "", false
}

// isContinuation reports whether the line continues the previous bullet.
func isContinuation(line string) bool {
	return strings.HasPrefix(line, "  ") && strings.TrimSpace(line) != ""
}

func (c *Changes) append(category, text string) {
	switch category {
	case "added":
		c.Added = append(c.Added, text)
	case "changed":
		c.Changed = append(c.Changed, text)
	case "deprecated":
		c.Deprecated = append(c.Deprecated, text)
	case "removed":
		c.Removed = append(c.Removed, text)
	case "fixed":
		c.Fixed = append(c.Fixed, text)
	case "security":
		c.Security = append(c.Security, text)
	}
}

// extendLast appends continuation text to the most recent entry of a category.
func (c *Changes) extendLast(category, text string) {
	extend := func(entries []string) {
		if n := len(entries); n > 0 {
			entries[n-1] = entries[n-1] + " " + text
		}
	}
	switch category {
	case "added":
		extend(c.Added)
	case "changed":
		extend(c.Changed)
	case "deprecated":
		extend(c.Deprecated)
	case "removed":
		extend(c.Removed)
	case "fixed":
		extend(c.Fixed)
	case "security":
		extend(c.Security)
	}
}

func isValidCategory(name string) bool {
	for _, cat := range ValidCategories() {
		if cat == name {
			return true
		}
	}
	return false
}

// validate checks structural constraints on the parsed changelog.
func validate(c *Changelog) error {
	unreleasedCount := 0
	seen := make(map[string]int)

	for _, v := range c.Versions {
		if v.IsUnreleased() {
			unreleasedCount++
			if unreleasedCount > 1 {
				return &ParseError{Line: v.Line, Message: "only one Unreleased section is allowed"}
			}
			continue
		}

		if !semverPattern.MatchString(v.Version) {
			return &ParseError{
				Line:    v.Line,
				Message: fmt.Sprintf("invalid version %q (expected X.Y.Z)", v.Version),
			}
		}
		if v.Date == "" {
			return &ParseError{
				Line:    v.Line,
				Message: fmt.Sprintf("version %s has no release date", v.Version),
			}
		}
		if !datePattern.MatchString(v.Date) {
			return &ParseError{
				Line:    v.Line,
				Message: fmt.Sprintf("invalid date %q (expected YYYY-MM-DD)", v.Date),
			}
		}
		if prev, dup := seen[v.Version]; dup {
			return &ParseError{
				Line:    v.Line,
				Message: fmt.Sprintf("duplicate version %s (first at line %d)", v.Version, prev),
			}
		}
		seen[v.Version] = v.Line
	}

	return nil
}

// NormalizeVersion normalizes a version identifier by lowercasing and
// removing the "v" prefix, so "v0.3.1", "0.3.1" and "Unreleased" inputs
// all resolve consistently.
func NormalizeVersion(version string) string {
	return strings.TrimPrefix(strings.ToLower(version), "v")
}
