package changelog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// CategoryStyle defines the color and icon for a changelog category.
type CategoryStyle struct {
	Color *color.Color
	Icon  string
}

// categoryStyles maps category names to their terminal styling.
var categoryStyles = map[string]CategoryStyle{
	"added":      {Color: color.New(color.FgGreen), Icon: "✓"},
	"changed":    {Color: color.New(color.FgBlue), Icon: "~"},
	"deprecated": {Color: color.New(color.FgRed), Icon: "⚠"},
	"removed":    {Color: color.New(color.FgRed), Icon: "✗"},
	"fixed":      {Color: color.New(color.FgYellow), Icon: "⚡"},
	"security":   {Color: color.New(color.FgMagenta), Icon: "🔒"},
}

// FormatOptions controls the terminal output formatting.
type FormatOptions struct {
	Plain    bool // Disable colors and icons
	MaxWidth int  // Maximum line width (0 = auto-detect)
}

// FormatVersion writes a single version's entries to the writer with
// terminal styling: a bold version header, color-coded categories, and
// entries wrapped to the terminal width.
func FormatVersion(v *Version, w io.Writer, opts FormatOptions) error {
	width := TerminalWidth(opts.MaxWidth)

	if err := writeVersionHeader(v.Version, v.Date, w, opts); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, cat := range v.Changes.byCategory() {
		if len(cat.entries) == 0 {
			continue
		}
		if err := writeCategorySection(cat.name, cat.entries, w, opts, width); err != nil {
			return err
		}
	}

	return nil
}

// FormatEntries writes a flat entry list grouped by version.
func FormatEntries(entries []Entry, w io.Writer, opts FormatOptions) error {
	width := TerminalWidth(opts.MaxWidth)

	currentVersion := ""
	for _, e := range entries {
		if e.Version != currentVersion {
			if currentVersion != "" {
				fmt.Fprintln(w)
			}
			currentVersion = e.Version
			if err := writeVersionHeader(e.Version, "", w, opts); err != nil {
				return err
			}
		}
		if err := writeEntryLine(e, w, opts, width); err != nil {
			return err
		}
	}
	return nil
}

// writeVersionHeader writes the version header line.
func writeVersionHeader(version, date string, w io.Writer, opts FormatOptions) error {
	var header string
	switch {
	case version == "unreleased":
		header = "Unreleased"
	case date != "":
		header = fmt.Sprintf("v%s (%s)", version, date)
	default:
		header = fmt.Sprintf("v%s", version)
	}

	if opts.Plain {
		_, err := fmt.Fprintf(w, "## %s\n", header)
		return err
	}

	bold := color.New(color.Bold).SprintFunc()
	_, err := fmt.Fprintf(w, "## %s\n", bold(header))
	return err
}

// writeCategorySection writes a single category with its entries.
func writeCategorySection(category string, entries []string, w io.Writer, opts FormatOptions, width int) error {
	style := categoryStyles[category]

	if opts.Plain {
		if _, err := fmt.Fprintf(w, "\n### %s\n", capitalizeFirst(category)); err != nil {
			return err
		}
	} else {
		colored := style.Color.SprintFunc()
		if _, err := fmt.Fprintf(w, "\n%s %s\n", colored(style.Icon), colored(capitalizeFirst(category))); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if err := writeEntryLine(Entry{Text: entry, Category: category}, w, opts, width); err != nil {
			return err
		}
	}
	return nil
}

// writeEntryLine writes a single changelog entry bullet, wrapping the
// text at the rendering width with continuation lines indented under
// the bullet.
func writeEntryLine(entry Entry, w io.Writer, opts FormatOptions, width int) error {
	colored := fmt.Sprint
	if !opts.Plain {
		colored = categoryStyles[entry.Category].Color.SprintFunc()
	}

	lines := wrapText(entry.Text, width-4)
	for i, line := range lines {
		prefix := "  - "
		if i > 0 {
			prefix = "    "
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", prefix, colored(line)); err != nil {
			return err
		}
	}
	return nil
}

// wrapText word-wraps text at the given width. Words longer than the
// width get a line of their own. A non-positive width disables wrapping.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) > width {
			lines = append(lines, line)
			line = word
			continue
		}
		line += " " + word
	}
	return append(lines, line)
}

// TerminalWidth determines the rendering width to use.
func TerminalWidth(maxWidth int) int {
	if maxWidth > 0 {
		return maxWidth
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
