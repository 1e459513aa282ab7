package changelog

import (
	"fmt"
	"io"
	"strings"
)

// RenderNotes writes a version's changes as markdown suitable for a
// release body: category headings with their entry bullets, empty
// categories omitted. If the section had no parseable categories the
// raw section body is written instead, so hand-written prose survives.
func RenderNotes(v *Version, w io.Writer) error {
	if v.Changes.IsEmpty() {
		if v.Body == "" {
			return nil
		}
		_, err := fmt.Fprintln(w, v.Body)
		return err
	}

	first := true
	for _, cat := range v.Changes.byCategory() {
		if len(cat.entries) == 0 {
			continue
		}

		if !first {
			fmt.Fprintln(w)
		}
		first = false

		fmt.Fprintf(w, "### %s\n", capitalizeFirst(cat.name))
		for _, entry := range cat.entries {
			fmt.Fprintf(w, "- %s\n", entry)
		}
	}

	return nil
}

// RenderNotesString renders a version's release notes to a string.
func RenderNotesString(v *Version) string {
	var b strings.Builder
	_ = RenderNotes(v, &b)
	return b.String()
}

// capitalizeFirst capitalizes the first letter of a string.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
