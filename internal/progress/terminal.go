// Package progress renders per-step progress for the release pipeline.
// It detects terminal capabilities and drives a spinner for running steps,
// degrading to plain line output on non-TTY streams.
package progress

import (
	"os"

	"golang.org/x/term"
)

// TerminalCapabilities describes what the output terminal supports.
type TerminalCapabilities struct {
	IsTTY           bool
	SupportsColor   bool
	SupportsUnicode bool
	Width           int
}

// StepSymbols holds the symbols used to render step state.
type StepSymbols struct {
	Checkmark  string
	Failure    string
	Skipped    string
	SpinnerSet int
}

// DetectTerminalCapabilities detects terminal features and returns capabilities.
// Checks: stdout isatty, NO_COLOR env, TAGREL_ASCII env, terminal width.
func DetectTerminalCapabilities() TerminalCapabilities {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	noColor := os.Getenv("NO_COLOR") != ""
	forceASCII := os.Getenv("TAGREL_ASCII") == "1"

	width := 0
	if isTTY {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}

	return TerminalCapabilities{
		IsTTY:           isTTY,
		SupportsColor:   isTTY && !noColor,
		SupportsUnicode: isTTY && !forceASCII,
		Width:           width,
	}
}

// SelectSymbols returns the appropriate symbol set based on terminal capabilities.
// Unicode: ✓/✗ with braille spinner (set 14). ASCII: [OK]/[FAIL] with |/-\ spinner (set 9).
func SelectSymbols(caps TerminalCapabilities) StepSymbols {
	if caps.SupportsUnicode {
		return StepSymbols{
			Checkmark:  "✓",
			Failure:    "✗",
			Skipped:    "○",
			SpinnerSet: 14, // Unicode dots: ⠋ ⠙ ⠹ ⠸ ⠼ ⠴ ⠦ ⠧ ⠇ ⠏
		}
	}

	return StepSymbols{
		Checkmark:  "[OK]",
		Failure:    "[FAIL]",
		Skipped:    "[SKIP]",
		SpinnerSet: 9, // ASCII: | / - \
	}
}
