package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// StepInfo identifies a pipeline step in the display.
type StepInfo struct {
	Name  string // step name, e.g. "build"
	Index int    // 1-based position in the pipeline
	Total int    // total number of steps
}

// Display renders pipeline step progress to a terminal. On non-TTY
// output the spinner is disabled and steps print as plain lines.
type Display struct {
	caps    TerminalCapabilities
	symbols StepSymbols
	out     io.Writer
	spin    *spinner.Spinner
}

// NewDisplay creates a Display for the detected terminal.
func NewDisplay() *Display {
	caps := DetectTerminalCapabilities()
	return &Display{
		caps:    caps,
		symbols: SelectSymbols(caps),
		out:     os.Stdout,
	}
}

// NewDisplayWriter creates a Display writing to w with explicit capabilities.
// Used by tests to capture output deterministically.
func NewDisplayWriter(w io.Writer, caps TerminalCapabilities) *Display {
	return &Display{
		caps:    caps,
		symbols: SelectSymbols(caps),
		out:     w,
	}
}

// StartStep begins displaying progress for a step.
func (d *Display) StartStep(info StepInfo) {
	label := stepLabel(info)

	if !d.caps.IsTTY {
		fmt.Fprintf(d.out, "%s...\n", label)
		return
	}

	s := spinner.New(spinner.CharSets[d.symbols.SpinnerSet], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + label
	if d.caps.SupportsColor {
		_ = s.Color("cyan")
	}
	s.Start()
	d.spin = s
}

// CompleteStep marks a step as completed with its elapsed time.
func (d *Display) CompleteStep(info StepInfo, elapsed time.Duration) {
	d.StopSpinner()
	mark := d.symbols.Checkmark
	if d.caps.SupportsColor {
		mark = color.GreenString(mark)
	}
	fmt.Fprintf(d.out, "%s %s (%s)\n", mark, stepLabel(info), formatElapsed(elapsed))
}

// FailStep marks a step as failed. Failure display is best-effort.
func (d *Display) FailStep(info StepInfo, err error) {
	d.StopSpinner()
	mark := d.symbols.Failure
	if d.caps.SupportsColor {
		mark = color.RedString(mark)
	}
	fmt.Fprintf(d.out, "%s %s: %v\n", mark, stepLabel(info), err)
}

// SkipStep marks a step as skipped with a reason.
func (d *Display) SkipStep(info StepInfo, reason string) {
	d.StopSpinner()
	mark := d.symbols.Skipped
	if d.caps.SupportsColor {
		mark = color.YellowString(mark)
	}
	fmt.Fprintf(d.out, "%s %s: %s\n", mark, stepLabel(info), reason)
}

// StopSpinner stops the spinner without printing step status. Useful
// when handing the terminal to step output.
func (d *Display) StopSpinner() {
	if d.spin != nil {
		d.spin.Stop()
		d.spin = nil
	}
}

func stepLabel(info StepInfo) string {
	if info.Total > 0 {
		return fmt.Sprintf("[%d/%d] %s", info.Index, info.Total, info.Name)
	}
	return info.Name
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second / 10).String()
}
