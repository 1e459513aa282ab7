package progress

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSelectSymbols(t *testing.T) {
	unicode := SelectSymbols(TerminalCapabilities{SupportsUnicode: true})
	assert.Equal(t, "✓", unicode.Checkmark)
	assert.Equal(t, "✗", unicode.Failure)
	assert.Equal(t, "○", unicode.Skipped)

	ascii := SelectSymbols(TerminalCapabilities{})
	assert.Equal(t, "[OK]", ascii.Checkmark)
	assert.Equal(t, "[FAIL]", ascii.Failure)
	assert.Equal(t, "[SKIP]", ascii.Skipped)
}

func TestDisplay_NonTTY(t *testing.T) {
	var out bytes.Buffer
	d := NewDisplayWriter(&out, TerminalCapabilities{})

	info := StepInfo{Name: "build", Index: 2, Total: 5}
	d.StartStep(info)
	d.CompleteStep(info, 2300*time.Millisecond)

	assert.Contains(t, out.String(), "[2/5] build...\n")
	assert.Contains(t, out.String(), "[OK] [2/5] build (2.3s)\n")
}

func TestDisplay_FailAndSkip(t *testing.T) {
	var out bytes.Buffer
	d := NewDisplayWriter(&out, TerminalCapabilities{})

	d.FailStep(StepInfo{Name: "image", Index: 4, Total: 5}, errors.New("docker build: exit 1"))
	d.SkipStep(StepInfo{Name: "release", Index: 5, Total: 5}, "disabled in configuration")

	assert.Contains(t, out.String(), "[FAIL] [4/5] image: docker build: exit 1\n")
	assert.Contains(t, out.String(), "[SKIP] [5/5] release: disabled in configuration\n")
}

func TestStepLabel(t *testing.T) {
	assert.Equal(t, "[1/5] verify", stepLabel(StepInfo{Name: "verify", Index: 1, Total: 5}))
	assert.Equal(t, "verify", stepLabel(StepInfo{Name: "verify"}))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "450ms", formatElapsed(450*time.Millisecond))
	assert.Equal(t, "2.3s", formatElapsed(2310*time.Millisecond))
	assert.Equal(t, "1m5s", formatElapsed(65*time.Second))
}
