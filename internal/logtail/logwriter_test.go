package logtail

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedTime pins the timestamp so line prefixes are deterministic.
var fixedTime = time.Date(2026, 8, 26, 14, 30, 5, 0, time.UTC)

func newFixedWriter(buf *bytes.Buffer) *TimestampedWriter {
	tw := NewTimestampedWriter(buf)
	tw.timeFunc = func() time.Time { return fixedTime }
	return tw
}

func TestTimestampedWriter_CompleteLines(t *testing.T) {
	var buf bytes.Buffer
	tw := newFixedWriter(&buf)

	n, err := tw.Write([]byte("first line\nsecond line\n"))
	require.NoError(t, err)
	assert.Equal(t, 23, n)

	assert.Equal(t, "[14:30:05] first line\n[14:30:05] second line\n", buf.String())
}

func TestTimestampedWriter_PartialLineBuffered(t *testing.T) {
	var buf bytes.Buffer
	tw := newFixedWriter(&buf)

	_, err := tw.Write([]byte("building"))
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "partial line stays buffered")

	_, err = tw.Write([]byte(" kalatori\n"))
	require.NoError(t, err)
	assert.Equal(t, "[14:30:05] building kalatori\n", buf.String())
}

func TestTimestampedWriter_Flush(t *testing.T) {
	var buf bytes.Buffer
	tw := newFixedWriter(&buf)

	_, err := tw.Write([]byte("no trailing newline"))
	require.NoError(t, err)
	require.NoError(t, tw.Flush())

	assert.Equal(t, "[14:30:05] no trailing newline\n", buf.String())

	// A second flush with nothing buffered is a no-op.
	require.NoError(t, tw.Flush())
	assert.Equal(t, "[14:30:05] no trailing newline\n", buf.String())
}

func TestOpenStepLog_TeesToConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.log")
	var console bytes.Buffer

	stepLog, err := OpenStepLog(path, &console)
	require.NoError(t, err)

	_, err = stepLog.Writer.Write([]byte("compiling\n"))
	require.NoError(t, err)
	require.NoError(t, stepLog.Close())

	assert.Equal(t, "compiling\n", console.String(), "console output stays verbatim")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\] compiling\n$`, string(data))
}

func TestOpenStepLog_FileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.log")

	stepLog, err := OpenStepLog(path, nil)
	require.NoError(t, err)

	_, err = stepLog.Writer.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, stepLog.Close(), "close flushes the buffered partial line")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "partial\n")
}
