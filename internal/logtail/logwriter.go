// Package logtail handles pipeline step logs: a timestamping writer used
// while steps run, and an fsnotify-based tailer for `tagrel logs --follow`.
package logtail

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TimestampedWriter wraps an io.Writer and prefixes each line with a
// timestamp. It is thread-safe and handles partial line writes correctly.
type TimestampedWriter struct {
	w          io.Writer
	mu         sync.Mutex
	lineBuffer bytes.Buffer
	timeFunc   func() time.Time
}

// NewTimestampedWriter creates a new TimestampedWriter wrapping the given writer.
func NewTimestampedWriter(w io.Writer) *TimestampedWriter {
	return &TimestampedWriter{
		w:        w,
		timeFunc: time.Now,
	}
}

// Write writes data to the underlying writer, prefixing each complete line
// with a timestamp in [HH:MM:SS] format. Partial lines are buffered until
// a newline is received.
func (tw *TimestampedWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	totalWritten := 0
	for len(p) > 0 {
		idx := bytes.IndexByte(p, '\n')
		if idx == -1 {
			tw.lineBuffer.Write(p)
			totalWritten += len(p)
			break
		}

		n, err := tw.writeCompleteLine(p[:idx])
		if err != nil {
			return totalWritten + n, err
		}
		totalWritten += idx + 1
		p = p[idx+1:]
	}

	return totalWritten, nil
}

// writeCompleteLine writes a complete line with timestamp prefix.
func (tw *TimestampedWriter) writeCompleteLine(lineData []byte) (int, error) {
	timestamp := tw.timeFunc().Format("[15:04:05] ")

	var fullLine []byte
	if tw.lineBuffer.Len() > 0 {
		fullLine = append(tw.lineBuffer.Bytes(), lineData...)
		tw.lineBuffer.Reset()
	} else {
		fullLine = lineData
	}

	_, err := fmt.Fprintf(tw.w, "%s%s\n", timestamp, fullLine)
	if err != nil {
		return 0, fmt.Errorf("writing timestamped line: %w", err)
	}

	return len(lineData), nil
}

// Flush writes any buffered partial line with a timestamp.
func (tw *TimestampedWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.lineBuffer.Len() == 0 {
		return nil
	}

	timestamp := tw.timeFunc().Format("[15:04:05] ")
	_, err := fmt.Fprintf(tw.w, "%s%s\n", timestamp, tw.lineBuffer.Bytes())
	if err != nil {
		return fmt.Errorf("flushing partial line: %w", err)
	}
	tw.lineBuffer.Reset()

	return nil
}

// StepLog is a step's log sink: a log file with timestamped lines,
// optionally teed to the console.
type StepLog struct {
	file *os.File
	ts   *TimestampedWriter
	// Writer receives the step output (file, or file + console).
	Writer io.Writer
}

// OpenStepLog creates the log file for a step. When console is non-nil
// the output is mirrored there verbatim while the file gets timestamps.
func OpenStepLog(path string, console io.Writer) (*StepLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening step log %s: %w", path, err)
	}

	ts := NewTimestampedWriter(f)
	var w io.Writer = ts
	if console != nil {
		w = io.MultiWriter(console, ts)
	}

	return &StepLog{file: f, ts: ts, Writer: w}, nil
}

// Close flushes pending output and closes the log file.
func (s *StepLog) Close() error {
	if err := s.ts.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}
