package logtail

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectLines(t *testing.T, lines <-chan string, timeout time.Duration) []string {
	t.Helper()
	var got []string
	deadline := time.After(timeout)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return got
			}
			got = append(got, line)
		case <-deadline:
			return got
		}
	}
}

func TestTail_DumpExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.log")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\n"), 0o644))

	tailer, err := NewTailer(path)
	require.NoError(t, err)
	defer tailer.Close()

	lines, err := tailer.Tail(context.Background(), false)
	require.NoError(t, err)

	got := collectLines(t, lines, 2*time.Second)
	assert.Equal(t, []string{"line one", "line two"}, got)
}

func TestTail_FollowStreamsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0o644))

	tailer, err := NewTailer(path)
	require.NoError(t, err)
	defer tailer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines, err := tailer.Tail(ctx, true)
	require.NoError(t, err)

	// First line is the existing content.
	select {
	case line := <-lines:
		assert.Equal(t, "existing", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for existing content")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("appended\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case line := <-lines:
		assert.Equal(t, "appended", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for appended content")
	}
}

func TestTail_WaitsForFileCreation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "late.log")

	tailer, err := NewTailer(path)
	require.NoError(t, err)
	defer tailer.Close()

	lines, err := tailer.Tail(context.Background(), false)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("created later\n"), 0o644))

	got := collectLines(t, lines, 2*time.Second)
	assert.Equal(t, []string{"created later"}, got)
}

func TestTail_ContextCancelClosesChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.log")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))

	tailer, err := NewTailer(path)
	require.NoError(t, err)
	defer tailer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	lines, err := tailer.Tail(ctx, true)
	require.NoError(t, err)

	<-lines // existing line
	cancel()

	select {
	case _, ok := <-lines:
		if ok {
			// Drain anything buffered before the close.
			for range lines {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after context cancellation")
	}
}
