package logtail

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Tailer streams new lines from a log file as they are written.
// It uses fsnotify for efficient file change detection, with periodic
// polling as a backup for missed events.
type Tailer struct {
	path    string
	watcher *fsnotify.Watcher
	mu      sync.Mutex
	closed  bool
}

// NewTailer creates a new Tailer for the given file path.
// The file does not need to exist yet; the tailer will wait for creation.
func NewTailer(path string) (*Tailer, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Tailer{
		path:    path,
		watcher: watcher,
	}, nil
}

// Tail streams lines from the log file.
// Returns a channel that receives new lines as they are written.
// The channel is closed when the context is cancelled or Close is called.
// If follow is false, existing content is dumped and the channel closes.
func (t *Tailer) Tail(ctx context.Context, follow bool) (<-chan string, error) {
	lines := make(chan string, 100)

	go t.tailLoop(ctx, lines, follow)

	return lines, nil
}

// Close stops the tailer and releases the watcher.
func (t *Tailer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.watcher.Close()
}

func (t *Tailer) tailLoop(ctx context.Context, lines chan<- string, follow bool) {
	defer close(lines)

	if err := t.waitForFile(ctx); err != nil {
		return
	}

	offset, err := t.readFrom(ctx, lines, 0)
	if err != nil {
		return
	}

	if !follow {
		return
	}

	t.streamNewContent(ctx, lines, offset)
}

// waitForFile waits until the log file exists.
func (t *Tailer) waitForFile(ctx context.Context) error {
	if _, err := os.Stat(t.path); err == nil {
		return nil
	}

	parentDir := filepath.Dir(t.path)
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	if err := t.watcher.Add(parentDir); err != nil {
		return fmt.Errorf("watching parent directory: %w", err)
	}

	// Poll periodically in case we miss events.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-t.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if event.Name == t.path && (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
				return nil
			}
		case <-ticker.C:
			if _, err := os.Stat(t.path); err == nil {
				return nil
			}
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// readFrom reads lines starting at offset and sends them to the channel.
// Returns the new offset.
func (t *Tailer) readFrom(ctx context.Context, lines chan<- string, offset int64) (int64, error) {
	file, err := os.Open(t.path)
	if err != nil {
		return offset, fmt.Errorf("opening log file: %w", err)
	}
	defer file.Close()

	// Handle truncation by restarting from the beginning.
	if info, err := file.Stat(); err == nil && info.Size() < offset {
		offset = 0
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seeking log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return offset, ctx.Err()
		case lines <- scanner.Text():
			offset += int64(len(scanner.Bytes())) + 1 // +1 for newline
		}
	}

	if err := scanner.Err(); err != nil {
		return offset, fmt.Errorf("scanning log file: %w", err)
	}

	return offset, nil
}

// streamNewContent watches for file changes and streams new lines.
func (t *Tailer) streamNewContent(ctx context.Context, lines chan<- string, offset int64) {
	if err := t.watcher.Add(t.path); err != nil {
		return
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if event.Name == t.path && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				offset, _ = t.readFrom(ctx, lines, offset)
			}
		case <-ticker.C:
			offset, _ = t.readFrom(ctx, lines, offset)
		case _, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			// Continue on errors, polling will handle reads.
		}
	}
}
