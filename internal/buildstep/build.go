// Package buildstep runs the release build command and resolves the
// binary artifact it produces.
package buildstep

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/alzymologist/tagrel/internal/gitrepo"
)

// TimeoutError indicates the build exceeded its configured timeout.
type TimeoutError struct {
	Timeout time.Duration
	Command string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("build command timed out after %s: %s", e.Timeout, e.Command)
}

// Runner executes the configured build command in the repository root.
type Runner struct {
	// Command is the build command template. {{VERSION}} and {{TAG}}
	// placeholders are expanded (shell-quoted) before execution.
	Command string
	// Dir is the working directory for the build.
	Dir string
	// Timeout is the maximum build duration (0 = no timeout).
	Timeout time.Duration

	// execCommand builds the exec.Cmd; replaced in tests.
	execCommand func(ctx context.Context, command string) *exec.Cmd
}

// NewRunner creates a build Runner for the given command and directory.
func NewRunner(command, dir string, timeout time.Duration) *Runner {
	return &Runner{
		Command: command,
		Dir:     dir,
		Timeout: timeout,
	}
}

// Run executes the build command for the given version, streaming stdout
// and stderr to the provided writer. Returns TimeoutError when the
// configured timeout elapses before the command finishes.
func (r *Runner) Run(ctx context.Context, v gitrepo.Version, output io.Writer) error {
	command := r.ExpandCommand(v)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := r.buildCommand(ctx, command)
	cmd.Stdout = output
	cmd.Stderr = output

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return &TimeoutError{Timeout: r.Timeout, Command: command}
	}
	if err != nil {
		return fmt.Errorf("build command failed: %w", err)
	}
	return nil
}

// ExpandCommand returns the build command with version placeholders
// expanded. Values are shell-quoted since the command runs via sh -c.
func (r *Runner) ExpandCommand(v gitrepo.Version) string {
	command := r.Command
	command = strings.ReplaceAll(command, "{{VERSION}}", shellQuote(v.Semver))
	command = strings.ReplaceAll(command, "{{TAG}}", shellQuote(v.Tag))
	return command
}

// buildCommand constructs the exec.Cmd, going through the shell so
// build commands can use pipes and environment prefixes.
func (r *Runner) buildCommand(ctx context.Context, command string) *exec.Cmd {
	if r.execCommand != nil {
		cmd := r.execCommand(ctx, command)
		cmd.Dir = r.Dir
		return cmd
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.Dir
	return cmd
}

// shellQuote quotes a string for safe use in shell commands.
// It wraps the string in single quotes and escapes any single quotes within.
func shellQuote(s string) string {
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}
