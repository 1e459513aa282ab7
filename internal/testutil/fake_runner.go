// Package testutil provides shared test doubles for pipeline steps. The
// FakeRunner records external command invocations (docker, build shells)
// so tests can assert on argument order without executing anything.
package testutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Call records a single external command invocation.
type Call struct {
	Args  []string
	Stdin string
}

// FakeRunner is a command-runner test double matching the runCommand
// seam of the step packages. It records every call and returns a
// scripted response per subcommand, or succeeds by default.
type FakeRunner struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]response
}

type response struct {
	output string
	err    error
}

// NewFakeRunner creates a FakeRunner with no scripted responses.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string]response)}
}

// Respond scripts the output and error returned for calls whose first
// argument matches subcommand (e.g. "push"). An empty subcommand matches
// every call without a more specific script.
func (f *FakeRunner) Respond(subcommand, output string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[subcommand] = response{output: output, err: err}
}

// Run implements the runCommand seam. It records the call, writes
// scripted output, and returns the scripted error.
func (f *FakeRunner) Run(ctx context.Context, stdin io.Reader, output io.Writer, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var input string
	if stdin != nil {
		data, _ := io.ReadAll(stdin)
		input = string(data)
	}

	f.mu.Lock()
	f.calls = append(f.calls, Call{
		Args:  append([]string(nil), args...),
		Stdin: input,
	})
	resp, ok := f.responses[firstArg(args)]
	if !ok {
		resp, ok = f.responses[""]
	}
	f.mu.Unlock()

	if ok && resp.output != "" && output != nil {
		fmt.Fprint(output, resp.output)
	}
	if ok {
		return resp.err
	}
	return nil
}

// Calls returns a copy of the recorded calls in invocation order.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallLines renders each recorded call as a single space-joined string,
// which keeps table-test assertions compact.
func (f *FakeRunner) CallLines() []string {
	calls := f.Calls()
	lines := make([]string, 0, len(calls))
	for _, c := range calls {
		lines = append(lines, strings.Join(c.Args, " "))
	}
	return lines
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
