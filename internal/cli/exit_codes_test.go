package cli

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alzymologist/tagrel/internal/buildstep"
	"github.com/alzymologist/tagrel/internal/errors"
)

func TestExitCode(t *testing.T) {
	tests := map[string]struct {
		err      error
		expected int
	}{
		"nil error": {
			err:      nil,
			expected: ExitSuccess,
		},
		"explicit exit code": {
			err:      NewExitError(ExitPreflightFailed),
			expected: ExitPreflightFailed,
		},
		"argument error": {
			err:      errors.NewArgumentError("expected a tag argument"),
			expected: ExitInvalidArguments,
		},
		"configuration error": {
			err:      errors.NewConfigError("github_token not set"),
			expected: ExitMissingDependencies,
		},
		"preflight error": {
			err:      errors.NewPreflightError("worktree has uncommitted changes"),
			expected: ExitPreflightFailed,
		},
		"step error": {
			err:      errors.NewStepError("build step failed"),
			expected: ExitStepFailed,
		},
		"build timeout": {
			err:      &buildstep.TimeoutError{Timeout: time.Hour, Command: "cargo build"},
			expected: ExitTimeout,
		},
		"wrapped timeout": {
			err:      fmt.Errorf("running pipeline: %w", &buildstep.TimeoutError{}),
			expected: ExitTimeout,
		},
		"plain error": {
			err:      stderrors.New("something broke"),
			expected: ExitStepFailed,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExitCode(tc.err))
		})
	}
}
