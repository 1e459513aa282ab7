package cli

// Exit codes for the tagrel CLI
// These codes support programmatic composition and CI integration
const (
	// ExitSuccess indicates successful command execution
	ExitSuccess = 0

	// ExitStepFailed indicates a pipeline step failed
	ExitStepFailed = 1

	// ExitPreflightFailed indicates a release prerequisite is not satisfied
	ExitPreflightFailed = 2

	// ExitInvalidArguments indicates invalid command arguments
	ExitInvalidArguments = 3

	// ExitMissingDependencies indicates required tools or configuration are missing
	ExitMissingDependencies = 4

	// ExitTimeout indicates a step timed out
	ExitTimeout = 5
)

// ExitError carries an explicit exit code through cobra's error return.
type ExitError struct {
	Code int
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return "exit"
}

// NewExitError creates an error whose only purpose is to set the
// process exit code. The message is expected to have been printed
// already.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}
