package cmd

import (
	"errors"

	"github.com/abdul-hamid-achik/hitshell/packages/core/repl"
)

// Exit codes for hitshell CLI
const (
	// ExitSuccess indicates the shell or every script finished cleanly
	ExitSuccess = 0

	// ExitScriptFailure indicates a statement of a script failed
	ExitScriptFailure = 1

	// ExitParseError indicates a script does not compile
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code for err.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitCodeFor(err error) int {
	var ee *exitError
	switch {
	case errors.As(err, &ee):
		return ee.code
	case errors.Is(err, repl.ErrCompile):
		return ExitParseError
	default:
		return ExitScriptFailure
	}
}
