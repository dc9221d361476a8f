package main

import "errors"

// Exit codes.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (bad config file, invalid paths)
	ExitDataError   = 3 // Data error (unreadable or malformed input file)
)

// codedError pairs an error with the exit code it should produce.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }

func (e *codedError) Unwrap() error { return e.err }

// configError marks an error as a configuration failure.
func configError(err error) error {
	return &codedError{code: ExitConfigError, err: err}
}

// dataError marks an error as an input-data failure.
func dataError(err error) error {
	return &codedError{code: ExitDataError, err: err}
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	return ExitError
}
