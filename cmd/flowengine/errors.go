package main

import "fmt"

// ExitError carries a process exit code out of a cobra RunE so commands
// stay testable without calling os.Exit.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// IsExitError extracts the code from an *ExitError.
func IsExitError(err error) (int, bool) {
	if exitErr, ok := err.(*ExitError); ok {
		return exitErr.Code, true
	}
	return 0, false
}
