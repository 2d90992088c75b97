package vm

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInterrupted is returned when the line was cancelled between stages.
var ErrInterrupted = errors.New("interrupted")

// ResourceError is a failure to open, pipe, or spawn. The pipeline is
// aborted and nothing further runs.
type ResourceError struct {
	// Op is the failed operation e.g. "open", "pipe" or "spawn".
	Op string
	// Path is the file or program involved, if any.
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// ExecError means a stage's program couldn't be found or executed.
type ExecError struct {
	Name string
	Err  error
}

func (e *ExecError) Error() string {
	if errors.Is(e.Err, ErrNotFound) {
		return fmt.Sprintf("%s: command not found", e.Name)
	}
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// ExitCode is the status a shell reports for a program that couldn't run.
func (e *ExecError) ExitCode() int {
	if errors.Is(e.Err, ErrNotFound) {
		return 127
	}
	return 126
}
