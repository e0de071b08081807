package backup

import (
	"fmt"
	"strings"

	"backupmgr/internal/job"
)

// UnknownStrategyError is returned when no strategy is registered for a kind.
type UnknownStrategyError struct {
	Kind job.Kind
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("no backup strategy for kind %q", string(e.Kind))
}

// ExecutionError wraps a failure inside a strategy with the job and step it
// happened in.
type ExecutionError struct {
	Job string
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("job %q: %s: %v", e.Job, e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// CommandError reports an external tool that could not be started or exited
// non-zero. Output holds the combined stdout and stderr.
type CommandError struct {
	Tool     string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if e.ExitCode < 0 {
		msg = fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// PanicError is a panic recovered from a single job's unit.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
