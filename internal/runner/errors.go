package runner

import (
	"fmt"
	"strings"

	"github.com/giantswarm/ccmenv/internal/sentinel"
)

// ErrSpawnFailed is returned when the executable could not be found or
// the OS refused to create the process.
const ErrSpawnFailed = sentinel.Error("failed to spawn command")

// ErrWaitFailed is returned when the child was spawned but its exit
// could not be observed (the wait itself failed at the OS level).
const ErrWaitFailed = sentinel.Error("failed to wait on child process")

// ErrCommandFailed is returned when the child exited cleanly with a
// non-zero status and the run did not allow failure.
const ErrCommandFailed = sentinel.Error("command exited with non-zero status")

// RunError carries enough context to reproduce the external invocation
// from the error alone: run id, command, arguments, and either the exit
// code or the underlying OS error. It unwraps to one of the package
// sentinels so errors.Is classification works through wrapped chains.
type RunError struct {
	RunID   int64
	Command string
	Args    []string
	// ExitCode is meaningful only when Sentinel is ErrCommandFailed.
	// -1 means the exit code could not be determined (killed by signal).
	ExitCode int
	// Sentinel classifies the failure: ErrSpawnFailed, ErrWaitFailed or
	// ErrCommandFailed.
	Sentinel sentinel.Error
	// Err is the underlying OS error for spawn and wait failures.
	Err error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	cmdline := e.Command
	if len(e.Args) > 0 {
		cmdline += " " + strings.Join(e.Args, " ")
	}
	switch e.Sentinel {
	case ErrCommandFailed:
		if e.ExitCode < 0 {
			return fmt.Sprintf("run %d: %s: %s (killed by signal)", e.RunID, cmdline, e.Sentinel)
		}
		return fmt.Sprintf("run %d: %s: %s %d", e.RunID, cmdline, e.Sentinel, e.ExitCode)
	default:
		return fmt.Sprintf("run %d: %s: %s: %v", e.RunID, cmdline, e.Sentinel, e.Err)
	}
}

// Unwrap exposes both the classifying sentinel and the underlying OS
// error (when present) to errors.Is and errors.As.
func (e *RunError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Sentinel, e.Err}
	}
	return []error{e.Sentinel}
}
