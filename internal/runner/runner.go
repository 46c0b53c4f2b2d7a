package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// maxLogLine bounds a single sink record for captured output. A child
// line longer than this is emitted as consecutive records of up to
// this size; the stream is always consumed to EOF so the child never
// blocks on a full pipe.
const maxLogLine = 1024 * 1024

// Options modify a single run.
type Options struct {
	// Env is merged on top of the inherited environment; inherited
	// variables are never removed. Each override is logged before the
	// child is spawned.
	Env map[string]string

	// AllowFailure turns a non-zero exit into a success result that
	// still carries the raw status.
	AllowFailure bool
}

// Result is the outcome of a completed run.
type Result struct {
	RunID int64
	// ExitCode is the child's exit code, or -1 when it could not be
	// determined (killed by signal).
	ExitCode int
	// State is the raw process state from the wait.
	State *os.ProcessState
}

// Success reports whether the child exited with code zero.
func (r Result) Success() bool {
	return r.State != nil && r.State.Success()
}

// Runner executes external commands and serializes their output into a
// shared Sink. Multiple runs may execute concurrently through one
// Runner; the run-id counter (atomic) and the Sink (per-write mutex)
// are the only shared state.
//
// The counter is owned by the Runner instance, never process-wide, so
// independent Runners (one log per cluster) do not share numbering.
type Runner struct {
	sink    *Sink
	journal *Journal // nil when journaling is disabled
	log     *slog.Logger

	// lastRunID is incremented with atomic add; the first run gets id 1.
	lastRunID atomic.Int64
}

// New creates a Runner writing to sink. journal may be nil to disable
// run journaling. If logger is nil, slog.Default() is used.
func New(sink *Sink, journal *Journal, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{sink: sink, journal: journal, log: logger}
}

// Sink returns the shared log sink.
func (r *Runner) Sink() *Sink {
	return r.sink
}

// Close syncs and closes the log sink and the run journal. Runs must
// not be in flight when Close is called.
func (r *Runner) Close() error {
	var errs []error
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.sink.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// tagged renders the fixed-width log tag, e.g. "stdout[3]       -> ".
// The tag field is left-padded to width 15 for alignment.
func tagged(tag string, runID int64) string {
	return fmt.Sprintf("%-15s -> ", fmt.Sprintf("%s[%d]", tag, runID))
}

// Run executes command with args, streaming its output into the sink.
//
// The log for a run always contains one "started" line, then zero or
// more "stdout"/"stderr" lines (each stream internally ordered; their
// relative interleaving is unspecified), then one "exited" line. Lines
// from concurrent runs may interleave but are never torn.
//
// A hung child hangs this call: no timeout is applied and ctx does not
// kill the process. ctx only bounds journal writes.
//
// On exit code zero, or any exit when opts.AllowFailure is set, Run
// returns a Result carrying the raw status. Otherwise it returns a
// *RunError unwrapping to ErrSpawnFailed, ErrWaitFailed or
// ErrCommandFailed.
func (r *Runner) Run(ctx context.Context, command string, args []string, opts *Options) (Result, error) {
	runID := r.lastRunID.Add(1)
	started := time.Now()

	allowFailure := false
	cmd := exec.Command(command, args...)
	if opts != nil {
		allowFailure = opts.AllowFailure
		if len(opts.Env) > 0 {
			// Sorted for a deterministic log; the override order has no
			// semantic meaning.
			keys := make([]string, 0, len(opts.Env))
			for k := range opts.Env {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			env := os.Environ()
			for _, k := range keys {
				r.writeLine(tagged("env", runID) + k + "=" + opts.Env[k])
				env = append(env, k+"="+opts.Env[k])
			}
			cmd.Env = env
		}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return r.failSpawn(ctx, runID, command, args, started, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return r.failSpawn(ctx, runID, command, args, started, err)
	}

	if err := cmd.Start(); err != nil {
		return r.failSpawn(ctx, runID, command, args, started, err)
	}

	r.writeLine(tagged("started", runID) + command + " " + joinArgs(args))

	// Both drains must finish before cmd.Wait, which closes the pipes.
	var g errgroup.Group
	g.Go(func() error {
		r.drain(stdout, tagged("stdout", runID))
		return nil
	})
	g.Go(func() error {
		r.drain(stderr, tagged("stderr", runID))
		return nil
	})
	_ = g.Wait()

	waitErr := cmd.Wait()
	var state *os.ProcessState
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		state = cmd.ProcessState
	case errors.As(waitErr, &exitErr):
		state = exitErr.ProcessState
	default:
		r.writeLine(tagged("exited", runID) + "failed to wait on child process: = " + waitErr.Error())
		runErr := &RunError{RunID: runID, Command: command, Args: args, Sentinel: ErrWaitFailed, Err: waitErr}
		r.record(ctx, runID, command, args, started, nil, runErr)
		return Result{RunID: runID}, runErr
	}

	code := state.ExitCode()
	if state.Exited() {
		r.writeLine(tagged("exited", runID) + fmt.Sprintf("status = %d", code))
	} else {
		// Killed by a signal; there is no exit code to report.
		r.writeLine(tagged("exited", runID) + "status = unknown")
	}

	res := Result{RunID: runID, ExitCode: code, State: state}
	if !allowFailure && !state.Success() {
		runErr := &RunError{RunID: runID, Command: command, Args: args, ExitCode: code, Sentinel: ErrCommandFailed}
		r.record(ctx, runID, command, args, started, &code, runErr)
		return res, runErr
	}
	r.record(ctx, runID, command, args, started, &code, nil)
	return res, nil
}

// failSpawn logs and classifies a failure to create the child process.
func (r *Runner) failSpawn(ctx context.Context, runID int64, command string, args []string, started time.Time, err error) (Result, error) {
	r.writeLine(tagged("exited", runID) + "failed to spawn: " + err.Error())
	runErr := &RunError{RunID: runID, Command: command, Args: args, Sentinel: ErrSpawnFailed, Err: err}
	r.record(ctx, runID, command, args, started, nil, runErr)
	return Result{RunID: runID}, runErr
}

// drain copies stream into the sink line by line, each line prefixed
// with the run's stream tag. Lines longer than maxLogLine arrive in
// buffer-sized segments, one record each. The drain ends when the
// child closes its side of the pipe; it never stops reading earlier,
// which would leave the child blocked writing into a full pipe.
func (r *Runner) drain(stream io.Reader, prefix string) {
	br := bufio.NewReaderSize(stream, maxLogLine)
	for {
		// ReadLine returns either a (possibly empty) line or an error,
		// never both; a final unterminated line is returned before EOF.
		line, _, err := br.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.log.Debug("stream drain ended with error", "prefix", prefix, "error", err)
			}
			return
		}
		// The extra space keeps the historical two-space separator
		// between the arrow and the captured line.
		r.writeLine(prefix + " " + string(line))
	}
}

// writeLine appends one record to the sink. Sink failures must not
// abort a run in flight, so they are logged and swallowed, matching
// the best-effort logging of the external tool's output.
func (r *Runner) writeLine(line string) {
	if err := r.sink.WriteLine(line); err != nil {
		r.log.Warn("log sink write failed", "error", err)
	}
}

// record appends the run to the journal when journaling is enabled.
// Journal failures are informational only.
func (r *Runner) record(ctx context.Context, runID int64, command string, args []string, started time.Time, exitCode *int, runErr error) {
	if r.journal == nil {
		return
	}
	e := Entry{
		RunID:      runID,
		Command:    command,
		Args:       joinArgs(args),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if exitCode != nil {
		c := int64(*exitCode)
		e.ExitCode = &c
	}
	if runErr != nil {
		e.Failure = runErr.Error()
	}
	if err := r.journal.Record(ctx, e); err != nil {
		r.log.Warn("run journal write failed", "run_id", runID, "error", err)
	}
}

// joinArgs renders an argument vector the way it is logged: ASCII
// flags, space-joined.
func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
