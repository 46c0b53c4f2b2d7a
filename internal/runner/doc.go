// Package runner supervises one-shot external commands: every run gets a
// monotonic id, its stdout and stderr are streamed line by line into a
// shared append-only log sink, and a non-zero exit surfaces as a typed
// error unless the caller explicitly allows failure.
package runner
