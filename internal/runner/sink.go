package runner

import (
	"fmt"
	"os"
	"sync"
)

// Sink is the single append-only destination shared by all concurrent
// runs of one Runner and by both stream drains of each run. The file is
// opened for append so a restarted process never truncates history.
//
// The mutex is scoped to a single WriteLine call, not to a whole run:
// lines from concurrent runs may interleave with each other, but a line
// is never torn mid-write.
type Sink struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// OpenSink opens (creating if absent) the log file at path for append.
func OpenSink(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log sink %s: %w", path, err)
	}
	return &Sink{path: path, f: f}, nil
}

// WriteLine appends line plus a trailing newline as one atomic write.
// The line must not itself contain a newline; callers (the Runner) only
// ever pass single log records.
func (s *Sink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("write to closed log sink %s", s.path)
	}
	if _, err := s.f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write log sink %s: %w", s.path, err)
	}
	return nil
}

// Path returns the log file path.
func (s *Sink) Path() string {
	return s.path
}

// Close syncs the sink to durable storage and closes the handle.
// Safe to call more than once; subsequent calls return nil.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync log sink %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close log sink %s: %w", s.path, err)
	}
	return nil
}
