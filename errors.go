package ccmenv

import (
	"github.com/giantswarm/ccmenv/internal/cluster"
	"github.com/giantswarm/ccmenv/internal/netutil"
	"github.com/giantswarm/ccmenv/internal/runner"
)

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrSpawnFailed is returned when the external tool could not be
	// found or the OS refused to create the process.
	ErrSpawnFailed = runner.ErrSpawnFailed

	// ErrWaitFailed is returned when the external process was spawned
	// but its exit could not be observed.
	ErrWaitFailed = runner.ErrWaitFailed

	// ErrCommandFailed is returned when an external invocation exited
	// with a non-zero status. Use errors.As with *RunError to recover
	// the run id, command, arguments and exit code.
	ErrCommandFailed = runner.ErrCommandFailed

	// ErrInstallPathConflict is returned by NewCluster when the install
	// path exists and is not a directory.
	ErrInstallPathConflict = cluster.ErrInstallPathConflict

	// ErrInstallDirBusy is returned by NewCluster when another process
	// holds the lock for the same cluster name in the same directory.
	ErrInstallDirBusy = cluster.ErrInstallDirBusy

	// ErrNoAvailablePrefix is returned by NewCluster when no unused
	// loopback /24 prefix could be sniffed.
	ErrNoAvailablePrefix = netutil.ErrNoAvailablePrefix
)

// RunError is the typed failure of one supervised external invocation.
type RunError = runner.RunError

// NodeIDNone is the sentinel node id meaning the datacenter had no
// free id (1-255) left at allocation. It is a value to check, not an
// error: AddNode still returns a handle carrying it.
const NodeIDNone = cluster.NodeIDNone
