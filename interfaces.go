package ccmenv

import (
	"context"

	"github.com/giantswarm/ccmenv/conf"
)

// Cluster owns a set of nodes sharing one version, IP prefix and
// install directory, and drives their lifecycle through the external
// tool.
//
// Callers follow this ordering:
//
//	NewCluster → Init → Start → (work) → Stop/Destroy → Close
//
// Init and Start are sequential over nodes and abort on the first
// failure. Stop and Destroy are idempotent after a successful Destroy.
// Close releases the install-directory lock and flushes the command
// log; call it last.
type Cluster interface {
	// Name returns the cluster name.
	Name() string

	// Version returns the requested database version string, passed
	// verbatim to the external tool.
	Version() string

	// IPPrefix returns the cluster's IPv4 prefix including the
	// trailing separator, e.g. "127.0.1.". Node N listens on
	// IPPrefix + N.
	IPPrefix() string

	// InstallDir returns the directory holding the external tool's
	// state for this cluster, plus the command log and lock file.
	InstallDir() string

	// LogPath returns the cluster's append-only command log file.
	LogPath() string

	// Destroyed reports whether Destroy has succeeded. The flag is
	// monotonic.
	Destroyed() bool

	// Nodes returns a snapshot of the cluster's node handles in
	// creation order, deleted nodes included.
	Nodes() []Node

	// AddNode allocates a node in the given datacenter (0 defaults
	// to 1) with the lowest unused id and the cluster's default
	// resource hints. The returned handle carries NodeIDNone when
	// the datacenter had no free id; check before Init.
	//
	// AddNode only records the node. Call the node's Init (or the
	// cluster's Init, which covers pre-allocated nodes) to register
	// it externally.
	AddNode(datacenterID int) Node

	// Init creates the external cluster and registers every node
	// allocated so far, sequentially in creation order. The first
	// failure aborts the remainder without rollback.
	Init(ctx context.Context) error

	// Start starts every node one at a time in creation order with
	// the given options. The first failure aborts the remainder.
	Start(ctx context.Context, opts ...StartOption) error

	// Stop stops the external cluster. Returns nil without issuing
	// any external call once the cluster is destroyed.
	Stop(ctx context.Context) error

	// Destroy stops the cluster best-effort and removes its external
	// state. On success the cluster is marked destroyed and further
	// Stop/Destroy calls are no-ops returning nil.
	Destroy(ctx context.Context) error

	// Close releases the install lock and closes the command log.
	// The cluster can issue no external commands afterwards.
	Close() error
}

// Node is one addressable cluster member. Handles are shared: the
// cluster and the caller see the same state.
type Node interface {
	// Name returns the derived node name, e.g. "node_1_2".
	Name() string

	// DatacenterID returns the datacenter the node belongs to.
	DatacenterID() int

	// ID returns the node id within its datacenter, or NodeIDNone
	// when allocation found no free id.
	ID() int

	// SMP returns the node's core count hint.
	SMP() int

	// MemoryMB returns the node's memory hint in megabytes.
	MemoryMB() int

	// Config returns the node's configuration overlay.
	Config() conf.Value

	// Status returns the node's lifecycle state.
	Status() NodeStatus

	// JMXPort returns the derived JMX port. See Known Constraints in
	// the package documentation for the cross-datacenter collision.
	JMXPort() int

	// DebugPort returns the derived remote-debug port.
	DebugPort() int

	// Init registers the node with the external tool.
	Init(ctx context.Context) error

	// Start launches the node with the given options, passed to the
	// external tool in the order supplied.
	Start(ctx context.Context, opts ...StartOption) error

	// Delete removes the node externally and marks it DELETED. The
	// node's id stays occupied within its datacenter.
	Delete(ctx context.Context) error
}
