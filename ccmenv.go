package ccmenv

import (
	"context"
	"os"
	"path/filepath"

	"github.com/giantswarm/ccmenv/conf"
	"github.com/giantswarm/ccmenv/internal/cluster"
)

// Compile-time interface satisfaction checks.
var (
	_ Cluster = (*clusterWrapper)(nil)
	_ Node    = (*nodeWrapper)(nil)
)

// StartOption is a readiness flag passed to the external tool's start
// subcommand, in the order the caller supplies them.
type StartOption = cluster.StartOption

// Start flags understood by the external tool.
const (
	// StartNoWait returns as soon as the process is launched.
	StartNoWait = cluster.StartNoWait

	// StartWaitOtherNotice waits until other live nodes notice the
	// starting node.
	StartWaitOtherNotice = cluster.StartWaitOtherNotice

	// StartWaitForBinaryProto waits until the node serves the native
	// protocol port.
	StartWaitForBinaryProto = cluster.StartWaitForBinaryProto
)

// NodeStatus is the lifecycle state of a Node.
type NodeStatus = cluster.NodeStatus

// A node is ACTIVE from allocation until Delete succeeds, and DELETED
// afterwards.
const (
	StatusActive  = cluster.StatusActive
	StatusDeleted = cluster.StatusDeleted
)

// clusterWrapper wraps cluster.Cluster to implement the Cluster
// interface. The cluster.Cluster is stored as a named (unexported)
// field rather than embedded to prevent callers from using type
// assertions to reach internal methods that are not part of the
// public Cluster interface.
type clusterWrapper struct {
	c *cluster.Cluster
}

func (w *clusterWrapper) Name() string       { return w.c.Name() }
func (w *clusterWrapper) Version() string    { return w.c.Version() }
func (w *clusterWrapper) IPPrefix() string   { return w.c.IPPrefix() }
func (w *clusterWrapper) InstallDir() string { return w.c.InstallDir() }
func (w *clusterWrapper) LogPath() string    { return w.c.LogPath() }
func (w *clusterWrapper) Destroyed() bool    { return w.c.Destroyed() }

// Nodes implements Cluster.Nodes, wrapping each handle.
func (w *clusterWrapper) Nodes() []Node {
	inner := w.c.Nodes()
	out := make([]Node, len(inner))
	for i, n := range inner {
		out[i] = &nodeWrapper{n: n}
	}
	return out
}

// AddNode implements Cluster.AddNode, returning the Node interface.
//
//nolint:ireturn // Returns Node interface by design for testability (mockable).
func (w *clusterWrapper) AddNode(datacenterID int) Node {
	return &nodeWrapper{n: w.c.AddNode(datacenterID)}
}

func (w *clusterWrapper) Init(ctx context.Context) error { return w.c.Init(ctx) }

func (w *clusterWrapper) Start(ctx context.Context, opts ...StartOption) error {
	return w.c.Start(ctx, opts...)
}

func (w *clusterWrapper) Stop(ctx context.Context) error    { return w.c.Stop(ctx) }
func (w *clusterWrapper) Destroy(ctx context.Context) error { return w.c.Destroy(ctx) }
func (w *clusterWrapper) Close() error                      { return w.c.Close() }

// nodeWrapper wraps cluster.Node to implement the Node interface.
// Wrappers around the same underlying node share state, so two
// wrappers for one node always agree on its status.
type nodeWrapper struct {
	n *cluster.Node
}

func (w *nodeWrapper) Name() string       { return w.n.Name() }
func (w *nodeWrapper) DatacenterID() int  { return w.n.DatacenterID() }
func (w *nodeWrapper) ID() int            { return w.n.ID() }
func (w *nodeWrapper) SMP() int           { return w.n.SMP() }
func (w *nodeWrapper) MemoryMB() int      { return w.n.MemoryMB() }
func (w *nodeWrapper) Config() conf.Value { return w.n.Config() }
func (w *nodeWrapper) Status() NodeStatus { return w.n.Status() }
func (w *nodeWrapper) JMXPort() int       { return w.n.JMXPort() }
func (w *nodeWrapper) DebugPort() int     { return w.n.DebugPort() }

func (w *nodeWrapper) Init(ctx context.Context) error { return w.n.Init(ctx) }

func (w *nodeWrapper) Start(ctx context.Context, opts ...StartOption) error {
	return w.n.Start(ctx, opts...)
}

func (w *nodeWrapper) Delete(ctx context.Context) error { return w.n.Delete(ctx) }

// defaultClusterConfig returns a clusterConfig populated with all
// default values. Both NewCluster and test helpers use this to avoid
// duplicating the default field assignments.
func defaultClusterConfig(name, version string) clusterConfig {
	return clusterConfig{cluster.Config{
		Name:            name,
		Version:         version,
		InstallDir:      filepath.Join(os.TempDir(), DefaultInstallDirName),
		Binary:          DefaultBinary,
		DefaultSMP:      DefaultSMP,
		DefaultMemoryMB: DefaultMemoryMB,
	}}
}

// NewCluster constructs a cluster handle named name for the given
// database version. Construction resolves the IP prefix (sniffing an
// unused loopback prefix unless WithIPPrefix pinned one), creates and
// locks the install directory, opens the command log, and allocates
// any nodes requested via WithNodes. No external tool invocation
// happens until Init.
//
// Returns ErrInstallDirBusy when another live process holds the same
// cluster name in the same install directory, ErrInstallPathConflict
// when the install path exists and is not a directory, and
// ErrNoAvailablePrefix when prefix sniffing found no unused prefix.
//
// Panics if name or version is empty, or if any option received an
// invalid value. See individual With* functions for constraints.
//
//nolint:ireturn // Returns Cluster interface by design for testability (mockable).
func NewCluster(ctx context.Context, name, version string, opts ...Option) (Cluster, error) {
	requireNonEmpty("cluster name", name)
	requireNonEmpty("cluster version", version)

	cfg := defaultClusterConfig(name, version)
	for _, opt := range opts {
		opt(&cfg)
	}

	c, err := cluster.New(ctx, cfg.toClusterConfig())
	if err != nil {
		return nil, err
	}
	return &clusterWrapper{c: c}, nil
}
