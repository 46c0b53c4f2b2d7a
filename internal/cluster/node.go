package cluster

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/giantswarm/ccmenv/conf"
	"github.com/giantswarm/ccmenv/internal/runner"
)

// NodeStatus is the lifecycle state of a Node.
type NodeStatus int

// A node is ACTIVE from allocation until Delete succeeds, and DELETED
// afterwards. Deleted nodes are never resurrected; their ids stay
// occupied within the datacenter.
const (
	StatusActive NodeStatus = iota
	StatusDeleted
)

// String returns the status name.
func (s NodeStatus) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusDeleted:
		return "DELETED"
	}
	return fmt.Sprintf("NodeStatus(%d)", int(s))
}

// NodeIDNone is the sentinel node id meaning a datacenter has no free
// id left (valid ids are 1-255). Allocation signals exhaustion through
// this value rather than an error; callers must check.
const NodeIDNone = 256

// StartOption is a flag passed verbatim to the external tool's start
// subcommand. Options appear on the command line in the order the
// caller supplies them.
type StartOption int

// Start flags understood by the external tool.
const (
	StartNoWait StartOption = iota
	StartWaitOtherNotice
	StartWaitForBinaryProto
)

// flag returns the command-line switch for the option.
func (o StartOption) flag() string {
	switch o {
	case StartNoWait:
		return "--no-wait"
	case StartWaitOtherNotice:
		return "--wait-other-notice"
	case StartWaitForBinaryProto:
		return "--wait-for-binary-proto"
	}
	return ""
}

// Node is one addressable cluster member, mapped to one external
// process lifecycle. Nodes are created by Cluster allocation and share
// the cluster's runner and install directory.
//
// Identity fields (name, ids, ports, resources) are immutable after
// construction; only status changes, guarded by its own RWMutex so one
// node's deletion never blocks reads of other nodes.
type Node struct {
	name         string
	datacenterID int
	nodeID       int
	scylla       bool
	smp          int
	memoryMB     int
	config       conf.Value
	run          *runner.Runner
	installDir   string
	binary       string

	mu     sync.RWMutex
	status NodeStatus
}

// newNode allocates a node record. memoryMB of 0 defaults to 512 MB
// per core.
func newNode(datacenterID, nodeID int, scylla bool, smp, memoryMB int, config conf.Value, run *runner.Runner, installDir, binary string) *Node {
	if memoryMB == 0 {
		memoryMB = 512 * smp
	}
	return &Node{
		name:         fmt.Sprintf("node_%d_%d", datacenterID, nodeID),
		datacenterID: datacenterID,
		nodeID:       nodeID,
		scylla:       scylla,
		smp:          smp,
		memoryMB:     memoryMB,
		config:       config,
		run:          run,
		installDir:   installDir,
		binary:       binary,
		status:       StatusActive,
	}
}

// Name returns the derived node name, e.g. "node_1_2".
func (n *Node) Name() string { return n.name }

// DatacenterID returns the node's datacenter id.
func (n *Node) DatacenterID() int { return n.datacenterID }

// ID returns the node id within its datacenter, or NodeIDNone when the
// node was allocated from a full datacenter.
func (n *Node) ID() int { return n.nodeID }

// SMP returns the node's core count hint.
func (n *Node) SMP() int { return n.smp }

// MemoryMB returns the node's memory hint in MB.
func (n *Node) MemoryMB() int { return n.memoryMB }

// Config returns the node's configuration overlay.
func (n *Node) Config() conf.Value { return n.config }

// Status returns the node's lifecycle state.
func (n *Node) Status() NodeStatus {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// JMXPort derives the node's JMX port: 7000 + datacenter*100 + id.
// Past node id 99 the formula collides across datacenters (dc 1 node
// 101 and dc 2 node 1 both map to 7201); the formula is kept for
// compatibility with existing tooling rather than fixed.
func (n *Node) JMXPort() int {
	return 7000 + n.datacenterID*100 + n.nodeID
}

// DebugPort derives the node's remote-debug port: 2000 +
// datacenter*100 + id. Same collision caveat as JMXPort.
func (n *Node) DebugPort() int {
	return 2000 + n.datacenterID*100 + n.nodeID
}

// env returns the per-node resource hints passed to the external tool
// through its environment.
func (n *Node) env() map[string]string {
	return map[string]string{
		"SCYLLA_EXT_OPTS": fmt.Sprintf("--smp=%d --memory=%dM", n.smp, n.memoryMB),
	}
}

// Init registers the node with the external tool: one "add" invocation
// carrying the derived name, datacenter label, computed ports and the
// shared install directory.
func (n *Node) Init(ctx context.Context) error {
	args := []string{
		"add", n.name,
		"--data-center", fmt.Sprintf("dc%d", n.datacenterID),
		"--jmx-port", strconv.Itoa(n.JMXPort()),
		"--remote-debug-port", strconv.Itoa(n.DebugPort()),
		"--config-dir", n.installDir,
	}
	if n.scylla {
		args = append(args, "--scylla")
	}
	_, err := n.run.Run(ctx, n.binary, args, &runner.Options{Env: n.env()})
	return err
}

// Start launches the node. opts translate to command-line switches in
// the order supplied.
func (n *Node) Start(ctx context.Context, opts ...StartOption) error {
	args := []string{"start", n.name, "--config-dir", n.installDir}
	for _, o := range opts {
		args = append(args, o.flag())
	}
	_, err := n.run.Run(ctx, n.binary, args, &runner.Options{Env: n.env()})
	return err
}

// Delete removes the node from the external tool and marks it DELETED.
// The transition trusts the external exit code: a successful "remove"
// marks the node deleted unconditionally. Holding the node's write
// lock for the duration serializes deletion per node without touching
// the rest of the cluster.
func (n *Node) Delete(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := n.run.Run(ctx, n.binary, []string{"remove", n.name}, nil); err != nil {
		return err
	}
	n.status = StatusDeleted
	return nil
}
