package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/giantswarm/ccmenv/conf"
	"github.com/giantswarm/ccmenv/internal/netutil"
	"github.com/giantswarm/ccmenv/internal/runner"
	"github.com/giantswarm/ccmenv/internal/sentinel"
	"github.com/gofrs/flock"
)

// ErrInstallPathConflict is returned by New when the install path
// exists and is not a directory.
const ErrInstallPathConflict = sentinel.Error("install path exists and is not a directory")

// Config carries everything needed to construct a Cluster. The public
// ccmenv package fills it from options; fields are assumed validated.
type Config struct {
	Name    string
	Version string

	// IPPrefix is the cluster's IPv4 /24 prefix. Empty means sniff an
	// unused loopback prefix. A supplied prefix is normalized to end
	// with a separator.
	IPPrefix string

	// NodesPerDC pre-allocates nodes at construction: index i requests
	// that many nodes in datacenter i+1.
	NodesPerDC []int

	InstallDir string

	// Scylla selects the flavor-specific launch option on create/add.
	Scylla bool

	// Binary is the external tool, resolved via the standard
	// executable search when not an absolute path.
	Binary string

	DefaultSMP      int
	DefaultMemoryMB int
	DefaultConf     conf.Value

	// Journal enables the SQLite run journal next to the log.
	Journal bool

	// Logger overrides the package logger for this cluster.
	Logger *slog.Logger
}

// Cluster owns zero or more Nodes sharing one install directory,
// version, IP prefix and runner. The runner (and through it the log
// sink) is shared by the cluster and every node; nodes never reference
// the cluster back.
type Cluster struct {
	name       string
	scylla     bool
	version    string
	ipPrefix   string
	installDir string
	binary     string

	defaultSMP      int
	defaultMemoryMB int
	defaultConf     conf.Value

	run  *runner.Runner
	lock *flock.Flock
	log  *slog.Logger

	// lifecycleMu serializes stop/destroy so the destroyed flag's
	// check-then-act is atomic across concurrent callers.
	lifecycleMu sync.Mutex

	// mu guards nodes and destroyed. Enumeration takes read access;
	// appending a node takes write access. Per-node state is guarded
	// by each node's own lock.
	mu        sync.RWMutex
	nodes     []*Node
	destroyed bool
}

// New constructs a Cluster: resolves the IP prefix, validates or
// creates the install directory, locks it, opens the cluster's log
// sink (and journal, when enabled) and pre-allocates the requested
// nodes per datacenter.
func New(ctx context.Context, cfg Config) (*Cluster, error) {
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}

	ipPrefix := cfg.IPPrefix
	if ipPrefix == "" {
		sniffed, err := netutil.PickUnusedPrefix()
		if err != nil {
			return nil, err
		}
		ipPrefix = sniffed
	} else if !strings.HasSuffix(ipPrefix, ".") {
		ipPrefix += "."
	}

	switch info, err := os.Stat(cfg.InstallDir); {
	case err == nil:
		if !info.IsDir() {
			return nil, fmt.Errorf("%s: %w", cfg.InstallDir, ErrInstallPathConflict)
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(cfg.InstallDir, 0o755); err != nil {
			return nil, fmt.Errorf("create install directory: %w", err)
		}
	default:
		return nil, fmt.Errorf("stat install directory: %w", err)
	}

	lock, err := acquireInstallLock(filepath.Join(cfg.InstallDir, cfg.Name+".lock"))
	if err != nil {
		return nil, err
	}

	sink, err := runner.OpenSink(filepath.Join(cfg.InstallDir, cfg.Name+".log"))
	if err != nil {
		releaseInstallLock(log, lock)
		return nil, err
	}

	var journal *runner.Journal
	if cfg.Journal {
		journal, err = runner.OpenJournal(ctx, filepath.Join(cfg.InstallDir, cfg.Name+".runs.db"))
		if err != nil {
			_ = sink.Close()
			releaseInstallLock(log, lock)
			return nil, err
		}
	}

	c := &Cluster{
		name:            cfg.Name,
		scylla:          cfg.Scylla,
		version:         cfg.Version,
		ipPrefix:        ipPrefix,
		installDir:      cfg.InstallDir,
		binary:          cfg.Binary,
		defaultSMP:      cfg.DefaultSMP,
		defaultMemoryMB: cfg.DefaultMemoryMB,
		defaultConf:     cfg.DefaultConf,
		run:             runner.New(sink, journal, log),
		lock:            lock,
		log:             log,
	}

	for i, count := range cfg.NodesPerDC {
		for n := 0; n < count; n++ {
			c.AddNode(i + 1)
		}
	}
	return c, nil
}

// Name returns the cluster name.
func (c *Cluster) Name() string { return c.name }

// Version returns the requested database version string.
func (c *Cluster) Version() string { return c.version }

// IPPrefix returns the cluster's IPv4 prefix, trailing separator
// included.
func (c *Cluster) IPPrefix() string { return c.ipPrefix }

// InstallDir returns the cluster's install/config directory.
func (c *Cluster) InstallDir() string { return c.installDir }

// LogPath returns the cluster's command log file.
func (c *Cluster) LogPath() string { return c.run.Sink().Path() }

// Destroyed reports whether Destroy has succeeded. The flag is
// monotonic: once true, stop and destroy become successful no-ops.
func (c *Cluster) Destroyed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.destroyed
}

// Nodes returns a snapshot of the cluster's node handles in creation
// order.
func (c *Cluster) Nodes() []*Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// freeNodeID computes the lowest unused node id (1-255) within the
// datacenter by linear scan in ascending order. Deleted nodes keep
// their ids. Returns NodeIDNone when the datacenter is full; callers
// must check.
func (c *Cluster) freeNodeID(datacenterID int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.freeNodeIDLocked(datacenterID)
}

func (c *Cluster) freeNodeIDLocked(datacenterID int) int {
scan:
	for id := 1; id <= 255; id++ {
		for _, n := range c.nodes {
			if n.datacenterID == datacenterID && n.nodeID == id {
				continue scan
			}
		}
		return id
	}
	return NodeIDNone
}

// AddNode allocates a node in the given datacenter (0 defaults to 1)
// using the cluster's default resource hints and configuration
// overlay, appends it to the owned collection and returns the shared
// handle. The handle stays valid for the cluster's lifetime.
func (c *Cluster) AddNode(datacenterID int) *Node {
	if datacenterID <= 0 {
		datacenterID = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := newNode(
		datacenterID,
		c.freeNodeIDLocked(datacenterID),
		c.scylla,
		c.defaultSMP,
		c.defaultMemoryMB,
		c.defaultConf,
		c.run,
		c.installDir,
		c.binary,
	)
	c.nodes = append(c.nodes, n)
	return n
}

// Init creates the external cluster and registers every pre-allocated
// node, sequentially and in creation order. The first node failure
// aborts the remainder; there is no partial-cluster rollback. Any
// stale external state directory for this cluster name is removed
// first.
func (c *Cluster) Init(ctx context.Context) error {
	stale := filepath.Join(c.installDir, c.name)
	if _, err := os.Stat(stale); err == nil {
		if err := os.RemoveAll(stale); err != nil {
			return fmt.Errorf("remove stale cluster state: %w", err)
		}
	}

	args := []string{
		"create", c.name,
		"-v", c.version,
		"-i", c.ipPrefix,
		"--config-dir", c.installDir,
	}
	if c.scylla {
		args = append(args, "--scylla")
	}
	if _, err := c.run.Run(ctx, c.binary, args, nil); err != nil {
		return err
	}

	for _, n := range c.Nodes() {
		if err := n.Init(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Start starts every node with the given options, one at a time in
// creation order. The sequencing is a correctness property of database
// bootstrap ordering, not an accident; do not parallelize it.
func (c *Cluster) Start(ctx context.Context, opts ...StartOption) error {
	for _, n := range c.Nodes() {
		if err := n.Start(ctx, opts...); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops the external cluster. A destroyed cluster reports
// success without issuing any external call.
func (c *Cluster) Stop(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.Destroyed() {
		return nil
	}
	return c.stopCommand(ctx)
}

func (c *Cluster) stopCommand(ctx context.Context) error {
	_, err := c.run.Run(ctx, c.binary, []string{"stop", c.name, "--config-dir", c.installDir}, nil)
	return err
}

// Destroy stops the cluster best-effort (a stop failure is ignored)
// and removes its external state. The destroyed flag is set only when
// the remove invocation succeeds; afterwards Stop and Destroy are
// no-ops returning success.
func (c *Cluster) Destroy(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.Destroyed() {
		return nil
	}

	if err := c.stopCommand(ctx); err != nil {
		c.log.Debug("ignoring stop failure during destroy", "cluster", c.name, "err", err)
	}

	if _, err := c.run.Run(ctx, c.binary, []string{"remove", c.name, "--config-dir", c.installDir}, nil); err != nil {
		return err
	}

	c.mu.Lock()
	c.destroyed = true
	c.mu.Unlock()
	return nil
}

// Close releases the install lock and flushes and closes the log sink
// and journal. Call it after Destroy; a closed cluster can no longer
// issue external commands.
func (c *Cluster) Close() error {
	releaseInstallLock(c.log, c.lock)
	return c.run.Close()
}
