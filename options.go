package ccmenv

import (
	"fmt"
	"log/slog"

	"github.com/giantswarm/ccmenv/conf"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive(name string, v int) {
	if v <= 0 {
		panic(fmt.Sprintf("ccmenv: %s must be greater than 0, got %d", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("ccmenv: %s must not be empty", name))
	}
}

// Option configures a Cluster during construction via NewCluster.
// Each With* function returns an Option that sets a specific field.
//
// Several With* functions panic on invalid input (empty paths,
// non-positive counts). These panics are intentional: option values
// are typically compile-time constants, so an invalid value indicates
// a programmer error rather than a runtime condition. The pattern
// mirrors [regexp.MustCompile].
type Option func(*clusterConfig)

// WithIPPrefix pins the cluster's IPv4 /24 prefix instead of sniffing
// an unused loopback prefix. A missing trailing separator is added,
// so "127.0.1" and "127.0.1." are equivalent.
//
// Panics if prefix is empty.
func WithIPPrefix(prefix string) Option {
	requireNonEmpty("IP prefix", prefix)
	return func(c *clusterConfig) {
		c.IPPrefix = prefix
	}
}

// WithNodes pre-allocates nodes at construction: perDC[i] nodes in
// datacenter i+1. WithNodes(3) gives a three-node single-datacenter
// cluster; WithNodes(2, 1) gives two nodes in dc1 and one in dc2.
// The nodes are registered externally by Init.
//
// Panics if no counts are given or any count is not positive.
func WithNodes(perDC ...int) Option {
	if len(perDC) == 0 {
		panic("ccmenv: WithNodes needs at least one datacenter node count")
	}
	for i, n := range perDC {
		if n <= 0 {
			panic(fmt.Sprintf("ccmenv: node count for datacenter %d must be greater than 0, got %d", i+1, n))
		}
	}
	return func(c *clusterConfig) {
		c.NodesPerDC = perDC
	}
}

// WithInstallDir sets the directory holding the external tool's state,
// the command log and the lock file for this cluster. The directory is
// created when missing. Useful in CI environments where multiple
// projects need isolated state directories.
// If not set, defaults to filepath.Join(os.TempDir(), DefaultInstallDirName).
//
// Panics if dir is empty.
func WithInstallDir(dir string) Option {
	requireNonEmpty("install directory", dir)
	return func(c *clusterConfig) {
		c.InstallDir = dir
	}
}

// WithScylla selects the Scylla flavor: create and add invocations
// carry the flavor switch, and nodes receive resource hints through
// the environment.
func WithScylla() Option {
	return func(c *clusterConfig) {
		c.Scylla = true
	}
}

// WithBinary sets the external tool binary, resolved via the standard
// executable search when not an absolute path.
//
// Panics if binPath is empty.
func WithBinary(binPath string) Option {
	requireNonEmpty("binary path", binPath)
	return func(c *clusterConfig) {
		c.Binary = binPath
	}
}

// WithDefaultSMP sets the per-node core count hint used for nodes
// allocated by this cluster.
//
// Panics if smp <= 0.
func WithDefaultSMP(smp int) Option {
	requirePositive("SMP", smp)
	return func(c *clusterConfig) {
		c.DefaultSMP = smp
	}
}

// WithDefaultMemoryMB sets the per-node memory hint in megabytes.
// A value of 0 derives the hint as 512 MB per core.
//
// Panics if memoryMB < 0.
func WithDefaultMemoryMB(memoryMB int) Option {
	if memoryMB < 0 {
		panic(fmt.Sprintf("ccmenv: memory must not be negative, got %d", memoryMB))
	}
	return func(c *clusterConfig) {
		c.DefaultMemoryMB = memoryMB
	}
}

// WithDefaultConf sets the configuration overlay attached to nodes
// allocated by this cluster.
func WithDefaultConf(v conf.Value) Option {
	return func(c *clusterConfig) {
		c.DefaultConf = v
	}
}

// WithRunJournal enables the SQLite run journal next to the command
// log. The journal records one row per external invocation (run id,
// command line, exit code or failure, timestamps) for post-mortem
// queries.
func WithRunJournal() Option {
	return func(c *clusterConfig) {
		c.Journal = true
	}
}

// WithLogger overrides the package logger for this cluster only.
// Other clusters keep using the logger configured via SetLogger.
//
// Panics if logger is nil.
func WithLogger(logger *slog.Logger) Option {
	if logger == nil {
		panic("ccmenv: logger must not be nil")
	}
	return func(c *clusterConfig) {
		c.Logger = logger
	}
}
