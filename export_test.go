package ccmenv

import (
	"log/slog"

	"github.com/giantswarm/ccmenv/conf"
)

// ConfigSnapshot holds a copy of clusterConfig fields for test
// assertions. Exported only via export_test.go so that the _test
// package can verify option closures actually mutate the config
// without accessing internals.
type ConfigSnapshot struct {
	Name            string
	Version         string
	IPPrefix        string
	NodesPerDC      []int
	InstallDir      string
	Scylla          bool
	Binary          string
	DefaultSMP      int
	DefaultMemoryMB int
	DefaultConf     conf.Value
	Journal         bool
	Logger          *slog.Logger
}

// ApplyOptionsForTesting creates a default clusterConfig for the given
// name and version, applies the given options, and returns a
// ConfigSnapshot of the result. This tests the option closures
// directly without constructing a cluster.
func ApplyOptionsForTesting(name, version string, opts ...Option) ConfigSnapshot {
	cfg := defaultClusterConfig(name, version)
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		Name:            cfg.Name,
		Version:         cfg.Version,
		IPPrefix:        cfg.IPPrefix,
		NodesPerDC:      cfg.NodesPerDC,
		InstallDir:      cfg.InstallDir,
		Scylla:          cfg.Scylla,
		Binary:          cfg.Binary,
		DefaultSMP:      cfg.DefaultSMP,
		DefaultMemoryMB: cfg.DefaultMemoryMB,
		DefaultConf:     cfg.DefaultConf,
		Journal:         cfg.Journal,
		Logger:          cfg.Logger,
	}
}
