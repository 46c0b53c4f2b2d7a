package ccmenv

import "github.com/giantswarm/ccmenv/internal/cluster"

// clusterConfig holds configuration for a Cluster. This unexported
// type wraps cluster.Config via embedding, keeping internal/cluster
// types out of the public API signature while avoiding field-by-field
// duplication.
type clusterConfig struct {
	cluster.Config
}

// toClusterConfig returns the embedded cluster.Config.
func (c clusterConfig) toClusterConfig() cluster.Config {
	return c.Config
}
