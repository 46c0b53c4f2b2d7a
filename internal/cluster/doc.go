// Package cluster owns the in-memory topology of one ccm-managed
// cluster: its nodes, their derived names and ports, and the lifecycle
// operations that drive the external tool through a shared runner.
package cluster
