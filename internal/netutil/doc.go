// Package netutil proposes unused loopback /24 prefixes for new
// clusters by inspecting the host's table of bound IPv4 endpoints.
package netutil
