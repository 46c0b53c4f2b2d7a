// Package sentinel provides a const-compatible error type for immutable
// sentinel errors.
package sentinel
