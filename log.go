package ccmenv

import (
	"log/slog"

	"github.com/giantswarm/ccmenv/internal/cluster"
)

// SetLogger replaces the package-level logger used by ccmenv.
// This allows applications to integrate ccmenv logging with their own
// logging infrastructure. The provided logger should already have any
// desired attributes; ccmenv will not add additional attributes.
//
// If l is nil, the logger resets to the default: slog.Default() with
// "component" attribute, re-derived on the next use and then cached.
// Call SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with other ccmenv operations;
// the logger is stored behind atomic pointers. Note that the external
// tool's output goes to the cluster's command log file, not here; the
// logger carries the library's own diagnostics.
//
// Example:
//
//	ccmenv.SetLogger(myLogger.With("component", "ccmenv"))
func SetLogger(l *slog.Logger) {
	cluster.SetLogger(l)
}
