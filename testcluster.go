package ccmenv

import (
	"context"
	"testing"
)

// NewTestCluster constructs a cluster for use inside a test and
// registers a best-effort teardown with tb's cleanup list: when the
// test ends, the cluster is destroyed and closed even if the test
// never reached its own teardown. Cleanup failures are logged through
// tb, not propagated, so a flaky external removal cannot flip a
// passing test.
//
// The safety net is not a substitute for calling Destroy in the test
// body: relying on it leaves external processes running until the
// test's very end.
//
// Construction failures fail the test immediately via tb.Fatal.
//
//nolint:ireturn // Returns Cluster interface by design for testability (mockable).
func NewTestCluster(tb testing.TB, name, version string, opts ...Option) Cluster {
	tb.Helper()

	c, err := NewCluster(context.Background(), name, version, opts...)
	if err != nil {
		tb.Fatalf("ccmenv: create test cluster %q: %v", name, err)
	}

	tb.Cleanup(func() {
		if err := c.Destroy(context.Background()); err != nil {
			tb.Logf("ccmenv: cleanup destroy of cluster %q failed: %v", name, err)
		}
		if err := c.Close(); err != nil {
			tb.Logf("ccmenv: cleanup close of cluster %q failed: %v", name, err)
		}
	})
	return c
}
