// Package ccmenv provisions ephemeral, multi-node Cassandra/Scylla
// clusters for integration testing by driving the external ccm tool.
//
// Every external invocation is supervised: it gets a monotonically
// increasing run id, its stdout and stderr are captured line by line
// into the cluster's append-only command log, and a non-zero exit
// surfaces as a typed error carrying enough context to reproduce the
// invocation. The cluster's logical topology (datacenters, node ids,
// derived ports, IP prefix) is tracked in memory.
//
// # Basic Usage
//
//	ctx := context.Background()
//
//	cluster, err := ccmenv.NewCluster(ctx, "demo", "release:6.2",
//	    ccmenv.WithScylla(),
//	    ccmenv.WithNodes(3),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cluster.Close()
//
//	if err := cluster.Init(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := cluster.Start(ctx, ccmenv.StartWaitForBinaryProto); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Exercise the cluster through its IP prefix...
//
//	if err := cluster.Destroy(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Tests
//
// In test code, NewTestCluster registers a best-effort teardown with
// the test's cleanup list, so a cluster is destroyed when the test
// ends even on failure paths. This is a safety net, not a substitute
// for calling Destroy in the test body.
//
// # Known Constraints
//
// A hung external invocation hangs the calling operation; no timeout
// is applied. The sniffed IP prefix is a point-in-time snapshot with
// no cross-process reservation. Derived JMX/debug ports collide across
// datacenters once a node id exceeds 99.
package ccmenv
