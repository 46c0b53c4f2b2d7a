package cluster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/giantswarm/ccmenv/conf"
)

// writeStubTool writes a shell stub standing in for the external ccm
// binary. Every invocation appends its argument vector to a calls
// file; invocations whose arguments contain failOn exit non-zero.
func writeStubTool(t *testing.T, failOn string) (binPath, callsPath string) {
	t.Helper()

	dir := t.TempDir()
	binPath = filepath.Join(dir, "ccm")
	callsPath = filepath.Join(dir, "calls.txt")

	script := "#!/bin/sh\n" + `echo "$@" >> ` + callsPath + "\n"
	if failOn != "" {
		script += `case "$*" in *"` + failOn + `"*) exit 1 ;; esac` + "\n"
	}
	script += "exit 0\n"

	if err := os.WriteFile(binPath, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub tool: %v", err)
	}
	return binPath, callsPath
}

// readCalls returns the recorded invocations, one argument vector per
// line, empty when the stub was never called.
func readCalls(t *testing.T, callsPath string) []string {
	t.Helper()

	b, err := os.ReadFile(callsPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read calls: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

// testConfig returns a Config driving the stub tool into a fresh
// install directory.
func testConfig(t *testing.T, failOn string) (Config, string) {
	t.Helper()

	bin, calls := writeStubTool(t, failOn)
	return Config{
		Name:            "demo",
		Version:         "release:6.2",
		IPPrefix:        "127.0.1",
		InstallDir:      filepath.Join(t.TempDir(), "install"),
		Scylla:          true,
		Binary:          bin,
		DefaultSMP:      1,
		DefaultMemoryMB: 512,
	}, calls
}

func newTestCluster(t *testing.T, cfg Config) *Cluster {
	t.Helper()

	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_CreatesInstallDirAndNormalizesPrefix(t *testing.T) {
	t.Parallel()

	cfg, _ := testConfig(t, "")
	c := newTestCluster(t, cfg)

	if c.IPPrefix() != "127.0.1." {
		t.Errorf("IPPrefix = %q, want %q", c.IPPrefix(), "127.0.1.")
	}
	info, err := os.Stat(cfg.InstallDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("install dir not created: %v", err)
	}
	if _, err := os.Stat(c.LogPath()); err != nil {
		t.Errorf("log sink not created: %v", err)
	}
}

func TestNew_InstallPathConflict(t *testing.T) {
	t.Parallel()

	cfg, _ := testConfig(t, "")
	cfg.InstallDir = filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(cfg.InstallDir, []byte("x"), 0o644); err != nil {
		t.Fatalf("write conflict file: %v", err)
	}

	_, err := New(context.Background(), cfg)
	if !errors.Is(err, ErrInstallPathConflict) {
		t.Fatalf("err = %v, want ErrInstallPathConflict", err)
	}
}

func TestNew_SecondHolderOfInstallDirFails(t *testing.T) {
	t.Parallel()

	cfg, _ := testConfig(t, "")
	newTestCluster(t, cfg)

	_, err := New(context.Background(), cfg)
	if !errors.Is(err, ErrInstallDirBusy) {
		t.Fatalf("err = %v, want ErrInstallDirBusy", err)
	}
}

func TestNew_PreallocatesNodesPerDatacenter(t *testing.T) {
	t.Parallel()

	cfg, _ := testConfig(t, "")
	cfg.NodesPerDC = []int{2, 1}
	c := newTestCluster(t, cfg)

	var names []string
	for _, n := range c.Nodes() {
		names = append(names, n.Name())
	}
	want := []string{"node_1_1", "node_1_2", "node_2_1"}
	if len(names) != len(want) {
		t.Fatalf("nodes = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("node %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestFreeNodeID(t *testing.T) {
	t.Parallel()

	cfg, _ := testConfig(t, "")
	c := newTestCluster(t, cfg)

	for _, id := range []int{1, 2, 4} {
		c.nodes = append(c.nodes, newNode(1, id, false, 1, 512, c.defaultConf, c.run, c.installDir, c.binary))
	}

	if got := c.freeNodeID(1); got != 3 {
		t.Errorf("freeNodeID(1) = %d, want 3", got)
	}
	// Another datacenter is unaffected by dc 1's allocations.
	if got := c.freeNodeID(2); got != 1 {
		t.Errorf("freeNodeID(2) = %d, want 1", got)
	}
}

func TestFreeNodeID_FullDatacenterReturnsSentinel(t *testing.T) {
	t.Parallel()

	cfg, _ := testConfig(t, "")
	c := newTestCluster(t, cfg)

	for id := 1; id <= 255; id++ {
		c.nodes = append(c.nodes, newNode(1, id, false, 1, 512, c.defaultConf, c.run, c.installDir, c.binary))
	}
	if got := c.freeNodeID(1); got != NodeIDNone {
		t.Errorf("freeNodeID(1) = %d, want NodeIDNone (%d)", got, NodeIDNone)
	}
}

func TestFreeNodeID_DeletedNodesKeepTheirIDs(t *testing.T) {
	t.Parallel()

	cfg, _ := testConfig(t, "")
	c := newTestCluster(t, cfg)

	n := c.AddNode(1)
	if err := n.Delete(context.Background()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n.Status() != StatusDeleted {
		t.Errorf("status = %v, want DELETED", n.Status())
	}
	if got := c.freeNodeID(1); got != 2 {
		t.Errorf("freeNodeID(1) = %d, want 2 (deleted node keeps id 1)", got)
	}
}

func TestAddNode_DefaultsDatacenterToOne(t *testing.T) {
	t.Parallel()

	cfg, _ := testConfig(t, "")
	c := newTestCluster(t, cfg)

	n := c.AddNode(0)
	if n.DatacenterID() != 1 || n.Name() != "node_1_1" {
		t.Errorf("node = %s in dc %d, want node_1_1 in dc 1", n.Name(), n.DatacenterID())
	}
}

func TestNodePorts(t *testing.T) {
	t.Parallel()

	type testCase struct {
		dc, id             int
		wantJMX, wantDebug int
	}

	tests := map[string]testCase{
		"dc1 node1":  {dc: 1, id: 1, wantJMX: 7101, wantDebug: 2101},
		"dc2 node13": {dc: 2, id: 13, wantJMX: 7213, wantDebug: 2213},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			n := newNode(tc.dc, tc.id, false, 1, 512, conf.Null(), nil, "", "")
			if got := n.JMXPort(); got != tc.wantJMX {
				t.Errorf("JMXPort = %d, want %d", got, tc.wantJMX)
			}
			if got := n.DebugPort(); got != tc.wantDebug {
				t.Errorf("DebugPort = %d, want %d", got, tc.wantDebug)
			}
		})
	}

	// Known formula constraint: dc1 node101 collides with dc2 node1.
	a := newNode(1, 101, false, 1, 512, conf.Null(), nil, "", "")
	b := newNode(2, 1, false, 1, 512, conf.Null(), nil, "", "")
	if a.JMXPort() != b.JMXPort() {
		t.Errorf("expected documented port collision, got %d vs %d", a.JMXPort(), b.JMXPort())
	}
}

func TestNodeMemoryDefaultsPerCore(t *testing.T) {
	t.Parallel()

	n := newNode(1, 1, false, 2, 0, conf.Null(), nil, "", "")
	if n.MemoryMB() != 1024 {
		t.Errorf("MemoryMB = %d, want 1024 (512 per core)", n.MemoryMB())
	}
}

func TestClusterLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg, callsPath := testConfig(t, "")
	cfg.NodesPerDC = []int{3}
	cfg.Journal = true
	c := newTestCluster(t, cfg)

	if err := c.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	calls := readCalls(t, callsPath)
	if len(calls) != 4 {
		t.Fatalf("after Init: %d calls, want 4 (create + 3 add):\n%s", len(calls), strings.Join(calls, "\n"))
	}
	wantCreate := fmt.Sprintf("create demo -v release:6.2 -i 127.0.1. --config-dir %s --scylla", cfg.InstallDir)
	if calls[0] != wantCreate {
		t.Errorf("create call = %q, want %q", calls[0], wantCreate)
	}
	for i, node := range []string{"node_1_1", "node_1_2", "node_1_3"} {
		if !strings.HasPrefix(calls[i+1], "add "+node+" ") {
			t.Errorf("call %d = %q, want add %s", i+1, calls[i+1], node)
		}
	}

	if err := c.Start(ctx, StartWaitForBinaryProto); err != nil {
		t.Fatalf("Start: %v", err)
	}
	calls = readCalls(t, callsPath)
	if len(calls) != 7 {
		t.Fatalf("after Start: %d calls, want 7", len(calls))
	}
	for i, node := range []string{"node_1_1", "node_1_2", "node_1_3"} {
		want := fmt.Sprintf("start %s --config-dir %s --wait-for-binary-proto", node, cfg.InstallDir)
		if calls[4+i] != want {
			t.Errorf("start call %d = %q, want %q", i, calls[4+i], want)
		}
	}

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := c.Destroy(ctx); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	calls = readCalls(t, callsPath)
	// Stop issues one stop; Destroy issues its own stop plus remove.
	if len(calls) != 10 {
		t.Fatalf("after Destroy: %d calls, want 10:\n%s", len(calls), strings.Join(calls, "\n"))
	}
	wantRemove := fmt.Sprintf("remove demo --config-dir %s", cfg.InstallDir)
	if calls[9] != wantRemove {
		t.Errorf("remove call = %q, want %q", calls[9], wantRemove)
	}
	if !c.Destroyed() {
		t.Error("Destroyed() = false after successful Destroy")
	}

	// Destroyed is monotonic: no further external calls.
	if err := c.Destroy(ctx); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop after Destroy: %v", err)
	}
	if got := readCalls(t, callsPath); len(got) != 10 {
		t.Errorf("destroyed cluster issued %d extra calls", len(got)-10)
	}

	if _, err := os.Stat(filepath.Join(cfg.InstallDir, "demo.runs.db")); err != nil {
		t.Errorf("run journal missing: %v", err)
	}
}

func TestInit_AbortsOnFirstNodeFailure(t *testing.T) {
	t.Parallel()

	cfg, callsPath := testConfig(t, "add node_1_2")
	cfg.NodesPerDC = []int{3}
	c := newTestCluster(t, cfg)

	err := c.Init(context.Background())
	if err == nil {
		t.Fatal("Init should fail when a node add fails")
	}

	calls := readCalls(t, callsPath)
	if len(calls) != 3 {
		t.Fatalf("got %d calls, want 3 (create, add 1, failing add 2):\n%s", len(calls), strings.Join(calls, "\n"))
	}
	for _, call := range calls {
		if strings.HasPrefix(call, "add node_1_3") {
			t.Error("node_1_3 must not be initialized after node_1_2 failed")
		}
	}
}

func TestStart_FlagOrderFollowsCaller(t *testing.T) {
	t.Parallel()

	cfg, callsPath := testConfig(t, "")
	c := newTestCluster(t, cfg)
	n := c.AddNode(1)

	if err := n.Start(context.Background(), StartWaitForBinaryProto, StartNoWait); err != nil {
		t.Fatalf("Start: %v", err)
	}
	calls := readCalls(t, callsPath)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if !strings.HasSuffix(calls[0], "--wait-for-binary-proto --no-wait") {
		t.Errorf("flags out of caller order: %q", calls[0])
	}
}

func TestNodeInit_PassesResourceHintsThroughEnvironment(t *testing.T) {
	t.Parallel()

	cfg, _ := testConfig(t, "")
	c := newTestCluster(t, cfg)
	n := c.AddNode(1)

	if err := n.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	b, err := os.ReadFile(c.LogPath())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "SCYLLA_EXT_OPTS=--smp=1 --memory=512M") {
		t.Errorf("resource hints missing from env log lines:\n%s", b)
	}
}
