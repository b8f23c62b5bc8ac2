package measure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aditinnerkar/ans-ss25-copy/api"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/emu"
)

type fakeProc struct {
	out   string
	err   error
	block bool
}

func (p *fakeProc) Output(ctx context.Context) (string, error) {
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.out, p.err
}

// fakePlatform records every call the orchestrator makes, in order, and
// serves scripted probe outputs per host.
type fakePlatform struct {
	mu    sync.Mutex
	calls []string

	pingFailures int
	pingErr      error
	execErr      map[string]error
	serverErr    map[string]error
	procs        map[string]*fakeProc
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		execErr:   make(map[string]error),
		serverErr: make(map[string]error),
		procs:     make(map[string]*fakeProc),
	}
}

func (f *fakePlatform) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakePlatform) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePlatform) CreateHost(ctx context.Context, node api.Node) error   { return nil }
func (f *fakePlatform) CreateSwitch(ctx context.Context, node api.Node) error { return nil }
func (f *fakePlatform) CreateLink(ctx context.Context, link api.Link) error   { return nil }
func (f *fakePlatform) Start(ctx context.Context) error                       { return nil }
func (f *fakePlatform) Stop(ctx context.Context) error                        { return nil }
func (f *fakePlatform) Cleanup(ctx context.Context) error                     { return nil }

func (f *fakePlatform) PingAll(ctx context.Context) (int, error) {
	f.record("pingall")
	return f.pingFailures, f.pingErr
}

func (f *fakePlatform) Exec(ctx context.Context, host string, cmd string) (emu.Proc, error) {
	f.record(fmt.Sprintf("exec %s: %s", host, cmd))
	if err := f.execErr[host]; err != nil {
		return nil, err
	}
	proc, ok := f.procs[host]
	if !ok {
		return nil, fmt.Errorf("no scripted output for %s", host)
	}
	return proc, nil
}

func (f *fakePlatform) ExecDetached(ctx context.Context, host string, cmd string) error {
	f.record(fmt.Sprintf("detached %s: %s", host, cmd))
	if strings.HasPrefix(cmd, "pkill") {
		return nil
	}
	return f.serverErr[host]
}

func probeCSV(bits string) string {
	return "20250823120000,10.0.0.2,49153,10.0.0.3,5001,3,0.0-10.0,0," + bits
}

func testAddrs() map[string]string {
	return map[string]string{
		"h1": "10.0.0.2/24",
		"h2": "10.0.0.3/24",
		"h3": "10.0.1.2/24",
	}
}

func testCfg() ProbeConfig {
	return ProbeConfig{
		Duration:       10 * time.Millisecond,
		Settle:         0,
		CollectTimeout: time.Second,
		Port:           5001,
	}
}

func TestRunSkipsEmptyPairs(t *testing.T) {
	platform := newFakePlatform()
	orch := NewOrchestrator(platform, testAddrs(), testCfg())

	rep, err := orch.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, RunSkipped, rep.Status)
	assert.Empty(t, platform.recorded())
}

func TestRunAbortsWhenUnreachable(t *testing.T) {
	platform := newFakePlatform()
	platform.pingFailures = 2
	orch := NewOrchestrator(platform, testAddrs(), testCfg())

	rep, err := orch.Run(context.Background(), []Pair{{Src: "h1", Dst: "h2"}})
	require.NoError(t, err)
	assert.Equal(t, RunUnreachable, rep.Status)
	assert.Zero(t, rep.TotalMbps)

	// Nothing was spawned, so nothing gets killed.
	assert.Equal(t, []string{"pingall"}, platform.recorded())
}

func TestRunPingAllError(t *testing.T) {
	platform := newFakePlatform()
	platform.pingErr = errors.New("control socket gone")
	orch := NewOrchestrator(platform, testAddrs(), testCfg())

	rep, err := orch.Run(context.Background(), []Pair{{Src: "h1", Dst: "h2"}})
	assert.Error(t, err)
	assert.Nil(t, rep)
}

func TestRunMeasuresAllPairs(t *testing.T) {
	platform := newFakePlatform()
	platform.procs["h1"] = &fakeProc{out: probeCSV("10000000")}
	platform.procs["h2"] = &fakeProc{out: probeCSV("20000000")}
	platform.procs["h3"] = &fakeProc{out: probeCSV("30000000")}
	orch := NewOrchestrator(platform, testAddrs(), testCfg())

	pairs := []Pair{
		{Src: "h1", Dst: "h2"},
		{Src: "h2", Dst: "h1"},
		{Src: "h3", Dst: "h2"},
	}
	rep, err := orch.Run(context.Background(), pairs)
	require.NoError(t, err)

	assert.Equal(t, RunOK, rep.Status)
	assert.Equal(t, 3, rep.OK)
	assert.Equal(t, 0, rep.Failed)
	assert.InDelta(t, 60.0, rep.TotalMbps, 1e-9)

	// One server per distinct receiver, in first-appearance order, then one
	// client per pair against the receiver's address, then teardown.
	assert.Equal(t, []string{
		"pingall",
		"detached h2: iperf -s -p 5001",
		"detached h1: iperf -s -p 5001",
		"exec h1: iperf -c 10.0.0.3 -t 1 -y C -p 5001",
		"exec h2: iperf -c 10.0.0.2 -t 1 -y C -p 5001",
		"exec h3: iperf -c 10.0.0.3 -t 1 -y C -p 5001",
		"detached h2: pkill iperf",
		"detached h1: pkill iperf",
	}, platform.recorded())
}

func TestRunClientLaunchFailure(t *testing.T) {
	platform := newFakePlatform()
	platform.execErr["h1"] = errors.New("exec create failed")
	platform.procs["h2"] = &fakeProc{out: probeCSV("15000000")}
	orch := NewOrchestrator(platform, testAddrs(), testCfg())

	pairs := []Pair{{Src: "h1", Dst: "h2"}, {Src: "h2", Dst: "h1"}}
	rep, err := orch.Run(context.Background(), pairs)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.OK)
	assert.Equal(t, 1, rep.Failed)
	assert.InDelta(t, 15.0, rep.TotalMbps, 1e-9)

	calls := platform.recorded()
	assert.Contains(t, calls, "detached h2: pkill iperf")
	assert.Contains(t, calls, "detached h1: pkill iperf")
}

func TestRunMissingReceiverAddress(t *testing.T) {
	platform := newFakePlatform()
	platform.procs["h2"] = &fakeProc{out: probeCSV("15000000")}
	addrs := map[string]string{"h1": "10.0.0.2/24", "h2": "10.0.0.3/24"}
	orch := NewOrchestrator(platform, addrs, testCfg())

	// h9 has no plan address, so its pair fails without a client launch.
	pairs := []Pair{{Src: "h1", Dst: "h9"}, {Src: "h2", Dst: "h1"}}
	rep, err := orch.Run(context.Background(), pairs)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Pairs, 2)
	assert.Equal(t, "h1->h9", rep.Pairs[0].Label)
	assert.Equal(t, StatusNoOutput, rep.Pairs[0].Status)

	for _, call := range platform.recorded() {
		assert.NotContains(t, call, "exec h1:")
	}
}

func TestRunCollectTimeout(t *testing.T) {
	platform := newFakePlatform()
	platform.procs["h1"] = &fakeProc{block: true}
	platform.procs["h2"] = &fakeProc{out: probeCSV("15000000")}

	cfg := testCfg()
	cfg.CollectTimeout = 20 * time.Millisecond
	orch := NewOrchestrator(platform, testAddrs(), cfg)

	pairs := []Pair{{Src: "h1", Dst: "h2"}, {Src: "h2", Dst: "h1"}}
	rep, err := orch.Run(context.Background(), pairs)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.OK)
	assert.Equal(t, 1, rep.Failed)
	assert.InDelta(t, 15.0, rep.TotalMbps, 1e-9)

	// A wedged client does not keep the servers alive.
	calls := platform.recorded()
	assert.Contains(t, calls, "detached h2: pkill iperf")
	assert.Contains(t, calls, "detached h1: pkill iperf")
}

func TestRunServerStartFailure(t *testing.T) {
	platform := newFakePlatform()
	platform.serverErr["h1"] = errors.New("container not running")
	orch := NewOrchestrator(platform, testAddrs(), testCfg())

	// Servers come up for h2 first; h1 fails, aborting the pass.
	pairs := []Pair{{Src: "h1", Dst: "h2"}, {Src: "h2", Dst: "h1"}}
	rep, err := orch.Run(context.Background(), pairs)
	assert.Error(t, err)
	assert.Nil(t, rep)

	// Only the server that actually started is killed.
	calls := platform.recorded()
	assert.Contains(t, calls, "detached h2: pkill iperf")
	assert.NotContains(t, calls, "detached h1: pkill iperf")
	assert.Equal(t, "detached h2: pkill iperf", calls[len(calls)-1])
}

func TestProbeCommandsWithoutPort(t *testing.T) {
	orch := NewOrchestrator(newFakePlatform(), nil, ProbeConfig{Duration: 10 * time.Second})
	assert.Equal(t, "iperf -s", orch.serverCmd())
	assert.Equal(t, "iperf -c 10.0.0.2 -t 10 -y C", orch.clientCmd("10.0.0.2"))
}
