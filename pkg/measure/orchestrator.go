package measure

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aditinnerkar/ans-ss25-copy/pkg/emu"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/util"
)

// ProbeConfig carries the timing knobs of a measurement pass.
type ProbeConfig struct {
	// Duration is the traffic window each client sends for.
	Duration time.Duration
	// Settle is how long servers get to come up before clients start.
	Settle time.Duration
	// CollectTimeout bounds the wait for any single client's output after
	// the traffic window has passed. Zero waits as long as the run
	// context allows.
	CollectTimeout time.Duration
	// Port overrides the probe tool's listen/connect port when > 0.
	Port int
}

// windowGrace is added to the traffic window so clients get to finish
// naturally before collection starts pulling their output.
const windowGrace = time.Second

// launch is one in-flight client probe.
type launch struct {
	label string
	proc  emu.Proc
}

// Orchestrator drives concurrent bandwidth probes over an emulated network.
// It owns the probe processes it spawns and nothing else; bringing the
// network up and down is the caller's job.
type Orchestrator struct {
	platform emu.Platform
	addrs    map[string]string
	cfg      ProbeConfig
}

// NewOrchestrator returns an orchestrator probing over platform. addrs maps
// host names to their data-plane addresses as found in the network plan.
func NewOrchestrator(platform emu.Platform, addrs map[string]string, cfg ProbeConfig) *Orchestrator {
	return &Orchestrator{platform: platform, addrs: addrs, cfg: cfg}
}

// Run measures every pair concurrently and aggregates the outcome. The
// returned report is non-nil exactly when the error is nil: an empty pair
// list and a failed reachability check are reported statuses, not errors,
// while platform failures before any traffic flows abort the pass. Probe
// servers spawned by the pass are stopped on every return path.
func (o *Orchestrator) Run(ctx context.Context, pairs []Pair) (*Report, error) {
	if len(pairs) == 0 {
		log.Warn("No traffic pairs to measure, skipping run")
		rep := Aggregate(nil)
		rep.Status = RunSkipped
		return rep, nil
	}

	failures, err := o.platform.PingAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reachability check: %w", err)
	}
	if failures > 0 {
		log.Warnf("Reachability check failed for %d host pairs, aborting run", failures)
		rep := Aggregate(nil)
		rep.Status = RunUnreachable
		return rep, nil
	}
	log.Info("Reachability check passed, all hosts answer")

	servers := receivers(pairs)
	started := make([]string, 0, len(servers))
	defer func() { o.stopServers(started) }()

	for _, host := range servers {
		if err := o.platform.ExecDetached(ctx, host, o.serverCmd()); err != nil {
			return nil, fmt.Errorf("starting probe server on %s: %w", host, err)
		}
		started = append(started, host)
	}
	log.Infof("Started %d probe servers, settling for %s", len(started), o.cfg.Settle)
	if err := wait(ctx, o.cfg.Settle); err != nil {
		return nil, err
	}

	launches := make([]launch, 0, len(pairs))
	results := make([]ProbeResult, 0, len(pairs))
	for _, p := range pairs {
		label := p.Label()
		addr, ok := o.addrs[p.Dst]
		if !ok {
			log.Warnf("No address for receiver %s, failing pair %s", p.Dst, label)
			results = append(results, ProbeResult{Label: label, Status: StatusNoOutput})
			continue
		}
		proc, err := o.platform.Exec(ctx, p.Src, o.clientCmd(util.HostIP(addr)))
		if err != nil {
			log.Warnf("Failed to launch probe client for %s: %v", label, err)
			results = append(results, ProbeResult{Label: label, Status: StatusNoOutput})
			continue
		}
		launches = append(launches, launch{label: label, proc: proc})
	}

	window := o.cfg.Duration + windowGrace
	log.Infof("Launched %d probe clients, measuring for %s", len(launches), window)
	if err := wait(ctx, window); err != nil {
		return nil, err
	}

	for _, l := range launches {
		results = append(results, o.collect(ctx, l))
	}

	rep := Aggregate(results)
	log.Infof("Measurement finished: %d ok, %d failed, %.2f Mbit/s total",
		rep.OK, rep.Failed, rep.TotalMbps)
	return rep, nil
}

// collect waits for one client's output, bounded so a wedged process cannot
// stall the whole pass.
func (o *Orchestrator) collect(ctx context.Context, l launch) ProbeResult {
	cctx := ctx
	if o.cfg.CollectTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, o.cfg.CollectTimeout)
		defer cancel()
	}

	out, err := l.proc.Output(cctx)
	if err != nil {
		log.Warnf("Collecting output for %s: %v", l.label, err)
		return ProbeResult{Label: l.label, Status: StatusNoOutput, Raw: out}
	}

	res := ParseProbe(l.label, out)
	if res.Status == StatusOK {
		log.Infof("Pair %s: %.2f Mbit/s", res.Label, res.Mbps)
	} else {
		log.Warnf("Pair %s: %s", res.Label, res.Status)
	}
	return res
}

// stopServers kills the probe servers started on the given hosts. It runs
// on its own deadline so teardown still happens when the run context is
// already gone.
func (o *Orchestrator) stopServers(hosts []string) {
	if len(hosts) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, host := range hosts {
		if err := o.platform.ExecDetached(ctx, host, "pkill iperf"); err != nil {
			log.Warnf("Failed to stop probe server on %s: %v", host, err)
		}
	}
	log.Debugf("Stopped probe servers on %d hosts", len(hosts))
}

func (o *Orchestrator) serverCmd() string {
	cmd := "iperf -s"
	if o.cfg.Port > 0 {
		cmd += fmt.Sprintf(" -p %d", o.cfg.Port)
	}
	return cmd
}

func (o *Orchestrator) clientCmd(ip string) string {
	secs := int(o.cfg.Duration.Seconds())
	if secs < 1 {
		secs = 1
	}
	cmd := fmt.Sprintf("iperf -c %s -t %d -y C", ip, secs)
	if o.cfg.Port > 0 {
		cmd += fmt.Sprintf(" -p %d", o.cfg.Port)
	}
	return cmd
}

// receivers lists the distinct destination hosts in first-appearance order.
func receivers(pairs []Pair) []string {
	seen := make(map[string]struct{}, len(pairs))
	var hosts []string
	for _, p := range pairs {
		if _, ok := seen[p.Dst]; ok {
			continue
		}
		seen[p.Dst] = struct{}{}
		hosts = append(hosts, p.Dst)
	}
	return hosts
}

// wait sleeps for d unless the context ends first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
