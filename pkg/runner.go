package pkg

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aditinnerkar/ans-ss25-copy/api"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/emu"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/fabric"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/measure"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/topo"
)

// Runner executes the full benchmark: build the fat-tree, emulate it,
// measure, record. It owns no network state beyond the platform handle.
type Runner struct {
	cfg      Config
	platform emu.Platform
}

func NewRunner(cfg Config, platform emu.Platform) *Runner {
	return &Runner{cfg: cfg, platform: platform}
}

// BuildPlan materializes the configured fat-tree into a network plan
// without touching the system.
func BuildPlan(cfg Config) (*api.NetworkPlan, error) {
	ft, err := topo.NewFattree(cfg.Topology.K)
	if err != nil {
		return nil, err
	}
	return fabric.Build(ft, api.LinkProperties{
		Rate:    cfg.Link.RateMbit,
		Latency: cfg.Link.DelayMs,
		Loss:    cfg.Link.LossPct,
	})
}

// Run executes one benchmark pass end to end. Whatever was materialized is
// torn down on every exit path.
func (r *Runner) Run(ctx context.Context) (*measure.Report, error) {
	runID := uuid.NewString()

	plan, err := BuildPlan(r.cfg)
	if err != nil {
		return nil, err
	}
	log.Infof("Run %s: fat-tree k=%d, %d hosts, %d switches, %d links",
		runID, r.cfg.Topology.K, len(plan.Hosts), len(plan.Switches), len(plan.Links))

	// sweep leftovers of earlier runs before building on the same names
	if err = r.platform.Cleanup(ctx); err != nil {
		log.Warnf("Pre-run cleanup: %v", err)
	}

	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := r.platform.Stop(sctx); err != nil {
			log.Warnf("Teardown: %v", err)
		}
	}()

	if err = r.materialize(ctx, plan); err != nil {
		return nil, err
	}
	if err = r.platform.Start(ctx); err != nil {
		return nil, err
	}

	converge := time.Duration(r.cfg.Probe.ConvergeSec) * time.Second
	log.Infof("Waiting %s for the controller to take over the switches", converge)
	select {
	case <-time.After(converge):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	pairs := measure.TrafficMatrix(plan.HostNames(), nil)
	orch := measure.NewOrchestrator(r.platform, plan.HostAddrs(), measure.ProbeConfig{
		Duration:       time.Duration(r.cfg.Probe.DurationSec) * time.Second,
		Settle:         time.Duration(r.cfg.Probe.SettleSec) * time.Second,
		CollectTimeout: time.Duration(r.cfg.Probe.CollectTimeoutSec) * time.Second,
		Port:           r.cfg.Probe.Port,
	})

	rep, err := orch.Run(ctx, pairs)
	if err != nil {
		return nil, err
	}
	rep.RunID = runID
	rep.Label = r.label()
	rep.Env = measure.CaptureEnv()

	if err = r.record(rep); err != nil {
		return nil, fmt.Errorf("failed to record results: %w", err)
	}
	return rep, nil
}

func (r *Runner) materialize(ctx context.Context, plan *api.NetworkPlan) error {
	for _, sw := range plan.Switches {
		if err := r.platform.CreateSwitch(ctx, sw); err != nil {
			return err
		}
	}
	for _, h := range plan.Hosts {
		if err := r.platform.CreateHost(ctx, h); err != nil {
			return err
		}
	}
	for _, l := range plan.Links {
		if err := r.platform.CreateLink(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

// record persists the run. The totals row only makes sense for a completed
// measurement, the full report is written regardless.
func (r *Runner) record(rep *measure.Report) error {
	if r.cfg.Results.Csv != "" && rep.Status == measure.RunOK {
		if err := appendResult(r.cfg.Results.Csv, rep.Label, rep.TotalMbps); err != nil {
			return err
		}
	}
	if r.cfg.Results.Report != "" {
		if err := rep.WriteToFile(r.cfg.Results.Report); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) label() string {
	if r.cfg.Probe.Label != "" {
		return r.cfg.Probe.Label
	}
	return fmt.Sprintf("fattree-k%d", r.cfg.Topology.K)
}

// appendResult adds one label,total row to the results file, creating it on
// first use. No header; one row per run, the format the comparison plots
// consume.
func appendResult(filename, label string, totalMbps float64) error {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open results file %s: %w", filename, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err = w.Write([]string{label, strconv.FormatFloat(totalMbps, 'f', 2, 64)}); err != nil {
		return fmt.Errorf("failed to append result row: %w", err)
	}
	w.Flush()
	return w.Error()
}
