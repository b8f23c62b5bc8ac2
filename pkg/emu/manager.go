package emu

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"

	"github.com/aditinnerkar/ans-ss25-copy/api"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/link"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/node"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/ovs"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/util"
)

const (
	// pingWorkers bounds the concurrency of the reachability sweep.
	pingWorkers = 16
	// pingTimeout bounds one ping round trip including the exec overhead.
	pingTimeout = 5 * time.Second
)

// Options configure the docker/OVS backend.
type Options struct {
	// Controller is the OpenFlow controller address every switch connects
	// to, e.g. tcp:127.0.0.1:6653.
	Controller string
	// Image is the container image backing hosts. Empty picks the default.
	Image string
}

// Manager materializes a network plan as docker containers wired through
// Open vSwitch bridges. It implements Platform.
type Manager struct {
	Nodes map[string]api.Node // map node name to node

	om *ovs.Manager
	cm *node.ContainerManager
	lm *link.Manager
}

// NewManager creates a manager with a docker-backed container manager and
// the default OVS client.
func NewManager(opts Options) (*Manager, error) {
	om := ovs.NewManager(opts.Controller)
	cm, err := node.NewContainerManager(om, opts.Image)
	if err != nil {
		return nil, err
	}
	return &Manager{
		Nodes: make(map[string]api.Node),
		om:    om,
		cm:    cm,
		lm:    link.NewManager(),
	}, nil
}

func (m *Manager) CreateHost(ctx context.Context, n api.Node) error {
	if _, existed := m.Nodes[n.Name]; existed {
		return fmt.Errorf("node %s already exists", n.Name)
	}
	n.Kind = api.KindHost
	if err := m.cm.CreateHost(ctx, &n); err != nil {
		return err
	}
	m.Nodes[n.Name] = n
	return nil
}

func (m *Manager) CreateSwitch(ctx context.Context, n api.Node) error {
	if _, existed := m.Nodes[n.Name]; existed {
		return fmt.Errorf("node %s already exists", n.Name)
	}
	n.Kind = api.KindSwitch
	if err := m.om.CreateBridge(n.Name); err != nil {
		return err
	}
	m.Nodes[n.Name] = n
	return nil
}

// CreateLink wires two registered nodes together and applies the link's
// shaping to both directions. Hosts attach to switches; switches connect to
// each other over trunk veths.
func (m *Manager) CreateLink(ctx context.Context, l api.Link) error {
	a, ok := m.Nodes[l.A]
	if !ok {
		return fmt.Errorf("link endpoint %s not found", l.A)
	}
	b, ok := m.Nodes[l.B]
	if !ok {
		return fmt.Errorf("link endpoint %s not found", l.B)
	}

	switch {
	case a.Kind == api.KindSwitch && b.Kind == api.KindSwitch:
		return m.linkSwitches(a, b, l.Properties)
	case a.Kind == api.KindHost && b.Kind == api.KindSwitch:
		return m.linkHost(a, b, l.Properties)
	case a.Kind == api.KindSwitch && b.Kind == api.KindHost:
		return m.linkHost(b, a, l.Properties)
	default:
		return fmt.Errorf("link %s-%s connects two hosts", l.A, l.B)
	}
}

func (m *Manager) linkHost(host, sw api.Node, props api.LinkProperties) error {
	if err := m.cm.AttachToBridge(&host, sw.Name); err != nil {
		return err
	}
	if err := m.lm.Shape(host.NetNs, host.Interface.Name, props); err != nil {
		return err
	}
	if err := m.lm.Shape("", node.BridgePortName(host.Name), props); err != nil {
		return err
	}
	m.Nodes[host.Name] = host
	return nil
}

func (m *Manager) linkSwitches(a, b api.Node, props api.LinkProperties) error {
	ifA, ifB, err := m.lm.CreateTrunk(a.Name, b.Name)
	if err != nil {
		return err
	}
	if err = m.om.AddPort(a.Name, ifA); err != nil {
		return err
	}
	if err = m.om.AddPort(b.Name, ifB); err != nil {
		return err
	}
	if err = m.lm.Shape("", ifA, props); err != nil {
		return err
	}
	return m.lm.Shape("", ifB, props)
}

// Start connects every switch to the controller. The bridges run in secure
// fail mode, so forwarding stays dark until the controller installs rules.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.om.ConnectController(); err != nil {
		return err
	}
	log.Infof("Network up, %d nodes", len(m.Nodes))
	return nil
}

// PingAll sends one ping between every ordered host pair and returns the
// number of pairs that did not answer.
func (m *Manager) PingAll(ctx context.Context) (int, error) {
	hosts := m.hostNames()
	if len(hosts) < 2 {
		return 0, nil
	}

	pool, err := ants.NewPool(pingWorkers)
	if err != nil {
		return 0, fmt.Errorf("failed to create ping pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
	)
	fail := func() {
		mu.Lock()
		failures++
		mu.Unlock()
	}

	for _, src := range hosts {
		for _, dst := range hosts {
			if src == dst {
				continue
			}
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				if err := m.ping(ctx, src, dst); err != nil {
					log.Debugf("Ping %s -> %s failed: %v", src, dst, err)
					fail()
				}
			}); err != nil {
				wg.Done()
				fail()
			}
		}
	}
	wg.Wait()

	total := len(hosts) * (len(hosts) - 1)
	log.Infof("Ping sweep: %d/%d pairs reachable", total-failures, total)
	return failures, nil
}

func (m *Manager) ping(ctx context.Context, src, dst string) error {
	cctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	ip := util.HostIP(m.Nodes[dst].Addr)
	proc, err := m.cm.Exec(cctx, src, fmt.Sprintf("ping -c 1 -W 1 %s", ip))
	if err != nil {
		return err
	}
	_, err = proc.Output(cctx)
	return err
}

func (m *Manager) Exec(ctx context.Context, host string, cmd string) (Proc, error) {
	if n, ok := m.Nodes[host]; !ok || n.Kind != api.KindHost {
		return nil, fmt.Errorf("host %s not found", host)
	}
	return m.cm.Exec(ctx, host, cmd)
}

func (m *Manager) ExecDetached(ctx context.Context, host string, cmd string) error {
	if n, ok := m.Nodes[host]; !ok || n.Kind != api.KindHost {
		return fmt.Errorf("host %s not found", host)
	}
	return m.cm.ExecDetached(ctx, host, cmd)
}

// Stop tears the network down: containers first, then trunks and bridges.
// Errors are collected so one failed removal does not strand the rest.
func (m *Manager) Stop(ctx context.Context) error {
	var errs []error
	for name, n := range m.Nodes {
		if n.Kind != api.KindHost {
			continue
		}
		if err := m.cm.RemoveHost(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}

	m.lm.Cleanup()

	for name, n := range m.Nodes {
		if n.Kind != api.KindSwitch {
			continue
		}
		if err := m.om.DeleteBridge(name); err != nil {
			errs = append(errs, err)
		}
	}

	m.Nodes = make(map[string]api.Node)
	log.Info("Network stopped")
	return errors.Join(errs...)
}

// Cleanup sweeps the machine for anything carrying the tool's label or
// prefix and removes it. Safe to run when nothing is left over.
func (m *Manager) Cleanup(ctx context.Context) error {
	var errs []error
	if err := m.cm.Cleanup(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.om.Cleanup(); err != nil {
		errs = append(errs, err)
	}
	link.Sweep()
	return errors.Join(errs...)
}

func (m *Manager) hostNames() []string {
	var hosts []string
	for name, n := range m.Nodes {
		if n.Kind == api.KindHost {
			hosts = append(hosts, name)
		}
	}
	sort.Strings(hosts)
	return hosts
}
