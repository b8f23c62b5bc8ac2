// Package node drives the docker side of host emulation.
package node

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"

	ns "github.com/containernetworking/plugins/pkg/ns"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"

	"github.com/aditinnerkar/ans-ss25-copy/api"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/ovs"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/util"
)

const (
	// VethSuffix names the data-plane interface inside a host container.
	VethSuffix = "-veth0"
	// DefaultImage backs hosts when no image is configured. The image has
	// to ship iperf and ping.
	DefaultImage = "ftbench/host:latest"

	// managedLabel marks containers owned by this tool.
	managedLabel = "ftbench.host"
)

// ContainerManager manages the lifecycle of host containers.
// seq assigns a unique uid to each container and never decreases.
type ContainerManager struct {
	dClient *client.Client
	om      *ovs.Manager
	image   string
	seq     int
}

func NewContainerManager(om *ovs.Manager, image string) (*ContainerManager, error) {
	dClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if image == "" {
		image = DefaultImage
	}
	return &ContainerManager{
		dClient: dClient,
		om:      om,
		image:   image,
		seq:     1,
	}, nil
}

// ContainerName returns the docker container backing a host node.
func ContainerName(name string) string {
	return ovs.Prefix + name
}

// BridgePortName returns the root-namespace end of a host's veth pair, the
// one ported into the switch bridge.
func BridgePortName(name string) string {
	return ovs.Prefix + name
}

// CreateHost creates and starts the container backing a host node and
// records its network namespace. The host gets its data-plane interface
// later, when its link is created.
func (cm *ContainerManager) CreateHost(ctx context.Context, n *api.Node) error {
	n.Uid = cm.seq
	cm.seq++

	if !util.ValidCIDR(n.Addr) {
		return fmt.Errorf("host %s has an empty or invalid address %q", n.Name, n.Addr)
	}

	cname := ContainerName(n.Name)
	_, err := cm.dClient.ContainerCreate(ctx, &container.Config{
		Image:           cm.image,
		Cmd:             []string{"tail", "-f", "/dev/null"},
		NetworkDisabled: true,
		User:            "root",
		Labels:          map[string]string{managedLabel: "1"},
	}, &container.HostConfig{
		Privileged: true,
	}, nil, nil, cname)
	if err != nil {
		return fmt.Errorf("failed to create container for %s: %w", n.Name, err)
	}

	if err = cm.dClient.ContainerStart(ctx, cname, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container for %s: %w", n.Name, err)
	}

	res, err := cm.dClient.ContainerInspect(ctx, cname)
	if err != nil {
		return fmt.Errorf("failed to inspect container for %s: %w", n.Name, err)
	}
	n.NetNs = fmt.Sprintf("/proc/%d/ns/net", res.State.Pid)

	log.Debugf("Host %s (uid %d) is container %s, netns %s", n.Name, n.Uid, cname, n.NetNs)
	return nil
}

// AttachToBridge gives the host its data-plane interface: a veth pair with
// one end moved into the container namespace carrying the host address, the
// other ported into the switch's bridge. A host has exactly one such
// interface.
func (cm *ContainerManager) AttachToBridge(n *api.Node, sw string) error {
	if n.Interface.Name != "" {
		return fmt.Errorf("host %s is already attached to switch %s", n.Name, n.Interface.Bridge)
	}

	// 1. Create the veth pair in the root namespace
	vethContainer := n.Name + VethSuffix
	vethBridge := BridgePortName(n.Name)

	linkAttr := netlink.NewLinkAttrs()
	linkAttr.Name = vethBridge
	linkAttr.MTU = 1500
	linkAttr.Flags = net.FlagUp

	veth := &netlink.Veth{
		LinkAttrs: linkAttr,
		PeerName:  vethContainer,
	}
	if err := netlink.LinkAdd(veth); err != nil {
		return fmt.Errorf("failed to create veth pair for %s: %w", n.Name, err)
	}

	containerLink, err := netlink.LinkByName(vethContainer)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", vethContainer, err)
	}
	mac := containerLink.Attrs().HardwareAddr.String()

	// 2. Move the container end into the host's namespace
	containerNs, err := ns.GetNS(n.NetNs)
	if err != nil {
		return fmt.Errorf("failed to open namespace of %s: %w", n.Name, err)
	}
	defer containerNs.Close()

	if err = netlink.LinkSetNsFd(containerLink, int(containerNs.Fd())); err != nil {
		return fmt.Errorf("failed to move %s into %s: %w", vethContainer, n.Name, err)
	}

	// 3. Assign the host address and bring the interface up
	if err = containerNs.Do(func(_ ns.NetNS) error {
		link, err := netlink.LinkByName(vethContainer)
		if err != nil {
			return fmt.Errorf("failed to find %s in namespace: %w", vethContainer, err)
		}

		ip, ipNet, err := net.ParseCIDR(n.Addr)
		if err != nil {
			return fmt.Errorf("failed to parse address %s: %w", n.Addr, err)
		}
		if err = netlink.AddrAdd(link, &netlink.Addr{IPNet: &net.IPNet{IP: ip, Mask: ipNet.Mask}}); err != nil {
			return fmt.Errorf("failed to assign %s to %s: %w", n.Addr, vethContainer, err)
		}

		return netlink.LinkSetUp(link)
	}); err != nil {
		return fmt.Errorf("failed to configure namespace of %s: %w", n.Name, err)
	}

	// 4. Port the bridge end into the switch
	if err = cm.om.AddPort(sw, vethBridge); err != nil {
		return fmt.Errorf("failed to attach %s to switch %s: %w", n.Name, sw, err)
	}

	n.Interface = api.NodeInterface{
		Name:   vethContainer,
		Mac:    mac,
		Ipv4:   n.Addr,
		Bridge: sw,
	}
	return nil
}

// RemoveHost force-removes the container backing a host node.
func (cm *ContainerManager) RemoveHost(ctx context.Context, name string) error {
	err := cm.dClient.ContainerRemove(ctx, ContainerName(name), container.RemoveOptions{Force: true})
	if err != nil {
		return fmt.Errorf("failed to remove container for %s: %w", name, err)
	}
	return nil
}

// Cleanup force-removes every container carrying the tool's label,
// including leftovers from crashed runs.
func (cm *ContainerManager) Cleanup(ctx context.Context) error {
	list, err := cm.dClient.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", managedLabel)),
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}
	for _, c := range list {
		if err := cm.dClient.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			log.Warnf("Failed to remove stale container %s: %v", c.ID, err)
		}
	}
	return nil
}

// ExecProc is a handle on a command running inside a host container.
type ExecProc struct {
	cm     *ContainerManager
	execID string
	resp   types.HijackedResponse
}

// Exec starts cmd inside the named host's container with output captured.
// cmd is split on whitespace; no shell is involved.
func (cm *ContainerManager) Exec(ctx context.Context, host, cmd string) (*ExecProc, error) {
	exec, err := cm.dClient.ContainerExecCreate(ctx, ContainerName(host), container.ExecOptions{
		User:         "root",
		Cmd:          strings.Fields(cmd),
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec in %s: %w", host, err)
	}

	resp, err := cm.dClient.ContainerExecAttach(ctx, exec.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start exec in %s: %w", host, err)
	}
	return &ExecProc{cm: cm, execID: exec.ID, resp: resp}, nil
}

// ExecDetached starts cmd inside the named host's container without keeping
// a handle on it.
func (cm *ContainerManager) ExecDetached(ctx context.Context, host, cmd string) error {
	exec, err := cm.dClient.ContainerExecCreate(ctx, ContainerName(host), container.ExecOptions{
		User:   "root",
		Cmd:    strings.Fields(cmd),
		Detach: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create exec in %s: %w", host, err)
	}
	if err = cm.dClient.ContainerExecStart(ctx, exec.ID, container.ExecStartOptions{Detach: true}); err != nil {
		return fmt.Errorf("failed to start detached exec in %s: %w", host, err)
	}
	return nil
}

// Output drains the command's output until it exits or the context ends,
// and returns what it wrote to stdout. A non-zero exit status is reported
// as an error alongside the captured output.
func (p *ExecProc) Output(ctx context.Context) (string, error) {
	defer p.resp.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&stdout, &stderr, p.resp.Reader)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return stdout.String(), fmt.Errorf("failed to read exec output: %w", err)
		}
	case <-ctx.Done():
		return stdout.String(), ctx.Err()
	}

	inspect, err := p.cm.dClient.ContainerExecInspect(context.WithoutCancel(ctx), p.execID)
	if err != nil {
		return stdout.String(), fmt.Errorf("failed to inspect exec: %w", err)
	}
	if inspect.ExitCode != 0 {
		return stdout.String(), fmt.Errorf("command exited with status %d: %s",
			inspect.ExitCode, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
