// Package ovs manages the Open vSwitch bridges backing emulated switches.
package ovs

import (
	"fmt"
	"strings"

	"github.com/digitalocean/go-openvswitch/ovs"
	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

// Prefix marks every bridge, container and root-namespace interface owned
// by this tool, so stale state from a crashed run can be swept without
// touching anything else on the machine.
const Prefix = "ftb-"

// Manager wraps an ovs-vsctl client and tracks one bridge per emulated
// switch.
type Manager struct {
	oClient    *ovs.Client
	controller string
	bridges    map[string]string // switch name -> bridge name
}

// NewManager returns a manager whose bridges will be pointed at the given
// OpenFlow controller address, e.g. tcp:127.0.0.1:6653.
func NewManager(controller string) *Manager {
	return &Manager{
		oClient:    ovs.New(),
		controller: controller,
		bridges:    make(map[string]string),
	}
}

// BridgeName returns the bridge interface backing the named switch.
func (om *Manager) BridgeName(name string) string {
	return Prefix + name
}

// CreateBridge creates the bridge for an emulated switch and brings its
// interface up. The bridge is put in secure fail mode, so nothing is
// forwarded until the controller installs rules.
func (om *Manager) CreateBridge(name string) error {
	bridge := om.BridgeName(name)
	if err := om.oClient.VSwitch.AddBridge(bridge); err != nil {
		return fmt.Errorf("failed to create bridge %s: %w", bridge, err)
	}
	if err := om.oClient.VSwitch.SetFailMode(bridge, ovs.FailModeSecure); err != nil {
		return fmt.Errorf("failed to set fail mode on %s: %w", bridge, err)
	}

	link, err := netlink.LinkByName(bridge)
	if err != nil {
		return fmt.Errorf("failed to find bridge interface %s: %w", bridge, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to bring up bridge %s: %w", bridge, err)
	}

	om.bridges[name] = bridge
	return nil
}

// AddPort brings iface up and attaches it to the named switch's bridge.
func (om *Manager) AddPort(name, iface string) error {
	bridge, ok := om.bridges[name]
	if !ok {
		return fmt.Errorf("switch %s has no bridge", name)
	}

	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("failed to find interface %s: %w", iface, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to bring up interface %s: %w", iface, err)
	}

	if err := om.oClient.VSwitch.AddPort(bridge, iface); err != nil {
		return fmt.Errorf("failed to add %s to bridge %s: %w", iface, bridge, err)
	}
	return nil
}

// ConnectController points every bridge at the configured controller.
func (om *Manager) ConnectController() error {
	for name, bridge := range om.bridges {
		if err := om.oClient.VSwitch.SetController(bridge, om.controller); err != nil {
			return fmt.Errorf("failed to set controller on switch %s: %w", name, err)
		}
	}
	return nil
}

// DeleteBridge removes the named switch's bridge. Unknown switches are a
// no-op so teardown can be retried.
func (om *Manager) DeleteBridge(name string) error {
	bridge, ok := om.bridges[name]
	if !ok {
		return nil
	}
	delete(om.bridges, name)

	if err := om.oClient.VSwitch.DeleteBridge(bridge); err != nil {
		return fmt.Errorf("failed to delete bridge %s: %w", bridge, err)
	}
	return nil
}

// Cleanup deletes every bridge carrying the tool prefix, including ones
// left behind by earlier runs.
func (om *Manager) Cleanup() error {
	bridges, err := om.oClient.VSwitch.ListBridges()
	if err != nil {
		return fmt.Errorf("failed to list bridges: %w", err)
	}
	for _, bridge := range bridges {
		if !strings.HasPrefix(bridge, Prefix) {
			continue
		}
		if err := om.oClient.VSwitch.DeleteBridge(bridge); err != nil {
			log.Warnf("Failed to delete stale bridge %s: %v", bridge, err)
		}
	}
	om.bridges = make(map[string]string)
	return nil
}
