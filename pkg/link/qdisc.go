package link

import (
	"fmt"

	ns "github.com/containernetworking/plugins/pkg/ns"
	"github.com/vishvananda/netlink"

	"github.com/aditinnerkar/ans-ss25-copy/api"
)

// Shaping follows the classic tc layout, applied to the egress of both
// interfaces of a link:
//
//	tc qdisc add dev X root handle 1: htb default 1
//	tc class add dev X parent 1: classid 1:1 htb rate <rate>mbit burst 15k
//	tc qdisc add dev X parent 1:1 handle 10: netem delay <delay>ms
//
// With no rate cap the netem qdisc sits at the root directly.

// Shape installs rate, delay and loss shaping on iface. nsPath selects the
// network namespace holding the interface; empty means the current one.
// All-zero properties install nothing.
func (lm *Manager) Shape(nsPath, iface string, props api.LinkProperties) error {
	if props.Rate == 0 && props.Latency == 0 && props.Loss == 0 {
		return nil
	}
	if nsPath == "" {
		return shape(iface, props)
	}

	netNs, err := ns.GetNS(nsPath)
	if err != nil {
		return fmt.Errorf("failed to open namespace %s: %w", nsPath, err)
	}
	defer netNs.Close()

	return netNs.Do(func(_ ns.NetNS) error {
		return shape(iface, props)
	})
}

func shape(iface string, props api.LinkProperties) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", iface, err)
	}

	if props.Rate == 0 {
		netem := netlink.NewNetem(netlink.QdiscAttrs{
			LinkIndex: link.Attrs().Index,
			Handle:    netlink.MakeHandle(1, 0),
			Parent:    netlink.HANDLE_ROOT,
		}, netemAttrs(props))
		if err = netlink.QdiscAdd(netem); err != nil {
			return fmt.Errorf("failed to add netem qdisc on %s: %w", iface, err)
		}
		return nil
	}

	// 1. HTB root, unclassified traffic falls into the rate class
	root := netlink.NewHtb(netlink.QdiscAttrs{
		LinkIndex: link.Attrs().Index,
		Handle:    netlink.MakeHandle(1, 0),
		Parent:    netlink.HANDLE_ROOT,
	})
	root.Defcls = 1
	if err = netlink.QdiscAdd(root); err != nil {
		return fmt.Errorf("failed to add HTB root qdisc on %s: %w", iface, err)
	}

	// 2. the rate cap
	class := netlink.NewHtbClass(
		netlink.ClassAttrs{
			LinkIndex: link.Attrs().Index,
			Handle:    netlink.MakeHandle(1, 1),
			Parent:    netlink.MakeHandle(1, 0),
		},
		netlink.HtbClassAttrs{
			Rate:   props.Rate * 1000 * 1000,
			Buffer: 15000,
			Prio:   1,
		},
	)
	if err = netlink.ClassAdd(class); err != nil {
		return fmt.Errorf("failed to add HTB class on %s: %w", iface, err)
	}

	// 3. delay and loss under the rate class
	if props.Latency > 0 || props.Loss > 0 {
		netem := netlink.NewNetem(netlink.QdiscAttrs{
			LinkIndex: link.Attrs().Index,
			Parent:    netlink.MakeHandle(1, 1),
			Handle:    netlink.MakeHandle(10, 0),
		}, netemAttrs(props))
		if err = netlink.QdiscAdd(netem); err != nil {
			return fmt.Errorf("failed to add netem qdisc on %s: %w", iface, err)
		}
	}
	return nil
}

// netemAttrs converts link properties to netem units, milliseconds to
// microseconds.
func netemAttrs(props api.LinkProperties) netlink.NetemQdiscAttrs {
	return netlink.NetemQdiscAttrs{
		Latency: props.Latency * 1000,
		Loss:    props.Loss,
		Limit:   1000,
	}
}
