// Package link creates the veth plumbing between emulated devices and puts
// traffic shaping on link interfaces.
package link

import (
	"fmt"
	"net"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"

	"github.com/aditinnerkar/ans-ss25-copy/pkg/ovs"
)

// Manager creates trunk veths between switch bridges and remembers them for
// teardown. Host-side veths are owned by the host's container namespace and
// vanish with it; trunks live in the root namespace and must be deleted
// explicitly.
type Manager struct {
	trunks []string
	seq    int
}

func NewManager() *Manager {
	return &Manager{}
}

// CreateTrunk creates a veth pair connecting two switches and returns the
// two interface names, one per switch side.
func (lm *Manager) CreateTrunk(a, b string) (string, string, error) {
	lm.seq++
	ifA := fmt.Sprintf("%st%da", ovs.Prefix, lm.seq)
	ifB := fmt.Sprintf("%st%db", ovs.Prefix, lm.seq)

	linkAttr := netlink.NewLinkAttrs()
	linkAttr.Name = ifA
	linkAttr.MTU = 1500
	linkAttr.Flags = net.FlagUp

	veth := &netlink.Veth{
		LinkAttrs: linkAttr,
		PeerName:  ifB,
	}
	if err := netlink.LinkAdd(veth); err != nil {
		return "", "", fmt.Errorf("failed to create trunk for %s-%s: %w", a, b, err)
	}

	for _, name := range []string{ifA, ifB} {
		l, err := netlink.LinkByName(name)
		if err != nil {
			return "", "", fmt.Errorf("failed to find trunk end %s: %w", name, err)
		}
		if err = netlink.LinkSetUp(l); err != nil {
			return "", "", fmt.Errorf("failed to bring up trunk end %s: %w", name, err)
		}
	}

	lm.trunks = append(lm.trunks, ifA)
	log.Debugf("Created trunk %s/%s for %s <-> %s", ifA, ifB, a, b)
	return ifA, ifB, nil
}

// Cleanup deletes the trunks created by this manager. Deleting one end of a
// veth pair removes both.
func (lm *Manager) Cleanup() {
	for _, name := range lm.trunks {
		l, err := netlink.LinkByName(name)
		if err != nil {
			continue
		}
		if err = netlink.LinkDel(l); err != nil {
			log.Warnf("Failed to delete trunk %s: %v", name, err)
		}
	}
	lm.trunks = nil
}

// Sweep deletes root-namespace veths left behind by earlier runs. Bridges
// must be swept first so their internal interfaces are already gone.
func Sweep() {
	links, err := netlink.LinkList()
	if err != nil {
		log.Warnf("Failed to list interfaces: %v", err)
		return
	}
	for _, l := range links {
		if !strings.HasPrefix(l.Attrs().Name, ovs.Prefix) {
			continue
		}
		if _, isVeth := l.(*netlink.Veth); !isVeth {
			continue
		}
		if err = netlink.LinkDel(l); err != nil {
			log.Warnf("Failed to delete stale interface %s: %v", l.Attrs().Name, err)
		}
	}
}
