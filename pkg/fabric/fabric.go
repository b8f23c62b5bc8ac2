// Package fabric turns the abstract fat-tree graph into a concrete network
// plan: names, addresses, and one link per physical edge.
package fabric

import (
	"fmt"

	"github.com/aditinnerkar/ans-ss25-copy/api"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/topo"
	"github.com/aditinnerkar/ans-ss25-copy/pkg/util"
)

// Build materializes ft into a NetworkPlan. Hosts are named h1, h2, … in
// input order with addresses derived from their coordinates; switches are
// numbered per kind under the kind's initial (c1…, a1…, e1…), so whatever
// switch taxonomy the graph uses keeps independent sequences. Every distinct
// edge becomes exactly one link carrying props. An edge whose endpoint is
// missing from the host and switch lists is a construction error.
func Build(ft *topo.Fattree, props api.LinkProperties) (*api.NetworkPlan, error) {
	plan := &api.NetworkPlan{}

	// A mapping from graph nodes to their concrete names.
	names := make(map[*topo.Node]string, len(ft.Hosts)+len(ft.Switches))

	for i, h := range ft.Hosts {
		name := fmt.Sprintf("h%d", i+1)
		addr := util.HostAddr(h.Pod, h.Sw, h.Hid)
		if !util.ValidCIDR(addr) {
			return nil, fmt.Errorf("host %s: invalid address %s", name, addr)
		}
		names[h] = name
		plan.Hosts = append(plan.Hosts, api.Node{Name: name, Kind: api.KindHost, Addr: addr})
	}

	seq := make(map[string]int)
	for _, sw := range ft.Switches {
		if sw.Kind == "" || sw.Kind == topo.Host {
			return nil, fmt.Errorf("switch %d: unexpected kind %q", sw.ID, sw.Kind)
		}
		seq[sw.Kind]++
		name := fmt.Sprintf("%c%d", sw.Kind[0], seq[sw.Kind])
		names[sw] = name
		plan.Switches = append(plan.Switches, api.Node{Name: name, Kind: api.KindSwitch})
	}

	for _, e := range topo.DistinctEdges(ft.Nodes()) {
		a, ok := names[e.L]
		if !ok {
			return nil, fmt.Errorf("edge endpoint %d missing from host and switch lists", nodeID(e.L))
		}
		b, ok := names[e.R]
		if !ok {
			return nil, fmt.Errorf("edge endpoint %d missing from host and switch lists", nodeID(e.R))
		}
		plan.Links = append(plan.Links, api.Link{A: a, B: b, Properties: props})
	}

	return plan, nil
}

func nodeID(n *topo.Node) int {
	if n == nil {
		return -1
	}
	return n.ID
}
