package topo

import "fmt"

// Fattree is the k-ary fat-tree graph: (k/2)² core switches, k pods of k/2
// aggregation and k/2 edge switches, k/2 hosts per edge switch. Hosts and
// Switches keep creation order; the adapter derives names from it.
type Fattree struct {
	K        int
	Hosts    []*Node
	Switches []*Node
}

// NewFattree generates the k-port fat-tree. k must be even and at least 2.
func NewFattree(k int) (*Fattree, error) {
	if k < 2 || k%2 != 0 {
		return nil, fmt.Errorf("fat-tree needs an even port count >= 2, got %d", k)
	}

	ft := &Fattree{K: k}
	half := k / 2
	id := 0

	cores := make([]*Node, 0, half*half)
	for i := 0; i < half*half; i++ {
		id++
		sw := &Node{ID: id, Kind: Core, Sw: i}
		cores = append(cores, sw)
		ft.Switches = append(ft.Switches, sw)
	}

	aggByPod := make([][]*Node, k)
	edgeByPod := make([][]*Node, k)
	for p := 0; p < k; p++ {
		for s := 0; s < half; s++ {
			id++
			sw := &Node{ID: id, Kind: Agg, Pod: p, Sw: s}
			aggByPod[p] = append(aggByPod[p], sw)
			ft.Switches = append(ft.Switches, sw)
		}
		for s := 0; s < half; s++ {
			id++
			sw := &Node{ID: id, Kind: Edge, Pod: p, Sw: s}
			edgeByPod[p] = append(edgeByPod[p], sw)
			ft.Switches = append(ft.Switches, sw)

			// Hosts hang off their edge switch; hid runs 2..k/2+1 so the
			// last address octet never collides with the switch itself.
			for h := 0; h < half; h++ {
				id++
				host := &Node{ID: id, Kind: Host, Pod: p, Sw: s, Hid: h + 2}
				ft.Hosts = append(ft.Hosts, host)
				sw.AddEdge(host)
			}
		}
	}

	// Edge to aggregation: full mesh within each pod.
	for p := 0; p < k; p++ {
		for _, edge := range edgeByPod[p] {
			for _, agg := range aggByPod[p] {
				edge.AddEdge(agg)
			}
		}
	}

	// Aggregation to core: switch s of every pod reaches cores
	// s*(k/2) .. s*(k/2)+k/2-1.
	for p := 0; p < k; p++ {
		for s := 0; s < half; s++ {
			for port := 0; port < half; port++ {
				aggByPod[p][s].AddEdge(cores[s*half+port])
			}
		}
	}

	return ft, nil
}

// Nodes returns hosts followed by switches, the traversal order the adapter
// uses when materializing links.
func (ft *Fattree) Nodes() []*Node {
	all := make([]*Node, 0, len(ft.Hosts)+len(ft.Switches))
	all = append(all, ft.Hosts...)
	all = append(all, ft.Switches...)
	return all
}
