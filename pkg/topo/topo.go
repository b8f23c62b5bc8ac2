// Package topo holds the abstract fat-tree graph the benchmark materializes:
// plain nodes and edges, built once by a generator and read-only afterwards.
package topo

// Node kinds.
const (
	Host = "host"
	Core = "core"
	Agg  = "agg"
	Edge = "edge"
)

// Node is a vertex of the topology graph. Hosts carry the full pod/sw/hid
// coordinate tuple, pod-local switches carry pod/sw, core switches only an
// ordinal in Sw.
type Node struct {
	ID   int
	Kind string
	Pod  int
	Sw   int
	Hid  int

	Edges []*Link
}

// Link is an unordered pair of endpoint nodes. Identity is the *Link pointer
// itself: two parallel edges between the same endpoints are distinct values
// and must be materialized separately.
type Link struct {
	L *Node
	R *Node
}

// AddEdge connects n to m and registers the edge on both adjacency lists.
func (n *Node) AddEdge(m *Node) *Link {
	e := &Link{L: n, R: m}
	n.Edges = append(n.Edges, e)
	m.Edges = append(m.Edges, e)
	return e
}

// Neighbor reports whether m shares an edge with n.
func (n *Node) Neighbor(m *Node) bool {
	for _, e := range n.Edges {
		if e.L == m || e.R == m {
			return true
		}
	}
	return false
}

// DistinctEdges walks the adjacency lists of nodes and returns every edge
// exactly once, in first-encounter order. The dedup key is edge identity,
// not the endpoint pair, so an edge seen from both of its endpoints is
// emitted once while parallel edges between the same pair each survive.
func DistinctEdges(nodes []*Node) []*Link {
	seen := make(map[*Link]struct{}, len(nodes))
	edges := make([]*Link, 0, len(nodes))
	for _, n := range nodes {
		for _, e := range n.Edges {
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			edges = append(edges, e)
		}
	}
	return edges
}
