package topo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFattreeRejectsBadPortCounts(t *testing.T) {
	for _, k := range []int{-2, 0, 1, 3, 5, 7} {
		_, err := NewFattree(k)
		assert.Error(t, err, "k=%d", k)
	}
}

func TestNewFattreeCounts(t *testing.T) {
	cases := []struct {
		k        int
		hosts    int
		switches int
		edges    int
	}{
		{2, 2, 5, 6},
		{4, 16, 20, 48},
		{6, 54, 45, 162},
		{8, 128, 80, 384},
	}
	for _, tc := range cases {
		ft, err := NewFattree(tc.k)
		require.NoError(t, err, "k=%d", tc.k)

		assert.Equal(t, tc.hosts, len(ft.Hosts), "hosts for k=%d", tc.k)
		assert.Equal(t, tc.switches, len(ft.Switches), "switches for k=%d", tc.k)
		assert.Equal(t, tc.edges, len(DistinctEdges(ft.Nodes())), "edges for k=%d", tc.k)
	}
}

func TestNewFattreeLayers(t *testing.T) {
	ft, err := NewFattree(4)
	require.NoError(t, err)

	byKind := make(map[string]int)
	for _, sw := range ft.Switches {
		byKind[sw.Kind]++
	}
	assert.Equal(t, 4, byKind[Core])
	assert.Equal(t, 8, byKind[Agg])
	assert.Equal(t, 8, byKind[Edge])
}

// Every device carries the degree the wiring scheme dictates: hosts are
// single-homed, cores reach one aggregation switch per pod, everything in a
// pod splits its ports evenly between the layers above and below.
func TestNewFattreeDegrees(t *testing.T) {
	const k = 4
	ft, err := NewFattree(k)
	require.NoError(t, err)

	for _, h := range ft.Hosts {
		assert.Len(t, h.Edges, 1, "host %d", h.ID)
	}
	for _, sw := range ft.Switches {
		assert.Len(t, sw.Edges, k, "switch %d (%s)", sw.ID, sw.Kind)
	}
}

func TestNewFattreeWiring(t *testing.T) {
	const k = 4
	ft, err := NewFattree(k)
	require.NoError(t, err)

	var cores, aggs, edges []*Node
	for _, sw := range ft.Switches {
		switch sw.Kind {
		case Core:
			cores = append(cores, sw)
		case Agg:
			aggs = append(aggs, sw)
		case Edge:
			edges = append(edges, sw)
		}
	}

	// Aggregation switch s of any pod reaches cores s*(k/2) … s*(k/2)+k/2-1.
	for _, agg := range aggs {
		for port := 0; port < k/2; port++ {
			want := cores[agg.Sw*(k/2)+port]
			assert.True(t, agg.Neighbor(want),
				"agg pod=%d sw=%d should reach core %d", agg.Pod, agg.Sw, want.ID)
		}
	}

	// Edge and aggregation switches of the same pod form a full mesh.
	for _, edge := range edges {
		for _, agg := range aggs {
			if edge.Pod == agg.Pod {
				assert.True(t, edge.Neighbor(agg),
					"edge pod=%d sw=%d should reach agg sw=%d", edge.Pod, edge.Sw, agg.Sw)
			} else {
				assert.False(t, edge.Neighbor(agg),
					"edge pod=%d must not reach agg pod=%d", edge.Pod, agg.Pod)
			}
		}
	}

	// Hosts hang off the edge switch matching their coordinates, with ids
	// starting at 2.
	for _, h := range ft.Hosts {
		require.Len(t, h.Edges, 1)
		e := h.Edges[0]
		sw := e.L
		if sw == h {
			sw = e.R
		}
		assert.Equal(t, Edge, sw.Kind)
		assert.Equal(t, h.Pod, sw.Pod)
		assert.Equal(t, h.Sw, sw.Sw)
		assert.GreaterOrEqual(t, h.Hid, 2)
		assert.Less(t, h.Hid, 2+k/2)
	}
}

func TestDistinctEdgesDeduplicates(t *testing.T) {
	ft, err := NewFattree(4)
	require.NoError(t, err)

	edges := DistinctEdges(ft.Nodes())
	seen := make(map[*Link]struct{}, len(edges))
	for _, e := range edges {
		_, dup := seen[e]
		assert.False(t, dup, "edge %d-%d listed twice", e.L.ID, e.R.ID)
		seen[e] = struct{}{}
	}
}

// Parallel edges between the same pair of nodes are distinct edges, not
// duplicates: identity is the edge value, not its endpoints.
func TestDistinctEdgesKeepsParallelEdges(t *testing.T) {
	a := &Node{ID: 1, Kind: Edge}
	b := &Node{ID: 2, Kind: Agg}
	a.AddEdge(b)
	a.AddEdge(b)

	assert.Len(t, DistinctEdges([]*Node{a, b}), 2)
}

func TestAddEdgeIsBidirectional(t *testing.T) {
	a := &Node{ID: 1, Kind: Host}
	b := &Node{ID: 2, Kind: Edge}
	e := a.AddEdge(b)

	assert.Contains(t, a.Edges, e)
	assert.Contains(t, b.Edges, e)
	assert.True(t, a.Neighbor(b))
	assert.True(t, b.Neighbor(a))
}
