package api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan() *NetworkPlan {
	return &NetworkPlan{
		Hosts: []Node{
			{Name: "h1", Kind: KindHost, Addr: "10.0.0.2/24"},
			{Name: "h2", Kind: KindHost, Addr: "10.1.0.2/24"},
		},
		Switches: []Node{
			{Name: "c1", Kind: KindSwitch},
			{Name: "e1", Kind: KindSwitch},
		},
		Links: []Link{
			{A: "h1", B: "e1", Properties: LinkProperties{Rate: 15, Latency: 5, Loss: 0.5}},
			{A: "e1", B: "c1", Properties: LinkProperties{Rate: 15, Latency: 5}},
		},
	}
}

func TestPlanRoundTrip(t *testing.T) {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		name := filepath.Join(t.TempDir(), "plan"+ext)
		plan := testPlan()
		require.NoError(t, plan.WriteToFile(name), ext)

		got, err := ReadNetworkPlan(name)
		require.NoError(t, err, ext)
		assert.Equal(t, plan, got, ext)
	}
}

func TestPlanUnsupportedExtension(t *testing.T) {
	name := filepath.Join(t.TempDir(), "plan.txt")
	assert.Error(t, testPlan().WriteToFile(name))

	require.NoError(t, os.WriteFile(name, []byte("hosts: []\n"), 0644))
	_, err := ReadNetworkPlan(name)
	assert.Error(t, err)
}

func TestReadNetworkPlanMissingFile(t *testing.T) {
	_, err := ReadNetworkPlan(filepath.Join(t.TempDir(), "plan.yaml"))
	assert.Error(t, err)
}

func TestPlanHostAccessors(t *testing.T) {
	plan := testPlan()
	assert.Equal(t, []string{"h1", "h2"}, plan.HostNames())
	assert.Equal(t, map[string]string{
		"h1": "10.0.0.2/24",
		"h2": "10.1.0.2/24",
	}, plan.HostAddrs())
}
