package api

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// NetworkPlan is the concrete network description produced by the topology
// adapter: every plan node maps to one emulated entity, every plan link to
// one emulated link. Hosts and switches keep their adapter ordering.
type NetworkPlan struct {
	Hosts    []Node `yaml:"hosts"`
	Switches []Node `yaml:"switches"`
	Links    []Link `yaml:"links"`
}

// HostNames returns the host names in plan order.
func (p *NetworkPlan) HostNames() []string {
	names := make([]string, len(p.Hosts))
	for i, h := range p.Hosts {
		names[i] = h.Name
	}
	return names
}

// HostAddrs returns a name→address map over the plan's hosts.
func (p *NetworkPlan) HostAddrs() map[string]string {
	addrs := make(map[string]string, len(p.Hosts))
	for _, h := range p.Hosts {
		addrs[h.Name] = h.Addr
	}
	return addrs
}

// WriteToFile stores the plan under the given name, serialized to yaml or
// json depending on the name's extension.
func (p *NetworkPlan) WriteToFile(filename string) error {
	var bytes []byte
	var err error

	switch path.Ext(filename) {
	case ".yaml", ".yml":
		bytes, err = yaml.Marshal(p)
	case ".json":
		bytes, err = json.MarshalIndent(p, "", "\t")
	default:
		return fmt.Errorf("unsupported plan file extension: %s", filename)
	}
	if err != nil {
		return fmt.Errorf("failed to serialize plan: %w", err)
	}
	return os.WriteFile(filename, bytes, 0644)
}

// ReadNetworkPlan loads a plan previously stored with WriteToFile.
func ReadNetworkPlan(filename string) (*NetworkPlan, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	plan := NetworkPlan{}
	switch path.Ext(filename) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &plan)
	case ".json":
		err = json.Unmarshal(data, &plan)
	default:
		return nil, fmt.Errorf("unsupported plan file extension: %s", filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan %s: %w", filename, err)
	}
	return &plan, nil
}
