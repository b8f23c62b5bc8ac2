package api

// Node kinds within a network plan.
const (
	KindHost   = "host"
	KindSwitch = "switch"
)

// Node describes one emulated network element. Name and Kind (plus Addr for
// hosts) come from the topology adapter; the remaining fields are runtime
// state filled in by the emulation backend once the node exists.
type Node struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	Addr string `yaml:"addr,omitempty"` // host data address, CIDR form

	Uid       int           `yaml:"-"`
	NetNs     string        `yaml:"-"`
	Interface NodeInterface `yaml:"-"`
}

// NodeInterface records the data interface a host ended up with.
type NodeInterface struct {
	Name   string
	Mac    string
	Ipv4   string
	Bridge string // bridge the peer end of the veth is ported into
}
