package api

// Link joins two named plan nodes. Links are bidirectional; the adapter
// emits exactly one Link per distinct topology edge.
type Link struct {
	A          string         `yaml:"a"`
	B          string         `yaml:"b"`
	Properties LinkProperties `yaml:"properties"`
}

// LinkProperties are the shaping parameters applied to both ends of a link.
type LinkProperties struct {
	Rate    uint64  `yaml:"rate"`    // in mbps
	Latency uint32  `yaml:"latency"` // in ms
	Loss    float32 `yaml:"loss"`    // in percentage
}
