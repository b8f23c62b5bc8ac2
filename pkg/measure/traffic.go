// Package measure runs the all-pairs throughput test: it derives a random
// traffic matrix over the hosts, drives one probe per pair against the
// emulation platform, and folds the probe outputs into a single report.
package measure

import (
	"github.com/iti/rngstream"
)

// Pair is one sender→receiver assignment of the traffic matrix.
type Pair struct {
	Src string
	Dst string
}

// Label is the pair's key in logs and in the report.
func (p Pair) Label() string {
	return p.Src + "->" + p.Dst
}

// TrafficMatrix pairs every host with a random other host: hosts[i] sends to
// the i-th entry of a shuffled copy of the host list. A shuffle can leave a
// host paired with itself; each such fixed point is swapped with its right
// neighbor (wrapping at the end). The displaced value can never equal the
// neighbor's own name, so a single forward pass leaves no self-pairing.
// Fewer than two hosts admit no pairing at all: the matrix is empty and the
// caller skips measurement.
func TrafficMatrix(hosts []string, rng *rngstream.RngStream) []Pair {
	if len(hosts) < 2 {
		return nil
	}
	if rng == nil {
		rng = rngstream.New("traffic")
	}

	n := len(hosts)
	dst := make([]string, n)
	copy(dst, hosts)

	// Fisher-Yates driven by the rng stream.
	for i := n - 1; i > 0; i-- {
		j := rng.RandInt(0, i)
		dst[i], dst[j] = dst[j], dst[i]
	}

	for i := 0; i < n; i++ {
		if dst[i] == hosts[i] {
			j := (i + 1) % n
			dst[i], dst[j] = dst[j], dst[i]
		}
	}

	pairs := make([]Pair, n)
	for i := range hosts {
		pairs[i] = Pair{Src: hosts[i], Dst: dst[i]}
	}
	return pairs
}
