package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// HostAddr synthesizes the data address for a host from its coordinates,
// 10.<pod>.<edge-switch>.<host-id>/24. Embedding the tuple keeps addresses
// unique without any allocator state.
func HostAddr(pod, sw, hid int) string {
	return fmt.Sprintf("10.%d.%d.%d/24", pod, sw, hid)
}

// HostIP strips the prefix length from a CIDR address, yielding the bare
// target address probes dial.
func HostIP(addr string) string {
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		return addr[:i]
	}
	return addr
}

// ValidCIDR reports whether addr is a well-formed IPv4 address with an
// optional /8../32 prefix length.
func ValidCIDR(addr string) bool {
	// legal address format: 10.0.0.2/24
	re := regexp.MustCompile(`^([0-9]{1,3}\.){3}[0-9]{1,3}(/([8-9]|1[0-9]|2[0-9]|3[0-2]))?$`)

	if !re.MatchString(addr) {
		return false
	}

	ipParts := strings.Split(addr, "/")
	parts := strings.Split(ipParts[0], ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if val, err := strconv.Atoi(part); err != nil || val < 0 || val > 255 {
			return false
		}
	}

	return true
}
