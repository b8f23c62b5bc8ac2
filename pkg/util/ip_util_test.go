package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostAddr(t *testing.T) {
	assert.Equal(t, "10.0.0.2/24", HostAddr(0, 0, 2))
	assert.Equal(t, "10.3.1.3/24", HostAddr(3, 1, 3))
}

func TestHostIP(t *testing.T) {
	assert.Equal(t, "10.0.0.2", HostIP("10.0.0.2/24"))
	assert.Equal(t, "10.0.0.2", HostIP("10.0.0.2"))
	assert.Equal(t, "", HostIP("/24"))
}

func TestValidCIDR(t *testing.T) {
	valid := []string{
		"10.0.0.2/24",
		"10.0.0.2",
		"192.168.1.254/32",
		"172.16.0.1/8",
	}
	for _, addr := range valid {
		assert.True(t, ValidCIDR(addr), addr)
	}

	invalid := []string{
		"",
		"10.0.0/24",
		"10.0.0.256/24",
		"10.0.0.2/33",
		"10.0.0.2/7",
		"10.0.0.2/",
		"not-an-address",
		"10.0.0.2/24 ",
	}
	for _, addr := range invalid {
		assert.False(t, ValidCIDR(addr), addr)
	}
}
