package docker

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moby/moby/api/types/network"
)

func TestFormatPorts(t *testing.T) {
	published, ok := network.PortFrom(8080, network.IPProtocol("tcp"))
	require.True(t, ok)
	internal, ok := network.PortFrom(9090, network.IPProtocol("tcp"))
	require.True(t, ok)

	got := formatPorts(network.PortMap{
		published: {
			{HostIP: netip.MustParseAddr("0.0.0.0"), HostPort: "8080"},
			{HostPort: "18080"},
		},
		internal: nil,
	})

	assert.Equal(t, []string{
		"0.0.0.0:8080->8080/tcp",
		"18080->8080/tcp",
		"9090/tcp",
	}, got)
}
