package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/require"
)

func TestParseEntry(t *testing.T) {
	t.Parallel()

	r, ok := parseEntry(&mdns.ServiceEntry{
		Name:       `Study\ Room._skillswap._tcp.local.`,
		AddrV4:     net.IPv4(192, 168, 1, 20),
		Port:       8080,
		InfoFields: []string{"path=/v1/updates", "tls=1", "bare"},
	})
	require.True(t, ok)
	require.Equal(t, "Study Room", r.Instance)
	require.Equal(t, "192.168.1.20:8080", r.Addr())
	require.Equal(t, "https://192.168.1.20:8080", r.URL())
	require.Equal(t, "/v1/updates", r.Info["path"])
	require.Equal(t, "", r.Info["bare"])
}

func TestParseEntryRejects(t *testing.T) {
	t.Parallel()

	for _, e := range []*mdns.ServiceEntry{
		nil,
		{Name: "x._skillswap._tcp.local.", Port: 80},
		{Name: "x._skillswap._tcp.local.", AddrV4: net.IPv4(10, 0, 0, 1)},
		{Name: "x._printer._tcp.local.", AddrV4: net.IPv4(10, 0, 0, 1), Port: 631},
	} {
		_, ok := parseEntry(e)
		require.False(t, ok)
	}
}

func TestTXTRoundTrip(t *testing.T) {
	t.Parallel()

	info := map[string]string{"version": "1", "path": "/v1/updates"}
	fields := encodeTXT(info)
	require.Equal(t, []string{"path=/v1/updates", "version=1"}, fields)
	require.Equal(t, info, decodeTXT(fields))
}

func TestRelayURLDefaultsToHTTP(t *testing.T) {
	t.Parallel()

	r := Relay{Host: "10.0.0.5", Port: 9000}
	require.Equal(t, "http://10.0.0.5:9000", r.URL())
}
