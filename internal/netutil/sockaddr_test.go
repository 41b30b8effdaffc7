//go:build linux || darwin

package netutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestFamilyForNetwork(t *testing.T) {
	tests := []struct {
		network string
		family  int
		wantErr bool
	}{
		{network: "tcp", family: unix.AF_UNSPEC},
		{network: "tcp4", family: unix.AF_INET},
		{network: "tcp6", family: unix.AF_INET6},
		{network: "udp", wantErr: true},
		{network: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			fam, err := FamilyForNetwork(tt.network)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadNetwork)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.family, fam)
		})
	}
}

func TestSockaddrRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		family int
		ip     net.IP
		port   int
	}{
		{name: "v4 loopback", family: unix.AF_INET, ip: net.IPv4(127, 0, 0, 1), port: 8080},
		{name: "v6 loopback", family: unix.AF_INET6, ip: net.IPv6loopback, port: 443},
		{name: "v4 wildcard", family: unix.AF_INET, ip: nil, port: 1234},
		{name: "v6 wildcard", family: unix.AF_INET6, ip: nil, port: 1234},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sa, err := Sockaddr(tt.family, tt.ip, tt.port)
			require.NoError(t, err)
			back := SockaddrTCPAddr(sa)
			require.NotNil(t, back)
			assert.Equal(t, tt.port, back.Port)
			if tt.ip != nil {
				assert.True(t, back.IP.Equal(tt.ip), "got %s want %s", back.IP, tt.ip)
			} else {
				assert.True(t, back.IP.IsUnspecified())
			}
		})
	}
}

func TestSockaddrFamilyMismatch(t *testing.T) {
	_, err := Sockaddr(unix.AF_INET, net.IPv6loopback, 80)
	assert.ErrorIs(t, err, ErrBadAddress)
}

func TestFormatSockaddr(t *testing.T) {
	sa := &unix.SockaddrInet4{Port: 80}
	copy(sa.Addr[:], net.IPv4(10, 0, 0, 2).To4())
	assert.Equal(t, "10.0.0.2:80", FormatSockaddr(sa))
	assert.Equal(t, "<unknown sockaddr>", FormatSockaddr(nil))
}

func TestLocalUnicastAddrsHasLoopback(t *testing.T) {
	ips, err := LocalUnicastAddrs(unix.AF_INET)
	require.NoError(t, err)
	found := false
	for _, ip := range ips {
		require.NotNil(t, ip.To4())
		if ip.IsLoopback() {
			found = true
		}
	}
	assert.True(t, found, "no v4 loopback among %v", ips)
}

func TestLocalTCPAddr(t *testing.T) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fd)
	sa, err := Sockaddr(unix.AF_INET, net.IPv4(127, 0, 0, 1), 0)
	require.NoError(t, err)
	require.NoError(t, unix.Bind(fd, sa))
	got, err := LocalTCPAddr(fd)
	require.NoError(t, err)
	assert.True(t, got.IP.IsLoopback())
	assert.Greater(t, got.Port, 0)
}
